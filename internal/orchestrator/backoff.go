package orchestrator

import "time"

// backoffDelay computes the requeue delay before retry attempt `attempt`
// (1-based): base * 2^attempt with +-20% jitter, clamped to max. jitter must
// return a value in [0,1).
func backoffDelay(base, max time.Duration, attempt int, jitter func() float64) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			d = max
			break
		}
	}
	// Spread across [0.8, 1.2) of the computed delay.
	factor := 0.8 + 0.4*jitter()
	d = time.Duration(float64(d) * factor)
	if max > 0 && d > max {
		d = max
	}
	return d
}
