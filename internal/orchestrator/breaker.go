package orchestrator

import (
	"sync"
	"time"
)

// BreakerState is the lifecycle state of a circuit breaker.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// breaker tracks the failure rate of one logical operation over a rolling
// window of outcomes. When the rate exceeds the threshold the breaker opens
// and rejects work until a cooldown passes, then admits a limited number of
// trial requests before closing again.
type breaker struct {
	mu        sync.Mutex
	threshold float64
	window    int
	cooldown  time.Duration
	trials    int

	state    BreakerState
	outcomes []bool // ring buffer of recent results, true = failure
	next     int
	filled   int
	openedAt time.Time

	trialsStarted int
	trialsOK      int

	now func() time.Time
}

func newBreaker(threshold float64, window int, cooldown time.Duration, trials int) *breaker {
	if window <= 0 {
		window = 20
	}
	if trials <= 0 {
		trials = 1
	}
	return &breaker{
		threshold: threshold,
		window:    window,
		cooldown:  cooldown,
		trials:    trials,
		state:     BreakerClosed,
		outcomes:  make([]bool, window),
		now:       time.Now,
	}
}

// allow reports whether a request may proceed right now.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.state = BreakerHalfOpen
		b.trialsStarted = 0
		b.trialsOK = 0
		fallthrough
	default: // half_open
		if b.trialsStarted >= b.trials {
			return false
		}
		b.trialsStarted++
		return true
	}
}

// record feeds one outcome back into the breaker.
func (b *breaker) record(failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case BreakerClosed:
		b.outcomes[b.next] = failed
		b.next = (b.next + 1) % b.window
		if b.filled < b.window {
			b.filled++
		}
		if b.filled == b.window && b.failureRate() > b.threshold {
			b.trip()
		}
	case BreakerHalfOpen:
		if failed {
			b.trip()
			return
		}
		b.trialsOK++
		if b.trialsOK >= b.trials {
			b.reset()
		}
	case BreakerOpen:
		// Outcome from a request admitted before the trip; ignore.
	}
}

func (b *breaker) trip() {
	b.state = BreakerOpen
	b.openedAt = b.now()
	b.filled = 0
	b.next = 0
}

func (b *breaker) reset() {
	b.state = BreakerClosed
	b.filled = 0
	b.next = 0
}

func (b *breaker) failureRate() float64 {
	if b.filled == 0 {
		return 0
	}
	var failures int
	for i := 0; i < b.filled; i++ {
		if b.outcomes[i] {
			failures++
		}
	}
	return float64(failures) / float64(b.filled)
}

func (b *breaker) currentState() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// breakerSet holds one breaker per logical operation name.
type breakerSet struct {
	mu      sync.Mutex
	m       map[string]*breaker
	factory func() *breaker
}

func newBreakerSet(factory func() *breaker) *breakerSet {
	return &breakerSet{m: map[string]*breaker{}, factory: factory}
}

func (s *breakerSet) get(op string) *breaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.m[op]
	if !ok {
		b = s.factory()
		s.m[op] = b
	}
	return b
}

// states returns a snapshot of every known operation's breaker state.
func (s *breakerSet) states() map[string]BreakerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]BreakerState, len(s.m))
	for op, b := range s.m {
		out[op] = b.currentState()
	}
	return out
}
