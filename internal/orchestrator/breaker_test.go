package orchestrator

import (
	"testing"
	"time"
)

// testClock drives a breaker's notion of time by hand.
type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker() (*breaker, *testClock) {
	clock := &testClock{t: time.Unix(1700000000, 0)}
	b := newBreaker(0.5, 4, 50*time.Millisecond, 2)
	b.now = clock.now
	return b, clock
}

func TestBreakerTripsOnFailureRate(t *testing.T) {
	b, _ := newTestBreaker()

	// 3 failures out of 4 exceeds the 0.5 threshold.
	b.record(true)
	b.record(false)
	b.record(true)
	if b.currentState() != BreakerClosed {
		t.Fatal("breaker tripped before the window filled")
	}
	b.record(true)
	if b.currentState() != BreakerOpen {
		t.Fatalf("state = %s, want open", b.currentState())
	}
	if b.allow() {
		t.Error("open breaker must reject work")
	}
}

func TestBreakerStaysClosedUnderThreshold(t *testing.T) {
	b, _ := newTestBreaker()
	for i := 0; i < 8; i++ {
		b.record(i%2 == 0) // 50% failure rate, not above threshold
	}
	if b.currentState() != BreakerClosed {
		t.Errorf("state = %s, want closed", b.currentState())
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	b, clock := newTestBreaker()
	for i := 0; i < 4; i++ {
		b.record(true)
	}
	if b.currentState() != BreakerOpen {
		t.Fatal("breaker should be open")
	}

	clock.advance(49 * time.Millisecond)
	if b.allow() {
		t.Fatal("cooldown not elapsed, must still reject")
	}

	clock.advance(2 * time.Millisecond)
	if !b.allow() {
		t.Fatal("first trial after cooldown must be admitted")
	}
	if b.currentState() != BreakerHalfOpen {
		t.Fatalf("state = %s, want half_open", b.currentState())
	}
	if !b.allow() {
		t.Fatal("second trial must be admitted")
	}
	if b.allow() {
		t.Error("trial budget exhausted, must reject")
	}

	b.record(false)
	b.record(false)
	if b.currentState() != BreakerClosed {
		t.Errorf("state after successful trials = %s, want closed", b.currentState())
	}
}

func TestBreakerReopensOnTrialFailure(t *testing.T) {
	b, clock := newTestBreaker()
	for i := 0; i < 4; i++ {
		b.record(true)
	}
	clock.advance(51 * time.Millisecond)
	if !b.allow() {
		t.Fatal("trial must be admitted")
	}
	b.record(true)
	if b.currentState() != BreakerOpen {
		t.Fatalf("state = %s, want open after failed trial", b.currentState())
	}
	if b.allow() {
		t.Error("reopened breaker must reject until the next cooldown")
	}
}
