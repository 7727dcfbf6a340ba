package orchestrator

import (
	"errors"
	"fmt"
)

var (
	// ErrPermanent marks a failure that must not be retried. Wrap with
	// Permanent() or test with IsPermanent().
	ErrPermanent = errors.New("permanent failure")

	// ErrQueueFull is returned by Submit when the queue is at capacity.
	ErrQueueFull = errors.New("work queue full")

	// ErrStopped is returned when the orchestrator is shut down.
	ErrStopped = errors.New("orchestrator stopped")

	// ErrNotFound is returned when a work item ID is unknown.
	ErrNotFound = errors.New("work item not found")

	// ErrAlreadyTerminal is returned by Cancel on a finished item.
	ErrAlreadyTerminal = errors.New("work item already terminal")

	// ErrBreakerOpen is returned by Guard while an operation's circuit
	// breaker is open. It is a transient condition.
	ErrBreakerOpen = errors.New("circuit breaker open")
)

// Permanent wraps err so IsPermanent reports true for it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// IsPermanent reports whether err is classified as non-retryable.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}
