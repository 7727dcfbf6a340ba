package models

import "time"

// Priority is the scheduling tier of a work item. Higher tiers are always
// dequeued before lower ones; within a tier, order is first-in-first-out.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// String returns the priority name used in config, API payloads, and logs.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityLow:
		return "low"
	default:
		return "normal"
	}
}

// ParsePriority maps a priority name to its tier; unknown names are normal.
func ParsePriority(s string) Priority {
	switch s {
	case "high":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityNormal
	}
}

// WorkStatus is the lifecycle state of a work item. Terminal states are
// succeeded, dead_letter, and cancelled.
type WorkStatus string

const (
	StatusQueued     WorkStatus = "queued"
	StatusInProgress WorkStatus = "in_progress"
	StatusSucceeded  WorkStatus = "succeeded"
	StatusFailed     WorkStatus = "failed"
	StatusDeadLetter WorkStatus = "dead_letter"
	StatusCancelled  WorkStatus = "cancelled"
)

// Terminal reports whether s is a final state.
func (s WorkStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusDeadLetter || s == StatusCancelled
}

// AttemptError records one failed attempt for dead-letter diagnosis.
type AttemptError struct {
	Attempt   int       `json:"attempt"`
	Message   string    `json:"message"`
	Permanent bool      `json:"permanent"`
	At        time.Time `json:"at"`
}

// WorkItem wraps a source document while it moves through the orchestrator.
// All state transitions are driven by the orchestrator; callers observe a
// point-in-time snapshot.
type WorkItem struct {
	ID           string         `json:"id"`
	Document     SourceDocument `json:"document"`
	Priority     Priority       `json:"priority"`
	Status       WorkStatus     `json:"status"`
	AttemptCount int            `json:"attempt_count"`
	CreatedAt    time.Time      `json:"created_at"`
	StartedAt    time.Time      `json:"started_at,omitempty"`
	FinishedAt   time.Time      `json:"finished_at,omitempty"`
	LastError    string         `json:"last_error,omitempty"`
	Errors       []AttemptError `json:"errors,omitempty"`
	NeedsReview  bool           `json:"needs_review,omitempty"`
	Score        float64        `json:"validation_score,omitempty"`
}
