package orchestrator

import (
	"time"

	"go.uber.org/zap"

	"github.com/draftwerk/cvpipe/internal/models"
)

// ItemEvent is emitted once per work item when it reaches a terminal state.
// Duration is the wall time from submission to the terminal transition.
type ItemEvent struct {
	ItemID          string            `json:"item_id"`
	DocumentID      string            `json:"document_id"`
	Status          models.WorkStatus `json:"status"`
	AttemptCount    int               `json:"attempt_count"`
	Duration        time.Duration     `json:"duration"`
	ValidationScore float64           `json:"validation_score"`
	NeedsReview     bool              `json:"needs_review,omitempty"`
}

// EventSink receives terminal item events. Implementations must be safe for
// concurrent use and must not block for long; slow sinks delay workers.
type EventSink interface {
	Emit(event ItemEvent)
}

// LogSink writes item events to a zap logger.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink logging at info level.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Emit logs the event.
func (s *LogSink) Emit(event ItemEvent) {
	s.logger.Info("work item finished",
		zap.String("item_id", event.ItemID),
		zap.String("document_id", event.DocumentID),
		zap.String("status", string(event.Status)),
		zap.Int("attempt_count", event.AttemptCount),
		zap.Duration("duration", event.Duration),
		zap.Float64("validation_score", event.ValidationScore),
		zap.Bool("needs_review", event.NeedsReview))
}

// NopSink discards events.
type NopSink struct{}

// Emit does nothing.
func (NopSink) Emit(ItemEvent) {}
