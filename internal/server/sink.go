package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/draftwerk/cvpipe/internal/models"
	"github.com/draftwerk/cvpipe/internal/orchestrator"
	"github.com/draftwerk/cvpipe/internal/storage"
)

// DeadLetterSink persists dead-lettered work items so their attempt history
// survives a restart. Bind it to the orchestrator after construction; the
// sink needs the orchestrator's item lookup and the orchestrator needs the
// sink at creation time.
type DeadLetterSink struct {
	store  storage.Storage
	logger *zap.Logger

	mu    sync.Mutex
	fetch func(id string) (models.WorkItem, bool)
}

// NewDeadLetterSink creates a sink writing dead letters to store.
func NewDeadLetterSink(store storage.Storage, logger *zap.Logger) *DeadLetterSink {
	return &DeadLetterSink{store: store, logger: logger}
}

// Bind installs the work item lookup, typically (*orchestrator.Orchestrator).Item.
func (s *DeadLetterSink) Bind(fetch func(id string) (models.WorkItem, bool)) {
	s.mu.Lock()
	s.fetch = fetch
	s.mu.Unlock()
}

// Emit persists the item when it dead-letters; other terminal events pass through.
func (s *DeadLetterSink) Emit(event orchestrator.ItemEvent) {
	if event.Status != models.StatusDeadLetter {
		return
	}
	s.mu.Lock()
	fetch := s.fetch
	s.mu.Unlock()
	if fetch == nil {
		return
	}
	item, ok := fetch(event.ItemID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.SaveDeadLetter(ctx, &item); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to persist dead letter",
				zap.String("item_id", item.ID),
				zap.String("document_id", item.Document.ID),
				zap.Error(err))
		}
		return
	}
	if s.logger != nil {
		s.logger.Info("dead letter saved",
			zap.String("item_id", item.ID),
			zap.String("document_id", item.Document.ID),
			zap.Int("attempts", item.AttemptCount))
	}
}
