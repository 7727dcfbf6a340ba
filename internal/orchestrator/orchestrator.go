// Package orchestrator schedules document processing over a bounded worker
// pool with a priority queue, retry with backoff, per-operation circuit
// breakers, and dead-lettering. Every submitted item reaches a terminal
// state (succeeded, dead_letter, or cancelled) unless shutdown intervenes.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/draftwerk/cvpipe/internal/config"
	"github.com/draftwerk/cvpipe/internal/models"
)

// ProcessResult is what a successful processing run produces.
type ProcessResult struct {
	Record models.CanonicalRecord
	Report models.ValidationReport
}

// ProcessFunc runs the processing chain for one document. A nil error means
// the pipeline ran to completion; a failed validation is reported through
// Report.Passed, not through the error. Implementations must honor ctx
// cancellation between processing steps.
type ProcessFunc func(ctx context.Context, doc models.SourceDocument) (ProcessResult, error)

// ReviewItem carries a quality-failed result to the review channel.
type ReviewItem struct {
	DocumentID string                  `json:"document_id"`
	Record     models.CanonicalRecord  `json:"record"`
	Report     models.ValidationReport `json:"report"`
}

// Stats is a point-in-time summary of the orchestrator's work.
type Stats struct {
	Queued      int                     `json:"queued"`
	InProgress  int                     `json:"in_progress"`
	Retrying    int                     `json:"retrying"`
	Succeeded   int                     `json:"succeeded"`
	DeadLetter  int                     `json:"dead_letter"`
	Cancelled   int                     `json:"cancelled"`
	NeedsReview int                     `json:"needs_review"`
	AvgDuration time.Duration           `json:"avg_duration"`
	SuccessRate float64                 `json:"success_rate"`
	Breakers    map[string]BreakerState `json:"breakers"`
}

// Orchestrator owns the queue, the workers, and all work item state.
type Orchestrator struct {
	cfg      config.OrchestratorConfig
	process  ProcessFunc
	queue    *queue
	breakers *breakerSet
	sink     EventSink
	logger   *zap.Logger
	jitter   func() float64

	review chan ReviewItem

	mu        sync.Mutex
	items     map[string]*models.WorkItem
	cancels   map[string]context.CancelFunc
	cancelReq map[string]bool
	totalDone int
	totalOK   int
	sumDur    time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	retryWG sync.WaitGroup
	started bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets a logger for lifecycle and per-item logging.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithSink sets the terminal-event sink.
func WithSink(s EventSink) Option {
	return func(o *Orchestrator) { o.sink = s }
}

// WithJitter overrides the backoff jitter source. The function must return a
// value in [0,1).
func WithJitter(fn func() float64) Option {
	return func(o *Orchestrator) { o.jitter = fn }
}

// New creates an orchestrator; call Start before submitting work.
func New(cfg config.OrchestratorConfig, process ProcessFunc, opts ...Option) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	reviewBuf := cfg.QueueSize
	if reviewBuf <= 0 {
		reviewBuf = 64
	}
	o := &Orchestrator{
		cfg:     cfg,
		process: process,
		queue:   newQueue(cfg.QueueSize),
		breakers: newBreakerSet(func() *breaker {
			return newBreaker(cfg.BreakerThreshold, cfg.BreakerWindow, cfg.BreakerCooldown, cfg.BreakerTrials)
		}),
		sink:      NopSink{},
		jitter:    rand.Float64,
		review:    make(chan ReviewItem, reviewBuf),
		items:     map[string]*models.WorkItem{},
		cancels:   map[string]context.CancelFunc{},
		cancelReq: map[string]bool{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start launches the worker pool. ctx bounds the orchestrator's lifetime;
// Stop also shuts it down.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return
	}
	o.started = true
	o.ctx, o.cancel = context.WithCancel(ctx)
	o.mu.Unlock()

	for i := 0; i < o.cfg.Workers; i++ {
		o.wg.Add(1)
		go o.worker()
	}
	if o.logger != nil {
		o.logger.Info("orchestrator started", zap.Int("workers", o.cfg.Workers))
	}
}

// Stop shuts down: cancels in-progress work, stops the workers, waits for
// pending retry timers, and closes the review channel.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.started {
		o.mu.Unlock()
		return
	}
	o.started = false
	cancel := o.cancel
	o.mu.Unlock()

	cancel()
	o.queue.close()
	o.wg.Wait()
	o.retryWG.Wait()
	close(o.review)
	if o.logger != nil {
		o.logger.Info("orchestrator stopped")
	}
}

// Submit enqueues a document and returns the work item ID.
func (o *Orchestrator) Submit(doc models.SourceDocument, priority models.Priority) (string, error) {
	item := &models.WorkItem{
		ID:        uuid.New().String(),
		Document:  doc,
		Priority:  priority,
		Status:    models.StatusQueued,
		CreatedAt: time.Now(),
	}
	o.mu.Lock()
	o.items[item.ID] = item
	o.mu.Unlock()

	if err := o.queue.push(item); err != nil {
		o.mu.Lock()
		delete(o.items, item.ID)
		o.mu.Unlock()
		return "", err
	}
	if o.logger != nil {
		o.logger.Debug("work item queued",
			zap.String("id", item.ID),
			zap.String("document_id", doc.ID),
			zap.String("priority", priority.String()))
	}
	return item.ID, nil
}

// Cancel stops the item: removed if still queued, or signalled to abort if in
// progress. Terminal items return ErrAlreadyTerminal.
func (o *Orchestrator) Cancel(id string) error {
	o.mu.Lock()
	item, ok := o.items[id]
	if !ok {
		o.mu.Unlock()
		return ErrNotFound
	}
	if item.Status.Terminal() {
		o.mu.Unlock()
		return ErrAlreadyTerminal
	}
	o.cancelReq[id] = true
	cancel := o.cancels[id]
	o.mu.Unlock()

	if removed := o.queue.remove(id); removed != nil {
		o.finish(item, models.StatusCancelled)
		return nil
	}
	if cancel != nil {
		cancel()
	}
	return nil
}

// Item returns a snapshot of the work item with the given ID.
func (o *Orchestrator) Item(id string) (models.WorkItem, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	item, ok := o.items[id]
	if !ok {
		return models.WorkItem{}, false
	}
	return *item, true
}

// Items returns snapshots of all known work items, newest first.
func (o *Orchestrator) Items() []models.WorkItem {
	o.mu.Lock()
	out := make([]models.WorkItem, 0, len(o.items))
	for _, item := range o.items {
		out = append(out, *item)
	}
	o.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// DeadLetters returns all dead-lettered items with their attempt history.
func (o *Orchestrator) DeadLetters() []models.WorkItem {
	var out []models.WorkItem
	for _, item := range o.Items() {
		if item.Status == models.StatusDeadLetter {
			out = append(out, item)
		}
	}
	return out
}

// Review returns the channel carrying quality-failed results. It is closed
// by Stop.
func (o *Orchestrator) Review() <-chan ReviewItem {
	return o.review
}

// Guard runs fn under the circuit breaker for the named operation. While the
// breaker is open it fails fast with ErrBreakerOpen, a transient error.
func (o *Orchestrator) Guard(op string, fn func() error) error {
	b := o.breakers.get(op)
	if !b.allow() {
		return fmt.Errorf("%s: %w", op, ErrBreakerOpen)
	}
	err := fn()
	b.record(err != nil)
	return err
}

// BreakerStates reports the current state of every operation breaker.
func (o *Orchestrator) BreakerStates() map[string]BreakerState {
	return o.breakers.states()
}

// Stats summarizes queue depth, terminal counts, and throughput.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := Stats{Breakers: o.breakers.states()}
	for _, item := range o.items {
		switch item.Status {
		case models.StatusQueued:
			s.Queued++
		case models.StatusInProgress:
			s.InProgress++
		case models.StatusFailed:
			s.Retrying++
		case models.StatusSucceeded:
			s.Succeeded++
			if item.NeedsReview {
				s.NeedsReview++
			}
		case models.StatusDeadLetter:
			s.DeadLetter++
		case models.StatusCancelled:
			s.Cancelled++
		}
	}
	if o.totalDone > 0 {
		s.AvgDuration = o.sumDur / time.Duration(o.totalDone)
		s.SuccessRate = float64(o.totalOK) / float64(o.totalDone)
	}
	return s
}

func (o *Orchestrator) worker() {
	defer o.wg.Done()
	for {
		item, ok := o.queue.pop()
		if !ok {
			return
		}
		o.runItem(item)
	}
}

func (o *Orchestrator) runItem(item *models.WorkItem) {
	o.mu.Lock()
	if o.cancelReq[item.ID] {
		o.mu.Unlock()
		o.finish(item, models.StatusCancelled)
		return
	}
	item.Status = models.StatusInProgress
	item.StartedAt = time.Now()
	item.AttemptCount++
	attempt := item.AttemptCount
	ctx, cancel := context.WithCancel(o.ctx)
	o.cancels[item.ID] = cancel
	doc := item.Document
	o.mu.Unlock()

	runCtx := ctx
	if o.cfg.ItemTimeout > 0 {
		var timeoutCancel context.CancelFunc
		runCtx, timeoutCancel = context.WithTimeout(ctx, o.cfg.ItemTimeout)
		defer timeoutCancel()
	}
	result, err := o.safeProcess(runCtx, doc)
	cancel()

	o.mu.Lock()
	delete(o.cancels, item.ID)
	cancelled := o.cancelReq[item.ID]
	o.mu.Unlock()

	switch {
	case cancelled:
		o.finish(item, models.StatusCancelled)
	case err == nil:
		o.mu.Lock()
		item.NeedsReview = !result.Report.Passed
		item.Score = result.Report.OverallScore
		o.mu.Unlock()
		o.finish(item, models.StatusSucceeded)
		if !result.Report.Passed {
			o.emitReview(item.ID, doc.ID, result)
		}
	case IsPermanent(err):
		o.recordError(item, attempt, err, true)
		o.finish(item, models.StatusDeadLetter)
	default:
		o.recordError(item, attempt, err, false)
		if attempt >= o.cfg.MaxAttempts {
			o.finish(item, models.StatusDeadLetter)
		} else {
			o.scheduleRetry(item, attempt)
		}
	}
}

// safeProcess shields workers from a panicking processing chain; a panic is
// a transient failure like any other.
func (o *Orchestrator) safeProcess(ctx context.Context, doc models.SourceDocument) (result ProcessResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processing panicked: %v", r)
		}
	}()
	return o.process(ctx, doc)
}

func (o *Orchestrator) recordError(item *models.WorkItem, attempt int, err error, permanent bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	item.LastError = err.Error()
	item.Errors = append(item.Errors, models.AttemptError{
		Attempt:   attempt,
		Message:   err.Error(),
		Permanent: permanent,
		At:        time.Now(),
	})
	if o.logger != nil {
		o.logger.Warn("work item attempt failed",
			zap.String("id", item.ID),
			zap.String("document_id", item.Document.ID),
			zap.Int("attempt", attempt),
			zap.Bool("permanent", permanent),
			zap.Error(err))
	}
}

func (o *Orchestrator) scheduleRetry(item *models.WorkItem, attempt int) {
	delay := backoffDelay(o.cfg.BaseDelay, o.cfg.MaxDelay, attempt, o.jitter)
	o.mu.Lock()
	item.Status = models.StatusFailed
	o.mu.Unlock()
	if o.logger != nil {
		o.logger.Debug("work item retry scheduled",
			zap.String("id", item.ID),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay))
	}

	o.retryWG.Add(1)
	go func() {
		defer o.retryWG.Done()
		select {
		case <-time.After(delay):
		case <-o.ctx.Done():
			return
		}
		o.mu.Lock()
		cancelled := o.cancelReq[item.ID]
		if !cancelled {
			item.Status = models.StatusQueued
		}
		o.mu.Unlock()
		if cancelled {
			o.finish(item, models.StatusCancelled)
			return
		}
		if err := o.queue.push(item); err != nil {
			if errors.Is(err, ErrStopped) {
				// Shutdown race; the item keeps its queued state like
				// any other undrained item.
				return
			}
			o.mu.Lock()
			item.LastError = err.Error()
			item.Errors = append(item.Errors, models.AttemptError{
				Attempt:   attempt,
				Message:   fmt.Sprintf("requeue: %v", err),
				Permanent: true,
				At:        time.Now(),
			})
			o.mu.Unlock()
			if o.logger != nil {
				o.logger.Warn("requeue failed, dead-lettering",
					zap.String("id", item.ID),
					zap.String("document_id", item.Document.ID),
					zap.Error(err))
			}
			o.finish(item, models.StatusDeadLetter)
		}
	}()
}

// finish moves the item to a terminal state and emits its event.
func (o *Orchestrator) finish(item *models.WorkItem, status models.WorkStatus) {
	o.mu.Lock()
	if item.Status.Terminal() {
		o.mu.Unlock()
		return
	}
	item.Status = status
	item.FinishedAt = time.Now()
	o.totalDone++
	if status == models.StatusSucceeded {
		o.totalOK++
	}
	o.sumDur += item.FinishedAt.Sub(item.CreatedAt)
	event := ItemEvent{
		ItemID:          item.ID,
		DocumentID:      item.Document.ID,
		Status:          status,
		AttemptCount:    item.AttemptCount,
		Duration:        item.FinishedAt.Sub(item.CreatedAt),
		ValidationScore: item.Score,
		NeedsReview:     item.NeedsReview,
	}
	o.mu.Unlock()

	o.sink.Emit(event)
	if o.logger != nil {
		o.logger.Info("work item terminal",
			zap.String("id", item.ID),
			zap.String("document_id", event.DocumentID),
			zap.String("status", string(status)),
			zap.Int("attempts", event.AttemptCount))
	}
}

func (o *Orchestrator) emitReview(itemID, docID string, result ProcessResult) {
	select {
	case o.review <- ReviewItem{DocumentID: docID, Record: result.Record, Report: result.Report}:
	default:
		if o.logger != nil {
			o.logger.Warn("review channel full, dropping item",
				zap.String("id", itemID),
				zap.String("document_id", docID))
		}
	}
}
