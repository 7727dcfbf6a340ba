// Package server provides the HTTP API for cvpipe.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/draftwerk/cvpipe/internal/config"
	"github.com/draftwerk/cvpipe/internal/orchestrator"
	"github.com/draftwerk/cvpipe/internal/storage"
)

// IntakeService manages intake drop directories at runtime. Satisfied by
// watcher.Watcher.
type IntakeService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the cvpipe API.
type Server struct {
	orch    *orchestrator.Orchestrator
	storage storage.Storage
	cfg     *config.Config
	logger  *zap.Logger
	server  *http.Server

	intake     IntakeService
	configPath string
	cfgMu      sync.Mutex

	reviewWG sync.WaitGroup
}

// ServerOption configures optional server dependencies.
type ServerOption func(*Server)

// WithIntake enables the intake directory management endpoints.
func WithIntake(svc IntakeService) ServerOption {
	return func(s *Server) { s.intake = svc }
}

// WithConfigPath enables persisting intake directory changes back to the
// config file.
func WithConfigPath(path string) ServerOption {
	return func(s *Server) { s.configPath = path }
}

// NewServer creates a server with the given dependencies.
func NewServer(
	orch *orchestrator.Orchestrator,
	store storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...ServerOption,
) *Server {
	s := &Server{
		orch:    orch,
		storage: store,
		cfg:     cfg,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start starts the HTTP server and blocks until it stops. It also drains the
// orchestrator's review channel into storage until the channel closes.
func (s *Server) Start() error {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/documents", s.handleSubmitDocument)
	r.Get("/api/v1/documents", s.handleListDocuments)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)
	r.Delete("/api/v1/documents/{id}", s.handleDeleteDocument)
	r.Get("/api/v1/records/{id}", s.handleGetRecord)
	r.Get("/api/v1/items", s.handleListItems)
	r.Get("/api/v1/items/{id}", s.handleGetItem)
	r.Delete("/api/v1/items/{id}", s.handleCancelItem)
	r.Get("/api/v1/deadletters", s.handleListDeadLetters)
	r.Get("/api/v1/reviews", s.handleListReviews)
	r.Post("/api/v1/reviews/{id}/resolve", s.handleResolveReview)
	r.Get("/api/v1/stats", s.handleStats)
	r.Get("/api/v1/intake/directories", s.handleIntakeDirectoriesList)
	r.Post("/api/v1/intake/directories", s.handleIntakeDirectoriesAdd)
	r.Delete("/api/v1/intake/directories", s.handleIntakeDirectoriesRemove)
	r.Get("/health", s.handleHealth)

	s.reviewWG.Add(1)
	go s.drainReviews()

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server. The review drain exits when the
// orchestrator closes its review channel.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// drainReviews persists quality-failed results for later human correction.
func (s *Server) drainReviews() {
	defer s.reviewWG.Done()
	for item := range s.orch.Review() {
		entry := &storage.ReviewEntry{
			DocumentID: item.DocumentID,
			Record:     item.Record,
			Report:     item.Report,
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := s.storage.SaveReview(ctx, entry)
		cancel()
		if err != nil {
			s.logger.Error("failed to persist review entry",
				zap.String("document_id", item.DocumentID), zap.Error(err))
			continue
		}
		s.logger.Info("review entry saved",
			zap.Int64("review_id", entry.ID),
			zap.String("document_id", item.DocumentID),
			zap.Float64("score", item.Report.OverallScore))
	}
}

// WaitReviews blocks until the review drain has finished. Call after the
// orchestrator has stopped.
func (s *Server) WaitReviews() {
	s.reviewWG.Wait()
}
