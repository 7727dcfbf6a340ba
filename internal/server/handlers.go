package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/draftwerk/cvpipe/internal/config"
	"github.com/draftwerk/cvpipe/internal/fileid"
	"github.com/draftwerk/cvpipe/internal/models"
	"github.com/draftwerk/cvpipe/internal/orchestrator"
	"github.com/draftwerk/cvpipe/internal/storage"
)

type submitRequest struct {
	ID         string `json:"id,omitempty"`
	RawText    string `json:"raw_text,omitempty"`
	SourcePath string `json:"source_path,omitempty"`
	SourceType string `json:"source_type,omitempty"`
	Priority   string `json:"priority,omitempty"`
}

func (s *Server) handleSubmitDocument(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RawText == "" && req.SourcePath == "" {
		s.respondError(w, http.StatusBadRequest, "raw_text or source_path is required")
		return
	}
	if req.SourcePath != "" {
		abs, err := filepath.Abs(req.SourcePath)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid source_path")
			return
		}
		req.SourcePath = abs
	}
	docID := req.ID
	if docID == "" {
		if req.SourcePath != "" {
			docID = fileid.DocID(req.SourcePath)
		} else {
			docID = uuid.New().String()
		}
	}

	doc := models.SourceDocument{
		ID:         docID,
		RawText:    req.RawText,
		SourcePath: req.SourcePath,
		SourceType: req.SourceType,
	}
	priority := models.ParsePriority(req.Priority)
	s.logger.Debug("submit document request",
		zap.String("document_id", docID),
		zap.String("priority", priority.String()))

	itemID, err := s.orch.Submit(doc, priority)
	if err != nil {
		if errors.Is(err, orchestrator.ErrQueueFull) {
			s.respondError(w, http.StatusTooManyRequests, "queue is full")
			return
		}
		s.logger.Error("submit failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusAccepted, map[string]string{
		"item_id":     itemID,
		"document_id": docID,
		"status":      string(models.StatusQueued),
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 50)
	docs, err := s.storage.ListDocuments(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []*models.SourceDocument{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if err := s.storage.DeleteDocument(r.Context(), id); err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	record, report, err := s.storage.GetRecord(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "record not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"record": record,
		"report": report,
	})
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items := s.orch.Items()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, ok := s.orch.Item(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "work item not found")
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleCancelItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("cancel item request", zap.String("id", id))
	err := s.orch.Cancel(id)
	switch {
	case errors.Is(err, orchestrator.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "work item not found")
	case errors.Is(err, orchestrator.ErrAlreadyTerminal):
		s.respondError(w, http.StatusConflict, "work item already finished")
	case err != nil:
		s.logger.Error("cancel failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	default:
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
	}
}

func (s *Server) handleListDeadLetters(w http.ResponseWriter, r *http.Request) {
	items, err := s.storage.ListDeadLetters(r.Context())
	if err != nil {
		s.logger.Error("list dead letters failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []*models.WorkItem{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"dead_letters": items})
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	includeResolved := r.URL.Query().Get("resolved") == "true"
	entries, err := s.storage.ListReviews(r.Context(), includeResolved)
	if err != nil {
		s.logger.Error("list reviews failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []*storage.ReviewEntry{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"reviews": entries})
}

func (s *Server) handleResolveReview(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid review id")
		return
	}
	if err := s.storage.ResolveReview(r.Context(), id); err != nil {
		s.respondError(w, http.StatusNotFound, "review not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("stats: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	recordCount, err := s.storage.CountRecords(ctx)
	if err != nil {
		s.logger.Error("stats: count records failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]interface{}{
		"documents":    docCount,
		"records":      recordCount,
		"orchestrator": s.orch.Stats(),
	}

	configInfo := map[string]interface{}{
		"workers":              s.cfg.Orchestrator.Workers,
		"max_attempts":         s.cfg.Orchestrator.MaxAttempts,
		"validation_threshold": s.cfg.Pipeline.ValidationThreshold,
		"database_path":        s.cfg.Storage.DatabasePath,
		"output_dir":           s.cfg.Storage.OutputDir,
	}
	diskBytes, err := storage.DiskUsageBytes(
		s.cfg.Storage.DatabasePath,
		s.cfg.Storage.OutputDir,
	)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIntakeDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.intake == nil {
		s.respondError(w, http.StatusNotImplemented, "intake not enabled")
		return
	}
	dirs := s.intake.Directories()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": dirs})
}

type intakeAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleIntakeDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.intake == nil {
		s.respondError(w, http.StatusNotImplemented, "intake not enabled")
		return
	}
	var req intakeAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("intake add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.intake.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("intake add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistIntakeConfig()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleIntakeDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.intake == nil {
		s.respondError(w, http.StatusNotImplemented, "intake not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("intake remove directory request", zap.String("path", abs))
	if err := s.intake.RemoveDirectory(abs); err != nil {
		s.logger.Error("intake remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistIntakeConfig()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistIntakeConfig() {
	if s.configPath == "" {
		return
	}
	s.cfgMu.Lock()
	s.cfg.Intake.Directories = s.intake.Directories()
	err := config.Save(s.configPath, s.cfg)
	s.cfgMu.Unlock()
	if err != nil {
		s.logger.Warn("failed to persist intake config", zap.Error(err))
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
