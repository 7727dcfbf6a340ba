package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/draftwerk/cvpipe/internal/config"
	"github.com/draftwerk/cvpipe/internal/models"
	"github.com/draftwerk/cvpipe/internal/orchestrator"
	"github.com/draftwerk/cvpipe/internal/storage"
)

type mockIntakeService struct {
	dirs []string
}

func (m *mockIntakeService) Directories() []string {
	return append([]string(nil), m.dirs...)
}

func (m *mockIntakeService) AddDirectory(path string, _ bool) error {
	for _, d := range m.dirs {
		if d == path {
			return nil
		}
	}
	m.dirs = append(m.dirs, path)
	return nil
}

func (m *mockIntakeService) RemoveDirectory(path string) error {
	for i, d := range m.dirs {
		if d == path {
			m.dirs = append(m.dirs[:i], m.dirs[i+1:]...)
			return nil
		}
	}
	return nil
}

func passingProcess(_ context.Context, doc models.SourceDocument) (orchestrator.ProcessResult, error) {
	return orchestrator.ProcessResult{
		Record: models.CanonicalRecord{
			DocumentID: doc.ID,
			Identity:   models.Identity{Name: "Jan Jansen"},
		},
		Report: models.ValidationReport{
			OverallScore: 0.9,
			Passed:       true,
			Quality:      models.QualityExcellent,
		},
	}, nil
}

func newTestServer(t *testing.T, opts ...ServerOption) (*Server, *orchestrator.Orchestrator, *storage.SQLiteStorage) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(dir + "/cvpipe.db")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{
		Server:  config.ServerConfig{Port: 8080},
		Storage: config.StorageConfig{DatabasePath: dir + "/cvpipe.db", OutputDir: dir + "/out"},
		Orchestrator: config.OrchestratorConfig{
			Workers:     2,
			QueueSize:   16,
			MaxAttempts: 1,
		},
	}
	orch := orchestrator.New(cfg.Orchestrator, passingProcess)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	srv := NewServer(orch, store, cfg, zap.NewNop(), opts...)
	return srv, orch, store
}

// waitItem polls until the item reaches a terminal state.
func waitItem(t *testing.T, orch *orchestrator.Orchestrator, id string) models.WorkItem {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if item, ok := orch.Item(id); ok && item.Status.Terminal() {
			return item
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("item %s did not reach a terminal state", id)
	return models.WorkItem{}
}

func TestHandleSubmitDocument(t *testing.T) {
	srv, orch, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"raw_text": "Jan Jansen\n\nWerkervaring", "priority": "high"})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/documents", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.handleSubmitDocument(w, r)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		ItemID     string `json:"item_id"`
		DocumentID string `json:"document_id"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.ItemID == "" || out.DocumentID == "" {
		t.Errorf("missing ids in response: %+v", out)
	}

	item := waitItem(t, orch, out.ItemID)
	if item.Status != models.StatusSucceeded {
		t.Errorf("item status = %s, want succeeded", item.Status)
	}
	if item.Priority != models.PriorityHigh {
		t.Errorf("item priority = %s, want high", item.Priority)
	}
}

func TestHandleSubmitDocument_MissingInput(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"id": "doc-1"})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/documents", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleSubmitDocument(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleSubmitDocument_PathDerivedID(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"source_path": "/intake/cv.pdf"})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/documents", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleSubmitDocument(w, r)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		DocumentID string `json:"document_id"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.DocumentID) < 4 || out.DocumentID[:4] != "doc:" {
		t.Errorf("path submission should derive a stable doc id, got %q", out.DocumentID)
	}
}

func TestHandleGetItem_NotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/items/unknown", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "unknown")
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()
	srv.handleGetItem(w, r)
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", w.Code)
	}
}

func TestHandleGetRecord(t *testing.T) {
	srv, _, store := newTestServer(t)
	ctx := context.Background()

	record := &models.CanonicalRecord{DocumentID: "doc-1", Identity: models.Identity{Name: "Jan Jansen"}}
	report := &models.ValidationReport{OverallScore: 0.9, Passed: true, Quality: models.QualityExcellent}
	if err := store.SaveRecord(ctx, record, report); err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/v1/records/doc-1", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "doc-1")
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()
	srv.handleGetRecord(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		Record models.CanonicalRecord  `json:"record"`
		Report models.ValidationReport `json:"report"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Record.Identity.Name != "Jan Jansen" {
		t.Errorf("record name = %q", out.Record.Identity.Name)
	}
	if !out.Report.Passed {
		t.Error("report not passed")
	}
}

func TestHandleStats(t *testing.T) {
	srv, _, store := newTestServer(t)
	ctx := context.Background()

	if err := store.SaveDocument(ctx, &models.SourceDocument{ID: "doc-1", RawText: "text"}); err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	w := httptest.NewRecorder()
	srv.handleStats(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		Documents      int64  `json:"documents"`
		Records        int64  `json:"records"`
		DiskUsageBytes *int64 `json:"disk_usage_bytes"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Documents != 1 {
		t.Errorf("documents: got %d, want 1", out.Documents)
	}
	if out.DiskUsageBytes == nil || *out.DiskUsageBytes < 1 {
		t.Errorf("disk_usage_bytes missing or zero: %v", out.DiskUsageBytes)
	}
}

func TestHandleReviews(t *testing.T) {
	srv, _, store := newTestServer(t)
	ctx := context.Background()

	entry := &storage.ReviewEntry{
		DocumentID: "doc-1",
		Record:     models.CanonicalRecord{DocumentID: "doc-1"},
		Report:     models.ValidationReport{OverallScore: 0.4, Quality: models.QualityPoor},
	}
	if err := store.SaveReview(ctx, entry); err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/v1/reviews", nil)
	w := httptest.NewRecorder()
	srv.handleListReviews(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		Reviews []storage.ReviewEntry `json:"reviews"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Reviews) != 1 {
		t.Fatalf("reviews: got %d, want 1", len(out.Reviews))
	}

	r = httptest.NewRequest(http.MethodPost, "/api/v1/reviews/1/resolve", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "1")
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	w = httptest.NewRecorder()
	srv.handleResolveReview(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("resolve status: got %d, body: %s", w.Code, w.Body.String())
	}

	open, err := store.ListReviews(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 0 {
		t.Errorf("open reviews after resolve: %d", len(open))
	}
}

func TestHandleIntakeDirectoriesList(t *testing.T) {
	mock := &mockIntakeService{dirs: []string{"/data/intake"}}
	srv, _, _ := newTestServer(t, WithIntake(mock))

	r := httptest.NewRequest(http.MethodGet, "/api/v1/intake/directories", nil)
	w := httptest.NewRecorder()
	srv.handleIntakeDirectoriesList(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
	var out struct {
		Directories []string `json:"directories"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Directories) != 1 || out.Directories[0] != "/data/intake" {
		t.Errorf("directories: got %v", out.Directories)
	}
}

func TestHandleIntakeDirectoriesList_NotEnabled(t *testing.T) {
	srv, _, _ := newTestServer(t)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/intake/directories", nil)
	w := httptest.NewRecorder()
	srv.handleIntakeDirectoriesList(w, r)
	if w.Code != http.StatusNotImplemented {
		t.Errorf("status: got %d, want 501", w.Code)
	}
}

func TestHandleIntakeDirectoriesAdd(t *testing.T) {
	dir := t.TempDir()
	mock := &mockIntakeService{}
	srv, _, _ := newTestServer(t, WithIntake(mock))

	body, _ := json.Marshal(map[string]string{"path": dir})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/intake/directories", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.handleIntakeDirectoriesAdd(w, r)
	if w.Code != http.StatusCreated {
		t.Errorf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	if len(mock.Directories()) != 1 {
		t.Errorf("expected 1 directory, got %v", mock.Directories())
	}
}

func TestHandleIntakeDirectoriesAdd_InvalidPath(t *testing.T) {
	dir := t.TempDir()
	mock := &mockIntakeService{}
	srv, _, _ := newTestServer(t, WithIntake(mock))

	body, _ := json.Marshal(map[string]string{"path": dir + "/nonexistent"})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/intake/directories", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleIntakeDirectoriesAdd(w, r)
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleIntakeDirectoriesRemove(t *testing.T) {
	dir := t.TempDir()
	mock := &mockIntakeService{dirs: []string{dir}}
	srv, _, _ := newTestServer(t, WithIntake(mock))

	r := httptest.NewRequest(http.MethodDelete, "/api/v1/intake/directories?path="+dir, nil)
	w := httptest.NewRecorder()
	srv.handleIntakeDirectoriesRemove(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
	if len(mock.Directories()) != 0 {
		t.Errorf("expected 0 directories, got %v", mock.Directories())
	}
}

func TestDeadLetterSink_PersistsDeadLetters(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(dir + "/cvpipe.db")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	sink := NewDeadLetterSink(store, zap.NewNop())
	orch := orchestrator.New(
		config.OrchestratorConfig{Workers: 1, QueueSize: 4, MaxAttempts: 1},
		func(_ context.Context, _ models.SourceDocument) (orchestrator.ProcessResult, error) {
			return orchestrator.ProcessResult{}, orchestrator.Permanent(context.DeadlineExceeded)
		},
		orchestrator.WithSink(sink),
	)
	sink.Bind(orch.Item)
	orch.Start(context.Background())
	defer orch.Stop()

	id, err := orch.Submit(models.SourceDocument{ID: "doc-1", RawText: "x"}, models.PriorityNormal)
	if err != nil {
		t.Fatal(err)
	}
	item := waitItem(t, orch, id)
	if item.Status != models.StatusDeadLetter {
		t.Fatalf("status = %s, want dead_letter", item.Status)
	}

	items, err := store.ListDeadLetters(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Document.ID != "doc-1" {
		t.Errorf("persisted dead letters = %v", items)
	}
}
