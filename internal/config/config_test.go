package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: 0.0.0.0
  port: 9090
storage:
  database_path: ./data/cvpipe.db
pipeline:
  validation_threshold: 0.8
orchestrator:
  workers: 8
  max_attempts: 5
intake:
  directories:
    - ./inbox
  extensions: [".pdf", ".docx"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !cfg.Debug {
		t.Error("debug not set")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Pipeline.ValidationThreshold != 0.8 {
		t.Errorf("threshold = %v, want 0.8", cfg.Pipeline.ValidationThreshold)
	}
	if cfg.Orchestrator.Workers != 8 {
		t.Errorf("workers = %d, want 8", cfg.Orchestrator.Workers)
	}
	if cfg.Orchestrator.MaxAttempts != 5 {
		t.Errorf("max attempts = %d, want 5", cfg.Orchestrator.MaxAttempts)
	}
	want := filepath.Join(dir, "data", "cvpipe.db")
	if cfg.Storage.DatabasePath != want {
		t.Errorf("database path = %q, want %q", cfg.Storage.DatabasePath, want)
	}
	wantInbox := filepath.Join(dir, "inbox")
	if len(cfg.Intake.Directories) != 1 || cfg.Intake.Directories[0] != wantInbox {
		t.Errorf("intake dirs = %v, want [%s]", cfg.Intake.Directories, wantInbox)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)

	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("server defaults = %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Pipeline.MinDocumentChars != 100 {
		t.Errorf("min document chars = %d", cfg.Pipeline.MinDocumentChars)
	}
	if cfg.Pipeline.ValidationThreshold != 0.7 {
		t.Errorf("validation threshold = %v", cfg.Pipeline.ValidationThreshold)
	}
	if cfg.Orchestrator.Workers != 4 || cfg.Orchestrator.MaxAttempts != 3 {
		t.Errorf("orchestrator defaults = %+v", cfg.Orchestrator)
	}
	if cfg.Orchestrator.BaseDelay != 500*time.Millisecond {
		t.Errorf("base delay = %v", cfg.Orchestrator.BaseDelay)
	}
	if cfg.Orchestrator.BreakerWindow != 20 {
		t.Errorf("breaker window = %d", cfg.Orchestrator.BreakerWindow)
	}
	if len(cfg.Intake.Extensions) == 0 {
		t.Error("intake extensions default missing")
	}
}

func TestRecursiveOrDefault(t *testing.T) {
	var ic IntakeConfig
	if !ic.RecursiveOrDefault() {
		t.Error("unset recursive should default to true")
	}
	f := false
	ic.Recursive = &f
	if ic.RecursiveOrDefault() {
		t.Error("explicit false should stay false")
	}
}
