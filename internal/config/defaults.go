package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/cvpipe/data/cvpipe.db"
	}
	if cfg.Storage.OutputDir == "" {
		cfg.Storage.OutputDir = "/usr/local/var/cvpipe/output"
	}
	if cfg.Pipeline.MinDocumentChars == 0 {
		cfg.Pipeline.MinDocumentChars = 100
	}
	if cfg.Pipeline.MinTotalTextChars == 0 {
		cfg.Pipeline.MinTotalTextChars = 300
	}
	if cfg.Pipeline.ValidationThreshold == 0 {
		cfg.Pipeline.ValidationThreshold = 0.7
	}
	if cfg.Orchestrator.Workers == 0 {
		cfg.Orchestrator.Workers = 4
	}
	if cfg.Orchestrator.QueueSize == 0 {
		cfg.Orchestrator.QueueSize = 1000
	}
	if cfg.Orchestrator.MaxAttempts == 0 {
		cfg.Orchestrator.MaxAttempts = 3
	}
	if cfg.Orchestrator.BaseDelay == 0 {
		cfg.Orchestrator.BaseDelay = 500 * time.Millisecond
	}
	if cfg.Orchestrator.MaxDelay == 0 {
		cfg.Orchestrator.MaxDelay = 30 * time.Second
	}
	if cfg.Orchestrator.ItemTimeout == 0 {
		cfg.Orchestrator.ItemTimeout = 2 * time.Minute
	}
	if cfg.Orchestrator.BreakerThreshold == 0 {
		cfg.Orchestrator.BreakerThreshold = 0.5
	}
	if cfg.Orchestrator.BreakerWindow == 0 {
		cfg.Orchestrator.BreakerWindow = 20
	}
	if cfg.Orchestrator.BreakerCooldown == 0 {
		cfg.Orchestrator.BreakerCooldown = 30 * time.Second
	}
	if cfg.Orchestrator.BreakerTrials == 0 {
		cfg.Orchestrator.BreakerTrials = 3
	}
	if cfg.Intake.Extensions == nil {
		cfg.Intake.Extensions = []string{".txt", ".md", ".pdf", ".docx", ".xlsx"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Intake.Directories) > 0 && cfg.Intake.Recursive == nil {
		t := true
		cfg.Intake.Recursive = &t
	}
}
