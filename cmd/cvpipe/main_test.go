package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/draftwerk/cvpipe/internal/config"
	"github.com/draftwerk/cvpipe/internal/models"
)

func TestIntakeExtensions(t *testing.T) {
	cfg := &config.Config{}
	exts := intakeExtensions(cfg)
	if len(exts) == 0 {
		t.Fatal("expected default extensions")
	}
	found := false
	for _, e := range exts {
		if e == ".pdf" {
			found = true
		}
	}
	if !found {
		t.Errorf("defaults should include .pdf: %v", exts)
	}

	cfg.Intake.Extensions = []string{".pdf"}
	exts = intakeExtensions(cfg)
	if len(exts) != 1 || exts[0] != ".pdf" {
		t.Errorf("configured extensions should win: %v", exts)
	}
}

func TestMatchesExtension(t *testing.T) {
	tests := []struct {
		path string
		exts []string
		want bool
	}{
		{"/intake/cv.pdf", []string{".pdf", ".docx"}, true},
		{"/intake/cv.PDF", []string{".pdf"}, true},
		{"/intake/cv.xls", []string{".pdf"}, false},
		{"/intake/cv", []string{".pdf"}, false},
	}
	for _, tt := range tests {
		got := matchesExtension(tt.path, tt.exts)
		if got != tt.want {
			t.Errorf("matchesExtension(%q, %v) = %v, want %v", tt.path, tt.exts, got, tt.want)
		}
	}
}

func TestCollectSources(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"b.txt", "a.txt", "skip.xyz"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(sub, "c.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	paths, err := collectSources(dir, []string{".txt"})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 3 {
		t.Fatalf("paths = %v, want 3 entries", paths)
	}
	// Sorted, so a.txt first; skip.xyz filtered out.
	if !strings.HasSuffix(paths[0], "a.txt") {
		t.Errorf("first path = %s, want a.txt", paths[0])
	}
	for _, p := range paths {
		if strings.HasSuffix(p, "skip.xyz") {
			t.Errorf("skip.xyz should be filtered out: %v", paths)
		}
	}
}

func TestCollectSources_singleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cv.xyz")
	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	// A file named directly bypasses the extension filter.
	paths, err := collectSources(path, []string{".pdf"})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 || paths[0] != path {
		t.Errorf("paths = %v, want just %s", paths, path)
	}
}

func TestReportText(t *testing.T) {
	record := models.CanonicalRecord{
		Identity: models.Identity{Name: "Jan Jansen"},
		Positions: []models.Position{
			{Organization: "Acme BV"},
		},
		Language: models.LanguageDutch,
	}
	report := models.ValidationReport{
		OverallScore: 0.85,
		Passed:       true,
		Quality:      models.QualityGood,
		Findings: []models.Finding{
			{Severity: models.SeverityWarning, Rule: "education_present", Message: "no education entries found"},
		},
	}

	out := reportText("cv.pdf", record, report)
	for _, want := range []string{"cv.pdf", "Jan Jansen", "0.85", "good", "education_present"} {
		if !strings.Contains(out, want) {
			t.Errorf("report text missing %q:\n%s", want, out)
		}
	}
}

func TestReportText_emptyNameShowsDash(t *testing.T) {
	out := reportText("cv.pdf", models.CanonicalRecord{}, models.ValidationReport{})
	if !strings.Contains(out, "name:      -") {
		t.Errorf("empty name should render as dash:\n%s", out)
	}
}

func TestLoadConfig_missingFile(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
