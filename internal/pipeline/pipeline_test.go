package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/draftwerk/cvpipe/internal/mapper"
	"github.com/draftwerk/cvpipe/internal/models"
	"github.com/draftwerk/cvpipe/internal/orchestrator"
	"github.com/draftwerk/cvpipe/internal/render"
	"github.com/draftwerk/cvpipe/internal/segment"
	"github.com/draftwerk/cvpipe/internal/validate"
)

const sampleCV = `Jan de Vries
Amsterdam, 1985

Profiel
Ervaren projectmanager met ruime ervaring in complexe infrastructuurprojecten.

Werkervaring
2020 - heden  Acme BV, Projectmanager
Leiding over een team van acht engineers.
2015 - 2019  Globex, Consultant
Adviestrajecten voor de publieke sector.

Opleiding
2003 - 2007  TU Delft, Informatica

Vaardigheden
Projectmanagement, Scrum, Prince2
`

func newTestPipeline(opts ...Option) *Pipeline {
	return New(
		segment.NewSegmenter(segment.DefaultDictionary(), 100),
		mapper.NewMapper(nil),
		validate.NewValidator(0.7, 100),
		opts...,
	)
}

func TestProcessFullChain(t *testing.T) {
	p := newTestPipeline()
	doc := models.SourceDocument{ID: "doc-1", RawText: sampleCV}

	result, err := p.Process(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Report.Passed {
		t.Errorf("Passed = false, score %v, findings %v", result.Report.OverallScore, result.Report.Findings)
	}
	if result.Record.Identity.Name != "Jan de Vries" {
		t.Errorf("Name = %q", result.Record.Identity.Name)
	}
	if len(result.Record.Positions) != 2 {
		t.Errorf("positions = %d, want 2", len(result.Record.Positions))
	}
	if result.Record.Language != models.LanguageDutch {
		t.Errorf("language = %s, want dutch", result.Record.Language)
	}
}

func TestProcessExtractsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cv.txt")
	if err := os.WriteFile(path, []byte(sampleCV), 0o644); err != nil {
		t.Fatal(err)
	}

	p := newTestPipeline()
	result, err := p.Process(context.Background(), models.SourceDocument{ID: "doc-1", SourcePath: path})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Report.Passed {
		t.Errorf("Passed = false, findings %v", result.Report.Findings)
	}
}

func TestProcessMissingFileIsPermanent(t *testing.T) {
	p := newTestPipeline()
	_, err := p.Process(context.Background(), models.SourceDocument{ID: "doc-1", SourcePath: "/nonexistent/cv.pdf"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !orchestrator.IsPermanent(err) {
		t.Errorf("missing file should be permanent, got %v", err)
	}
}

func TestProcessNoTextIsPermanentWithoutOCR(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(path, []byte("   \n"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := newTestPipeline()
	_, err := p.Process(context.Background(), models.SourceDocument{ID: "doc-1", SourcePath: path})
	if !orchestrator.IsPermanent(err) {
		t.Errorf("no-text without OCR should be permanent, got %v", err)
	}
}

func TestProcessOCRFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.txt")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}

	var ocrCalled bool
	p := newTestPipeline(WithOCR(func(_ context.Context, path string) (string, error) {
		ocrCalled = true
		return sampleCV, nil
	}))

	result, err := p.Process(context.Background(), models.SourceDocument{ID: "doc-1", SourcePath: path})
	if err != nil {
		t.Fatal(err)
	}
	if !ocrCalled {
		t.Error("OCR fallback not invoked")
	}
	if !result.Report.Passed {
		t.Errorf("Passed = false after OCR fallback, findings %v", result.Report.Findings)
	}
}

func TestProcessCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline()
	_, err := p.Process(ctx, models.SourceDocument{ID: "doc-1", RawText: sampleCV})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestProcessRendersPassedRecord(t *testing.T) {
	outDir := t.TempDir()
	p := newTestPipeline(WithRenderer(render.NewRenderer(), outDir))

	_, err := p.Process(context.Background(), models.SourceDocument{ID: "doc-1", RawText: sampleCV})
	if err != nil {
		t.Fatal(err)
	}

	out, err := os.ReadFile(filepath.Join(outDir, "doc-1.txt"))
	if err != nil {
		t.Fatalf("rendered file not written: %v", err)
	}
	if len(out) == 0 {
		t.Error("rendered file is empty")
	}
}

// recordingGuard notes which operations ran through the breaker guard.
type recordingGuard struct {
	ops []string
}

func (g *recordingGuard) Guard(op string, fn func() error) error {
	g.ops = append(g.ops, op)
	return fn()
}

func TestProcessStagesRunThroughGuard(t *testing.T) {
	guard := &recordingGuard{}
	p := newTestPipeline(WithGuard(guard))

	if _, err := p.Process(context.Background(), models.SourceDocument{ID: "doc-1", RawText: sampleCV}); err != nil {
		t.Fatal(err)
	}

	want := []string{OpSegmentation, OpMapping, OpValidation}
	if len(guard.ops) != len(want) {
		t.Fatalf("guarded ops = %v, want %v", guard.ops, want)
	}
	for i, op := range want {
		if guard.ops[i] != op {
			t.Errorf("op %d = %s, want %s", i, guard.ops[i], op)
		}
	}
}
