// Package pipeline composes extraction, segmentation, mapping, validation,
// and rendering into the orchestrator's processing function.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/draftwerk/cvpipe/internal/extract"
	"github.com/draftwerk/cvpipe/internal/mapper"
	"github.com/draftwerk/cvpipe/internal/models"
	"github.com/draftwerk/cvpipe/internal/orchestrator"
	"github.com/draftwerk/cvpipe/internal/segment"
	"github.com/draftwerk/cvpipe/internal/validate"
)

// Operation names used for circuit breaking and logging.
const (
	OpExtraction   = "extraction"
	OpSegmentation = "segmentation"
	OpMapping      = "mapping"
	OpValidation   = "validation"
	OpRender       = "render"
)

// Guard runs a function under a named circuit breaker. The orchestrator
// satisfies this.
type Guard interface {
	Guard(op string, fn func() error) error
}

// Store persists processing outcomes. Satisfied by storage.Storage.
type Store interface {
	SaveDocument(ctx context.Context, doc *models.SourceDocument) error
	SaveRecord(ctx context.Context, record *models.CanonicalRecord, report *models.ValidationReport) error
}

// OCRFunc is the fallback used when plain extraction yields no text, e.g. a
// scanned PDF. Wire an external OCR service here; there is no built-in one.
type OCRFunc func(ctx context.Context, path string) (string, error)

// Renderer produces the standardized document bytes for a record.
type Renderer interface {
	Render(record models.CanonicalRecord) ([]byte, error)
}

// Pipeline is the per-document processing chain. All stages are stateless;
// a single Pipeline serves all workers concurrently.
type Pipeline struct {
	extractor *extract.Extractor
	segmenter *segment.Segmenter
	mapper    *mapper.Mapper
	validator *validate.Validator
	renderer  Renderer
	guard     Guard
	store     Store
	ocr       OCRFunc
	outputDir string
	logger    *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a logger for stage-level debug output.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithGuard routes every stage through the given circuit breaker guard.
func WithGuard(g Guard) Option {
	return func(p *Pipeline) { p.guard = g }
}

// WithStore persists documents, records, and reports after processing.
func WithStore(s Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithOCR installs the no-text fallback extractor.
func WithOCR(fn OCRFunc) Option {
	return func(p *Pipeline) { p.ocr = fn }
}

// WithRenderer enables rendering of passed records into outputDir.
func WithRenderer(r Renderer, outputDir string) Option {
	return func(p *Pipeline) {
		p.renderer = r
		p.outputDir = outputDir
	}
}

// New assembles a pipeline from its stages.
func New(seg *segment.Segmenter, m *mapper.Mapper, v *validate.Validator, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor: extract.NewExtractor(),
		segmenter: seg,
		mapper:    m,
		validator: v,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs the full chain for one document. It is the orchestrator's
// ProcessFunc: infrastructure failures come back as errors (permanent ones
// wrapped so they dead-letter immediately), while a failed validation is a
// successful result with Report.Passed false.
func (p *Pipeline) Process(ctx context.Context, doc models.SourceDocument) (orchestrator.ProcessResult, error) {
	var result orchestrator.ProcessResult

	if err := ctx.Err(); err != nil {
		return result, err
	}

	if doc.RawText == "" && doc.SourcePath != "" {
		if err := p.extractInto(ctx, &doc); err != nil {
			return result, err
		}
	}
	if doc.Language == "" || doc.Language == models.LanguageUnknown {
		doc.Language = segment.DetectLanguage(doc.RawText)
	}
	doc.ByteSize = len(doc.RawText)

	if p.store != nil {
		if err := p.store.SaveDocument(ctx, &doc); err != nil {
			return result, fmt.Errorf("save document: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	var sections []models.Section
	if err := p.guarded(OpSegmentation, func() error {
		sections = p.segmenter.Segment(doc.RawText, doc.Language)
		return nil
	}); err != nil {
		return result, err
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	if err := p.guarded(OpMapping, func() error {
		result.Record = p.mapper.Map(doc, sections)
		return nil
	}); err != nil {
		return result, err
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	if err := p.guarded(OpValidation, func() error {
		result.Report = p.validator.Validate(result.Record, sections)
		return nil
	}); err != nil {
		return result, err
	}

	if p.store != nil {
		if err := p.store.SaveRecord(ctx, &result.Record, &result.Report); err != nil {
			return result, fmt.Errorf("save record: %w", err)
		}
	}

	if result.Report.Passed && p.renderer != nil {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := p.guarded(OpRender, func() error {
			return p.renderTo(doc.ID, result.Record)
		}); err != nil {
			return result, err
		}
	}

	if p.logger != nil {
		p.logger.Debug("document processed",
			zap.String("document_id", doc.ID),
			zap.String("language", string(doc.Language)),
			zap.Int("sections", len(sections)),
			zap.Float64("score", result.Report.OverallScore),
			zap.Bool("passed", result.Report.Passed))
	}
	return result, nil
}

// extractInto runs the extraction stage, including the OCR fallback for
// containers without text. A missing file or an unreadable container is a
// permanent failure; transient IO errors stay retryable.
func (p *Pipeline) extractInto(ctx context.Context, doc *models.SourceDocument) error {
	var (
		text   string
		result extract.Result
	)
	err := p.guarded(OpExtraction, func() error {
		var extractErr error
		text, result, extractErr = p.extractor.Extract(doc.SourcePath)
		if extractErr != nil && result.Status == extract.StatusFailed {
			if errors.Is(extractErr, fs.ErrNotExist) {
				return orchestrator.Permanent(extractErr)
			}
			// A broken container will not heal on retry; try OCR first.
			if fallbackText, ok := p.tryOCR(ctx, doc.SourcePath); ok {
				text = fallbackText
				result = extract.Result{Status: extract.StatusSuccess}
				return nil
			}
			return orchestrator.Permanent(extractErr)
		}
		return extractErr
	})
	if err != nil {
		return err
	}

	if result.Status == extract.StatusNoText {
		if fallbackText, ok := p.tryOCR(ctx, doc.SourcePath); ok {
			text = fallbackText
		} else {
			return orchestrator.Permanent(fmt.Errorf("no extractable text in %s", filepath.Base(doc.SourcePath)))
		}
	}

	doc.RawText = text
	doc.PageCount = result.PageCount
	if doc.SourceType == "" {
		doc.SourceType = filepath.Ext(doc.SourcePath)
	}
	return nil
}

func (p *Pipeline) tryOCR(ctx context.Context, path string) (string, bool) {
	if p.ocr == nil {
		return "", false
	}
	text, err := p.ocr(ctx, path)
	if err != nil || text == "" {
		if p.logger != nil {
			p.logger.Warn("ocr fallback failed", zap.String("path", path), zap.Error(err))
		}
		return "", false
	}
	return text, true
}

func (p *Pipeline) renderTo(docID string, record models.CanonicalRecord) error {
	out, err := p.renderer.Render(record)
	if err != nil {
		return err
	}
	if p.outputDir == "" {
		return nil
	}
	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(p.outputDir, docID+".txt")
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write rendered document: %w", err)
	}
	return nil
}

func (p *Pipeline) guarded(op string, fn func() error) error {
	if p.guard == nil {
		return fn()
	}
	return p.guard.Guard(op, fn)
}
