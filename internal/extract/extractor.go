// Package extract pulls plain text out of CV source files (PDF, DOCX, XLSX,
// and plain text).
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Status classifies an extraction outcome. StatusNoText means the container
// was readable but held no usable text (a scanned PDF, an empty document);
// callers use it to trigger an OCR fallback before giving up.
type Status string

const (
	StatusSuccess Status = "success"
	StatusNoText  Status = "no_text"
	StatusFailed  Status = "failed"
)

// Result carries extraction metadata alongside the text.
type Result struct {
	Status    Status `json:"status"`
	PageCount int    `json:"page_count,omitempty"`
}

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// supportedExts are the formats Extract understands. Anything else is
// treated as plain text.
var supportedExts = map[string]struct{}{
	".pdf": {}, ".docx": {}, ".odt": {}, ".rtf": {},
	".xlsx": {}, ".txt": {}, ".md": {}, ".rst": {},
}

// Supported reports whether ext (with leading dot) has a dedicated handler.
func Supported(ext string) bool {
	_, ok := supportedExts[strings.ToLower(ext)]
	return ok
}

// Extract reads the file at path and extracts its text. A read failure or a
// broken container yields StatusFailed; a readable container without text
// yields StatusNoText and no error.
func (e *Extractor) Extract(path string) (string, Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", Result{Status: StatusFailed}, fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, Result, error) {
	var (
		text  string
		pages int
		err   error
	)
	switch ext {
	case ".pdf":
		text, pages, err = extractPDF(content)
	case ".docx", ".odt", ".rtf":
		text, err = extractDOCX(content)
	case ".xlsx":
		text, err = extractExcel(content)
	default:
		// Plain text and unknown extensions alike.
		text, err = extractPlain(content)
	}
	if err != nil {
		return "", Result{Status: StatusFailed}, err
	}
	if strings.TrimSpace(text) == "" {
		return "", Result{Status: StatusNoText, PageCount: pages}, nil
	}
	return text, Result{Status: StatusSuccess, PageCount: pages}, nil
}
