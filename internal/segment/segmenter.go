package segment

import (
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/draftwerk/cvpipe/internal/models"
	"github.com/draftwerk/cvpipe/pkg/utils"
)

// Fuzzy match thresholds. Multi-word headers need a tighter ratio to avoid
// false positives on body text.
const (
	singleWordThreshold = 0.85
	multiWordThreshold  = 0.90
	maxHeaderWords      = 6
	maxCapsHeaderWords  = 4
)

// Segmenter splits raw CV text into labeled sections. It never fails: any
// input, including empty or garbage text, yields a valid section list whose
// spans reconstruct the input exactly.
type Segmenter struct {
	dict        *Dictionary
	minDocChars int
	logger      *zap.Logger // optional; when set, logs debug events
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithLogger sets a logger for debug output (header matches, fallbacks).
func WithLogger(l *zap.Logger) Option {
	return func(s *Segmenter) { s.logger = l }
}

// NewSegmenter creates a segmenter with the given dictionary. Documents
// shorter than minDocChars are returned as a single low-confidence section.
func NewSegmenter(dict *Dictionary, minDocChars int, opts ...Option) *Segmenter {
	s := &Segmenter{dict: dict, minDocChars: minDocChars}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type headerMatch struct {
	kind   models.SectionKind
	offset int // byte offset of the header line start
	line   string
}

// Segment splits text into sections for the given document language. The
// returned sections are in document order and their spans cover [0, len(text))
// with no gaps: unmatched leading text becomes a synthetic Other section.
func (s *Segmenter) Segment(text string, lang models.Language) []models.Section {
	if len(strings.TrimSpace(text)) < s.minDocChars {
		return []models.Section{{
			Kind:          models.SectionOther,
			Start:         0,
			End:           len(text),
			Text:          text,
			LowConfidence: true,
		}}
	}

	headers := s.findHeaders(text, lang)
	if len(headers) == 0 {
		return []models.Section{{
			Kind:  models.SectionOther,
			Start: 0,
			End:   len(text),
			Text:  text,
		}}
	}

	sections := make([]models.Section, 0, len(headers)+1)
	if headers[0].offset > 0 {
		sections = append(sections, models.Section{
			Kind:  models.SectionOther,
			Start: 0,
			End:   headers[0].offset,
			Text:  text[:headers[0].offset],
		})
	}
	for i, h := range headers {
		end := len(text)
		if i+1 < len(headers) {
			end = headers[i+1].offset
		}
		sections = append(sections, models.Section{
			Kind:   h.kind,
			Start:  h.offset,
			End:    end,
			Text:   text[h.offset:end],
			Header: h.line,
		})
	}
	return sections
}

// findHeaders scans line by line and returns matched header lines in order.
func (s *Segmenter) findHeaders(text string, lang models.Language) []headerMatch {
	var headers []headerMatch
	offset := 0
	for offset < len(text) {
		lineEnd := strings.IndexByte(text[offset:], '\n')
		var line string
		next := len(text)
		if lineEnd >= 0 {
			line = text[offset : offset+lineEnd]
			next = offset + lineEnd + 1
		} else {
			line = text[offset:]
		}
		if kind, ok := s.matchHeader(line, lang); ok {
			headers = append(headers, headerMatch{kind: kind, offset: offset, line: strings.TrimSpace(line)})
			if s.logger != nil {
				s.logger.Debug("section header matched",
					zap.String("kind", string(kind)),
					zap.String("line", strings.TrimSpace(line)))
			}
		}
		offset = next
	}
	return headers
}

// matchHeader reports whether line is a section header and of which kind.
// Exact dictionary matches win; fuzzy matches fall back to edit-distance
// ratio; short ALL CAPS lines with no dictionary entry open an Other section
// so unknown-section content is preserved rather than merged into the prior
// section.
func (s *Segmenter) matchHeader(line string, lang models.Language) (models.SectionKind, bool) {
	trimmed := utils.CollapseWhitespace(line)
	if trimmed == "" {
		return "", false
	}
	normalized := utils.CollapseWhitespace(strings.TrimRight(utils.FoldDiacritics(trimmed), ":.- "))
	if normalized == "" {
		return "", false
	}
	words := len(strings.Fields(normalized))
	if words > maxHeaderWords {
		return "", false
	}

	threshold := multiWordThreshold
	if words == 1 {
		threshold = singleWordThreshold
	}

	bestKind := models.SectionKind("")
	bestRatio := 0.0
	for _, kind := range s.dict.Kinds() {
		for _, v := range s.dict.Variants(kind, lang) {
			if v.Phrase == normalized {
				return kind, true
			}
			if ratio := SimilarityRatio(v.Phrase, normalized); ratio > bestRatio {
				bestRatio = ratio
				bestKind = kind
			}
		}
	}
	if bestRatio >= threshold {
		return bestKind, true
	}

	if isAllCapsHeader(trimmed) {
		return models.SectionOther, true
	}
	return "", false
}

// isAllCapsHeader reports whether line looks like an unknown section header:
// short, all uppercase letters, at least one letter.
func isAllCapsHeader(line string) bool {
	if len(strings.Fields(line)) > maxCapsHeaderWords {
		return false
	}
	hasLetter := false
	for _, r := range line {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
		if unicode.IsDigit(r) {
			return false
		}
	}
	return hasLetter
}
