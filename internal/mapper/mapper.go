package mapper

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/draftwerk/cvpipe/internal/models"
)

// Mapper turns a source document's sections into a canonical record. It never
// fails outright: an unmappable document yields a record with empty lists and
// whatever identity fields could be inferred.
type Mapper struct {
	gazetteer Gazetteer
	logger    *zap.Logger // optional; when set, logs debug events
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(m *Mapper) { m.logger = l }
}

// NewMapper creates a mapper. gazetteer may be nil; DefaultGazetteer is used.
func NewMapper(gazetteer Gazetteer, opts ...Option) *Mapper {
	if gazetteer == nil {
		gazetteer = DefaultGazetteer()
	}
	m := &Mapper{gazetteer: gazetteer}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Map builds the canonical record for doc from its sections.
func (m *Mapper) Map(doc models.SourceDocument, sections []models.Section) models.CanonicalRecord {
	record := models.CanonicalRecord{
		DocumentID:  doc.ID,
		Language:    doc.Language,
		Positions:   []models.Position{},
		Education:   []models.EducationEntry{},
		Courses:     []models.CourseEntry{},
		RawSections: sections,
	}

	record.Identity = m.extractIdentity(personalText(doc, sections))
	if record.Identity.Name == "" {
		record.Identity.Name = firstPlausibleName(doc.RawText)
	}

	for _, sec := range sections {
		body := sectionBody(sec)
		switch sec.Kind {
		case models.SectionProfile:
			if record.Profile == "" {
				record.Profile = strings.TrimSpace(body)
			}
		case models.SectionWorkExperience:
			record.Positions = append(record.Positions, splitPositions(body)...)
		case models.SectionEducation:
			record.Education = append(record.Education, splitEducation(body)...)
		case models.SectionCourses, models.SectionCertifications:
			record.Courses = append(record.Courses, splitCourses(body)...)
		case models.SectionSkills, models.SectionSoftware:
			record.Skills = append(record.Skills, splitList(body)...)
		case models.SectionLanguages:
			record.Languages = append(record.Languages, splitList(body)...)
		}
	}

	sortPositions(record.Positions)
	sortEducation(record.Education)

	if m.logger != nil {
		m.logger.Debug("document mapped",
			zap.String("document_id", doc.ID),
			zap.Int("positions", len(record.Positions)),
			zap.Int("education", len(record.Education)),
			zap.Int("courses", len(record.Courses)))
	}
	return record
}

// personalText returns the text the identity heuristics should look at: the
// personal-info section if present, otherwise the document preamble (the
// synthetic Other section at offset zero, or the top of the raw text).
func personalText(doc models.SourceDocument, sections []models.Section) string {
	for _, sec := range sections {
		if sec.Kind == models.SectionPersonalInfo {
			return sectionBody(sec)
		}
	}
	for _, sec := range sections {
		if sec.Kind == models.SectionOther && sec.Start == 0 {
			return sec.Text
		}
	}
	return topLines(doc.RawText, 10)
}

// sectionBody strips the matched header line from a section's text; sections
// without a header (synthetic Other) are returned whole.
func sectionBody(sec models.Section) string {
	if sec.Header == "" {
		return sec.Text
	}
	if idx := strings.IndexByte(sec.Text, '\n'); idx >= 0 {
		return sec.Text[idx+1:]
	}
	return ""
}

func topLines(text string, n int) string {
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}

// firstPlausibleName scans the top of the document for a line that looks like
// a person's name.
func firstPlausibleName(text string) string {
	for _, line := range strings.Split(topLines(text, 5), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if plausibleName(line) {
			return stripNameLabel(line)
		}
	}
	return ""
}

// sortPositions orders positions reverse-chronologically by effective end
// year. Ongoing entries sort first; entries with no parseable years keep
// their document order at the end.
func sortPositions(positions []models.Position) {
	sort.SliceStable(positions, func(i, j int) bool {
		yi, oki := positions[i].Period.EffectiveEndYear()
		yj, okj := positions[j].Period.EffectiveEndYear()
		if oki != okj {
			return oki
		}
		return yi > yj
	})
}

func sortEducation(entries []models.EducationEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		yi, oki := entries[i].Period.EffectiveEndYear()
		yj, okj := entries[j].Period.EffectiveEndYear()
		if oki != okj {
			return oki
		}
		return yi > yj
	})
}
