package models

// TemporalRange is the canonical result of date normalization: year-granular
// start/end plus an ongoing flag. If IsOngoing is true, EndYear is nil. If
// parsing failed entirely, both years are nil and ParseConfidence is 0.
type TemporalRange struct {
	StartYear       *int    `json:"start_year"`
	EndYear         *int    `json:"end_year"`
	IsOngoing       bool    `json:"is_ongoing"`
	RawText         string  `json:"raw_text"`
	ParseConfidence float64 `json:"parse_confidence"`
	WasCorrected    bool    `json:"was_corrected,omitempty"`
}

// Parsed reports whether the range carries at least a start year.
func (t TemporalRange) Parsed() bool {
	return t.StartYear != nil
}

// EffectiveEndYear returns the year used for reverse-chronological ordering.
// Ongoing ranges sort as "infinitely recent"; unparsed ranges sort last.
// The second return is false when no ordering year is available.
func (t TemporalRange) EffectiveEndYear() (int, bool) {
	if t.IsOngoing {
		return maxOrderingYear, true
	}
	if t.EndYear != nil {
		return *t.EndYear, true
	}
	if t.StartYear != nil {
		return *t.StartYear, true
	}
	return 0, false
}

// maxOrderingYear is a sort key for ongoing ranges, above any real year.
const maxOrderingYear = 1 << 30

// Position is one work experience entry: an organization and role over a
// temporal range, with free-text description lines preserved as-is.
type Position struct {
	Organization string        `json:"organization"`
	Title        string        `json:"title,omitempty"`
	Period       TemporalRange `json:"period"`
	Description  []string      `json:"description,omitempty"`
}

// EducationEntry is one education entry (institution, qualification, period).
type EducationEntry struct {
	Institution string        `json:"institution"`
	Degree      string        `json:"degree,omitempty"`
	Period      TemporalRange `json:"period"`
}

// CourseEntry is one course or training entry.
type CourseEntry struct {
	Name   string        `json:"name"`
	Period TemporalRange `json:"period"`
}

// Identity holds the personal fields extracted from a CV. All fields are
// optional; absence is reported by the validator, not treated as an error.
type Identity struct {
	Name       string `json:"name,omitempty"`
	Location   string `json:"location,omitempty"`
	BirthYear  *int   `json:"birth_year,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

// CanonicalRecord is the fully structured representation of one source
// document: identity fields plus ordered entry lists. Positions and Education
// are reverse-chronological by effective end year. Built once by the mapper
// and immutable thereafter; RawSections is kept as an audit back-reference.
type CanonicalRecord struct {
	DocumentID  string           `json:"document_id"`
	Identity    Identity         `json:"identity"`
	Profile     string           `json:"profile,omitempty"`
	Positions   []Position       `json:"positions"`
	Education   []EducationEntry `json:"education"`
	Courses     []CourseEntry    `json:"courses"`
	Skills      []string         `json:"skills,omitempty"`
	Languages   []string         `json:"languages,omitempty"`
	Language    Language         `json:"language"`
	RawSections []Section        `json:"raw_sections,omitempty"`
}
