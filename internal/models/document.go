// Package models defines core data structures for source documents, sections,
// canonical records, validation reports, and work items.
package models

import "time"

// Language is the detected language of a source document.
type Language string

const (
	LanguageDutch   Language = "dutch"
	LanguageEnglish Language = "english"
	LanguageMixed   Language = "mixed"
	LanguageUnknown Language = "unknown"
)

// SourceDocument is the immutable input unit of the pipeline: one raw CV text
// plus intake metadata. RawText may be empty at submission when SourcePath is
// set; the pipeline's extraction stage fills it in.
type SourceDocument struct {
	ID         string    `json:"id" db:"id"`
	SourcePath string    `json:"source_path,omitempty" db:"source_path"`
	RawText    string    `json:"raw_text" db:"raw_text"`
	Language   Language  `json:"language" db:"language"`
	ByteSize   int       `json:"byte_size" db:"byte_size"`
	SourceType string    `json:"source_type" db:"source_type"`
	PageCount  int       `json:"page_count,omitempty" db:"page_count"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// SectionKind labels a semantic block of CV text.
type SectionKind string

const (
	SectionPersonalInfo   SectionKind = "personal_info"
	SectionProfile        SectionKind = "profile"
	SectionWorkExperience SectionKind = "work_experience"
	SectionEducation      SectionKind = "education"
	SectionCourses        SectionKind = "courses"
	SectionSkills         SectionKind = "skills"
	SectionLanguages      SectionKind = "languages"
	SectionSoftware       SectionKind = "software"
	SectionCertifications SectionKind = "certifications"
	SectionOther          SectionKind = "other"
)

// Section is a labeled contiguous span of the source text. Start and End are
// byte offsets into SourceDocument.RawText; Text is the corresponding slice.
// Sections are produced in document order (top to bottom).
type Section struct {
	Kind          SectionKind `json:"kind"`
	Start         int         `json:"start"`
	End           int         `json:"end"`
	Text          string      `json:"text"`
	Header        string      `json:"header,omitempty"`
	LowConfidence bool        `json:"low_confidence,omitempty"`
}
