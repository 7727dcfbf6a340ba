// Package segment splits raw CV text into labeled semantic sections using a
// bilingual header dictionary with exact and fuzzy matching.
package segment

import (
	"github.com/draftwerk/cvpipe/internal/models"
	"github.com/draftwerk/cvpipe/pkg/utils"
)

// HeaderVariant is one known header phrase for a section kind, tagged with the
// language it belongs to. Phrase is stored pre-normalized (lowercased, folded).
type HeaderVariant struct {
	Phrase   string
	Language models.Language
}

// Dictionary maps section kinds to their known header phrase variants. It is
// an immutable value injected into the Segmenter at construction so tests can
// swap dictionaries without shared mutable globals.
type Dictionary struct {
	variants map[models.SectionKind][]HeaderVariant
}

// NewDictionary builds a dictionary from raw phrase lists. Phrases are
// normalized on the way in.
func NewDictionary(entries map[models.SectionKind][]HeaderVariant) *Dictionary {
	normalized := make(map[models.SectionKind][]HeaderVariant, len(entries))
	for kind, list := range entries {
		out := make([]HeaderVariant, 0, len(list))
		for _, v := range list {
			out = append(out, HeaderVariant{
				Phrase:   utils.FoldDiacritics(utils.CollapseWhitespace(v.Phrase)),
				Language: v.Language,
			})
		}
		normalized[kind] = out
	}
	return &Dictionary{variants: normalized}
}

// Variants returns the header variants usable for the given document language.
// Mixed and unknown documents match against both languages.
func (d *Dictionary) Variants(kind models.SectionKind, lang models.Language) []HeaderVariant {
	all := d.variants[kind]
	if lang != models.LanguageDutch && lang != models.LanguageEnglish {
		return all
	}
	out := make([]HeaderVariant, 0, len(all))
	for _, v := range all {
		if v.Language == lang {
			out = append(out, v)
		}
	}
	return out
}

// Kinds returns the section kinds present in the dictionary.
func (d *Dictionary) Kinds() []models.SectionKind {
	kinds := make([]models.SectionKind, 0, len(d.variants))
	for k := range d.variants {
		kinds = append(kinds, k)
	}
	return kinds
}

func dutch(phrases ...string) []HeaderVariant {
	out := make([]HeaderVariant, len(phrases))
	for i, p := range phrases {
		out[i] = HeaderVariant{Phrase: p, Language: models.LanguageDutch}
	}
	return out
}

func english(phrases ...string) []HeaderVariant {
	out := make([]HeaderVariant, len(phrases))
	for i, p := range phrases {
		out[i] = HeaderVariant{Phrase: p, Language: models.LanguageEnglish}
	}
	return out
}

// DefaultDictionary returns the built-in Dutch/English header dictionary.
func DefaultDictionary() *Dictionary {
	entries := map[models.SectionKind][]HeaderVariant{
		models.SectionPersonalInfo: append(
			dutch("persoonlijke gegevens", "persoonlijke informatie", "personalia", "gegevens", "contactgegevens"),
			english("personal information", "personal details", "contact details", "contact")...,
		),
		models.SectionProfile: append(
			dutch("profiel", "over mij", "samenvatting", "persoonlijk profiel"),
			english("profile", "summary", "about me", "personal profile")...,
		),
		models.SectionWorkExperience: append(
			dutch("werkervaring", "werk ervaring", "werkgeschiedenis", "ervaring", "carrière", "werkzaamheden"),
			english("work experience", "professional experience", "employment", "employment history", "career")...,
		),
		models.SectionEducation: append(
			dutch("opleiding", "opleidingen", "onderwijs", "educatie", "studie", "academische achtergrond"),
			english("education", "academic background", "studies", "qualifications")...,
		),
		models.SectionCourses: append(
			dutch("cursussen", "trainingen", "cursussen en trainingen"),
			english("courses", "training", "professional development")...,
		),
		models.SectionSkills: append(
			dutch("vaardigheden", "competenties", "kennis", "expertise"),
			english("skills", "competencies", "abilities")...,
		),
		models.SectionLanguages: append(
			dutch("talen", "talenkennis", "taalvaardigheid"),
			english("languages", "language skills")...,
		),
		models.SectionSoftware: append(
			dutch("programmeertalen", "technische vaardigheden", "it vaardigheden"),
			english("software", "technical skills", "it skills", "programming")...,
		),
		models.SectionCertifications: append(
			dutch("certificaten", "certificeringen", "certificaties", "diploma's"),
			english("certificates", "certifications")...,
		),
	}
	return NewDictionary(entries)
}
