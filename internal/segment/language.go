package segment

import (
	"strings"

	"github.com/draftwerk/cvpipe/internal/models"
	"github.com/draftwerk/cvpipe/pkg/utils"
)

// Common words and CV vocabulary used as language indicators. Section header
// words are weighted double because they are strong signals in short documents.
var (
	dutchIndicators = map[string]int{
		"de": 1, "het": 1, "een": 1, "van": 1, "en": 1, "bij": 1, "voor": 1,
		"met": 1, "niet": 1, "naar": 1, "geboren": 1, "heden": 2,
		"werkervaring": 2, "opleiding": 2, "vaardigheden": 2, "talen": 2,
		"werkzaamheden": 2, "persoonlijke": 2, "gegevens": 2, "cursussen": 2,
	}
	englishIndicators = map[string]int{
		"the": 1, "and": 1, "of": 1, "for": 1, "with": 1, "at": 1, "to": 1,
		"born": 1, "present": 2, "work": 1, "experience": 2, "education": 2,
		"skills": 2, "languages": 2, "courses": 2, "employment": 2,
	}
)

// DetectLanguage classifies text as dutch, english, mixed, or unknown using
// indicator word ratios.
func DetectLanguage(text string) models.Language {
	var dutchScore, englishScore int
	for _, word := range strings.Fields(utils.FoldDiacritics(text)) {
		word = strings.Trim(word, ".,;:()[]\"'")
		if w, ok := dutchIndicators[word]; ok {
			dutchScore += w
		}
		if w, ok := englishIndicators[word]; ok {
			englishScore += w
		}
	}
	total := dutchScore + englishScore
	if total < 3 {
		return models.LanguageUnknown
	}
	ratio := float64(dutchScore) / float64(total)
	switch {
	case ratio >= 0.65:
		return models.LanguageDutch
	case ratio <= 0.35:
		return models.LanguageEnglish
	default:
		return models.LanguageMixed
	}
}
