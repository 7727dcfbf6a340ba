package validate

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/draftwerk/cvpipe/internal/models"
	"github.com/draftwerk/cvpipe/pkg/utils"
)

// legalSuffixes are organization-name suffixes ignored when comparing
// positions for duplication. "Acme B.V." and "Acme bv" are the same employer.
var legalSuffixes = map[string]struct{}{
	"bv": {}, "nv": {}, "vof": {}, "cv": {}, "bvba": {},
	"inc": {}, "ltd": {}, "llc": {}, "gmbh": {}, "holding": {},
}

// duplicateKey reduces a position to a comparable identity: normalized
// organization plus the period's years. Positions without an organization
// never collide.
func duplicateKey(p models.Position) string {
	org := normalizeOrganization(p.Organization)
	if org == "" {
		return ""
	}
	start, end := -1, -1
	if p.Period.StartYear != nil {
		start = *p.Period.StartYear
	}
	if p.Period.EndYear != nil {
		end = *p.Period.EndYear
	}
	return fmt.Sprintf("%s|%d|%d|%t", org, start, end, p.Period.IsOngoing)
}

// normalizeOrganization lowercases, folds diacritics, strips punctuation, and
// drops trailing legal-form suffixes.
func normalizeOrganization(org string) string {
	folded := utils.FoldDiacritics(org)
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, folded)

	words := strings.Fields(cleaned)
	for len(words) > 1 {
		if _, ok := legalSuffixes[words[len(words)-1]]; !ok {
			break
		}
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}
