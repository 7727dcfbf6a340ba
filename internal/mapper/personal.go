package mapper

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/draftwerk/cvpipe/internal/models"
	"github.com/draftwerk/cvpipe/pkg/utils"
)

var (
	emailRe      = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phoneRe      = regexp.MustCompile(`\b(?:\+31[\s-]?)?(?:\(0\)\s?)?0?[1-9]\d{0,2}[\s-]?\d{6,8}\b`)
	postalCodeRe = regexp.MustCompile(`\b\d{4}\s*[A-Z]{2}\b`)
	// Labeled birth year, e.g. "geboren: 1985" or "born in 1985".
	birthYearRe = regexp.MustCompile(`(?i)\b(?:geboren|geboortedatum|geboortejaar|born|birth\s*date|geb\.)\s*:?\s*(?:in\s*)?.*?\b(19\d{2}|20[0-1]\d)\b`)
	// Bare trailing year on a personal-info line, e.g. "Amsterdam, 1985".
	trailingYearRe = regexp.MustCompile(`\b(19\d{2}|20[0-1]\d)\s*$`)
)

// Birth years outside this window are more likely extraction noise than a
// real candidate.
const (
	minBirthYear = 1940
	maxBirthYear = 2010
)

// labelWords are field labels that show up where a name should be; a "name"
// equal to one of these is an extraction error, not a person.
var labelWords = map[string]struct{}{
	"naam": {}, "name": {}, "voornaam": {}, "achternaam": {}, "personalia": {},
	"curriculum vitae": {}, "cv": {}, "resume": {},
}

// extractIdentity pulls identity fields out of the personal-info text block.
// All fields are optional; whatever cannot be found stays zero.
func (m *Mapper) extractIdentity(text string) models.Identity {
	var id models.Identity

	for _, line := range strings.Split(text, "\n") {
		line = utils.CollapseWhitespace(line)
		if line == "" {
			continue
		}
		if id.Name == "" && !m.gazetteer.Contains(line) && plausibleName(line) {
			id.Name = stripNameLabel(line)
			continue
		}
		if id.Location == "" {
			if place := m.findLocality(line); place != "" {
				id.Location = place
			}
		}
	}

	if m := emailRe.FindString(text); m != "" {
		id.Email = m
	}
	if m := postalCodeRe.FindString(text); m != "" {
		id.PostalCode = m
	}
	if m := phoneRe.FindString(text); m != "" {
		id.Phone = m
	}
	id.BirthYear = findBirthYear(text)
	return id
}

// findBirthYear prefers a labeled birth-year pattern, then falls back to a
// bare year trailing a line, both restricted to a plausible window.
func findBirthYear(text string) *int {
	if m := birthYearRe.FindStringSubmatch(text); m != nil {
		if year, err := strconv.Atoi(m[1]); err == nil && year >= minBirthYear && year <= maxBirthYear {
			return &year
		}
	}
	for _, line := range strings.Split(text, "\n") {
		if m := trailingYearRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			if year, err := strconv.Atoi(m[1]); err == nil && year >= minBirthYear && year <= maxBirthYear {
				return &year
			}
		}
	}
	return nil
}

// findLocality returns the first comma- or space-delimited phrase on the line
// that the gazetteer knows.
func (m *Mapper) findLocality(line string) string {
	for _, part := range strings.Split(line, ",") {
		part = utils.CollapseWhitespace(part)
		if part == "" {
			continue
		}
		if m.gazetteer.Contains(part) {
			return part
		}
		// Multi-word cities ("Den Haag") live inside longer lines too.
		words := strings.Fields(part)
		for i := range words {
			for j := i + 1; j <= len(words) && j <= i+4; j++ {
				candidate := strings.Join(words[i:j], " ")
				if m.gazetteer.Contains(candidate) {
					return candidate
				}
			}
		}
	}
	return ""
}

// plausibleName reports whether line looks like a person's name: 1-4 words,
// no digits, reasonable length, not a field label.
func plausibleName(line string) bool {
	stripped := stripNameLabel(line)
	if len(stripped) < 3 || len(stripped) > 50 {
		return false
	}
	if strings.ContainsAny(stripped, "0123456789@/") {
		return false
	}
	if _, isLabel := labelWords[utils.FoldDiacritics(stripped)]; isLabel {
		return false
	}
	words := strings.Fields(stripped)
	if len(words) < 1 || len(words) > 4 {
		return false
	}
	// Require an uppercase initial somewhere; all-lowercase lines are body text.
	return strings.ToLower(stripped) != stripped
}

// stripNameLabel removes a leading "Naam:" style label from the line.
func stripNameLabel(line string) string {
	lower := utils.FoldDiacritics(line)
	for _, label := range []string{"naam:", "name:"} {
		if strings.HasPrefix(lower, label) {
			return utils.CollapseWhitespace(line[len(label):])
		}
	}
	return line
}
