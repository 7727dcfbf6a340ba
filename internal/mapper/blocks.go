package mapper

import (
	"strings"
	"unicode"

	"github.com/draftwerk/cvpipe/internal/dates"
	"github.com/draftwerk/cvpipe/internal/models"
	"github.com/draftwerk/cvpipe/pkg/utils"
)

// isBoundaryLine reports whether a work-experience line starts a new entry:
// it carries a parseable date expression and a proper-noun-like remainder
// (an employer or role name).
func isBoundaryLine(line string) bool {
	tr, remainder := dates.Extract(line)
	if !tr.Parsed() {
		return false
	}
	return hasProperNoun(remainder)
}

// hasProperNoun reports whether text contains a capitalized word that is not
// at sentence position only, a cheap stand-in for an organization name.
func hasProperNoun(text string) bool {
	for _, word := range strings.Fields(text) {
		r := []rune(word)
		if len(r) >= 2 && unicode.IsUpper(r[0]) && unicode.IsLetter(r[0]) {
			return true
		}
	}
	return false
}

// splitPositions cuts the work-experience body into sub-blocks at boundary
// lines and builds one Position per block. A body with no recognizable
// boundary becomes a single catch-all entry so nothing is discarded.
func splitPositions(body string) []models.Position {
	lines := strings.Split(body, "\n")
	var positions []models.Position
	var current *models.Position

	for _, rawLine := range lines {
		line := utils.CollapseWhitespace(rawLine)
		if line == "" {
			continue
		}
		if isBoundaryLine(line) {
			if current != nil {
				positions = append(positions, *current)
			}
			period, remainder := dates.Extract(line)
			org, title := splitOrgTitle(remainder)
			current = &models.Position{
				Organization: org,
				Title:        title,
				Period:       period,
			}
			continue
		}
		if current == nil {
			// Text before the first boundary: keep as a catch-all entry.
			current = &models.Position{}
		}
		current.Description = append(current.Description, line)
	}
	if current != nil {
		positions = append(positions, *current)
	}
	return positions
}

// splitOrgTitle splits an entry heading into organization and title on the
// first comma or spaced dash.
func splitOrgTitle(remainder string) (org, title string) {
	for _, sep := range []string{",", " - ", " – "} {
		if idx := strings.Index(remainder, sep); idx >= 0 {
			return strings.TrimSpace(remainder[:idx]), strings.TrimSpace(remainder[idx+len(sep):])
		}
	}
	return strings.TrimSpace(remainder), ""
}

// splitEducation builds one entry per non-empty line of the education body.
func splitEducation(body string) []models.EducationEntry {
	var entries []models.EducationEntry
	for _, rawLine := range strings.Split(body, "\n") {
		line := utils.CollapseWhitespace(rawLine)
		if line == "" {
			continue
		}
		period, remainder := dates.Extract(line)
		institution, degree := splitOrgTitle(remainder)
		if institution == "" && degree == "" && !period.Parsed() {
			continue
		}
		entries = append(entries, models.EducationEntry{
			Institution: institution,
			Degree:      degree,
			Period:      period,
		})
	}
	return entries
}

// splitCourses builds one entry per non-empty line of the courses body.
func splitCourses(body string) []models.CourseEntry {
	var entries []models.CourseEntry
	for _, rawLine := range strings.Split(body, "\n") {
		line := utils.CollapseWhitespace(rawLine)
		if line == "" {
			continue
		}
		period, remainder := dates.Extract(line)
		if remainder == "" && !period.Parsed() {
			continue
		}
		entries = append(entries, models.CourseEntry{
			Name:   remainder,
			Period: period,
		})
	}
	return entries
}

// splitList turns a skills/languages body into list items, splitting on
// newlines, commas, semicolons, and bullet markers.
func splitList(body string) []string {
	var items []string
	for _, chunk := range strings.FieldsFunc(body, func(r rune) bool {
		return r == '\n' || r == ',' || r == ';' || r == '•'
	}) {
		item := strings.Trim(utils.CollapseWhitespace(chunk), "-* ")
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
