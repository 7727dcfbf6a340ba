// Package dates normalizes free-text date and range expressions from CVs into
// canonical year-granular temporal ranges.
package dates

// monthTable maps Dutch and English month names and abbreviations to month
// numbers. Only used to recognize month tokens; the canonical model keeps
// year granularity, so the month number itself is discarded after parsing.
var monthTable = map[string]int{
	// Dutch full names
	"januari": 1, "februari": 2, "maart": 3, "april": 4,
	"mei": 5, "juni": 6, "juli": 7, "augustus": 8,
	"september": 9, "oktober": 10, "november": 11, "december": 12,
	// Dutch abbreviations
	"jan": 1, "feb": 2, "mrt": 3, "apr": 4, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "okt": 10, "nov": 11, "dec": 12,
	// English full names (shared spellings like "april" already present)
	"january": 1, "february": 2, "march": 3, "may": 5, "june": 6,
	"july": 7, "october": 10,
	// English abbreviations
	"mar": 3, "oct": 10,
}

// ongoingKeywords are the localized "still running" markers accepted on the
// right-hand side of a range.
var ongoingKeywords = []string{
	"heden", "present", "current", "now", "nu", "ongoing", "lopend",
}

// Year bounds accepted for CV content. Anything outside is treated as noise
// (page numbers, phone fragments) rather than a date.
const (
	minYear = 1950
	maxYear = 2035
)

func validYear(y int) bool {
	return y >= minYear && y <= maxYear
}

// resolveShortYear expands a two-digit year ('98 -> 1998, '07 -> 2007).
func resolveShortYear(yy int) int {
	if yy >= 50 {
		return 1900 + yy
	}
	return 2000 + yy
}
