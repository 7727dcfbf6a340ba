package dates

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/draftwerk/cvpipe/internal/models"
)

// Confidence per grammar. More specific, less ambiguous patterns earn higher
// confidence; the validator folds these into its scoring.
const (
	confidenceYearRange = 1.0
	confidenceOngoing   = 1.0
	confidenceMonthYear = 0.8
	confidenceNumeric   = 0.8
	confidenceBareYear  = 0.6
)

var (
	yearRangeRe = regexp.MustCompile(`\b(19\d{2}|20\d{2})\s*[-–—]\s*(19\d{2}|20\d{2})\b`)
	ongoingRe   = regexp.MustCompile(`(?i)\b(19\d{2}|20\d{2})\s*[-–—]\s*(?:tot\s+|to\s+)?(` + strings.Join(ongoingKeywords, "|") + `)\b`)
	monthYearRe = buildMonthYearRe()
	dayMonthRe  = regexp.MustCompile(`\b(\d{1,2})[-/](\d{1,2})[-/](19\d{2}|20\d{2})\b`)
	monthNumRe  = regexp.MustCompile(`\b(\d{1,2})/(19\d{2}|20\d{2})\b`)
	bareYearRe  = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
)

// buildMonthYearRe assembles the month-token pattern from the month table so
// the table stays the single source of truth. Longer names are listed first so
// "juli" is not half-matched as "jul".
func buildMonthYearRe() *regexp.Regexp {
	names := make([]string, 0, len(monthTable))
	for name := range monthTable {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return regexp.MustCompile(`(?i)\b(` + strings.Join(names, "|") + `)\.?\s*'?(\d{4}|\d{2})\b`)
}

// Normalize parses a free-text date or range expression into a TemporalRange.
// Grammars are tried in priority order and the first match wins. Unparseable
// input yields a range with nil years and zero confidence; Normalize never
// fails. A reversed range is swapped and flagged WasCorrected so callers can
// surface a warning.
func Normalize(text string) models.TemporalRange {
	tr, _, _ := parse(strings.TrimSpace(text))
	return tr
}

// Extract parses the first date expression in text and returns the range plus
// the text with the matched expression removed. Block splitters use the
// remainder for organization and title extraction.
func Extract(text string) (models.TemporalRange, string) {
	trimmed := strings.TrimSpace(text)
	tr, span, ok := parse(trimmed)
	if !ok {
		return tr, trimmed
	}
	remainder := trimmed[:span[0]] + " " + trimmed[span[1]:]
	remainder = strings.Trim(remainder, " \t-–—,.;:")
	return tr, strings.TrimSpace(remainder)
}

// parse applies the grammars in priority order. span is the byte range of the
// matched expression within text (valid only when ok is true).
func parse(text string) (tr models.TemporalRange, span [2]int, ok bool) {
	tr = models.TemporalRange{RawText: text}
	if text == "" {
		return tr, span, false
	}

	if loc := yearRangeRe.FindStringSubmatchIndex(text); loc != nil {
		start, _ := strconv.Atoi(text[loc[2]:loc[3]])
		end, _ := strconv.Atoi(text[loc[4]:loc[5]])
		if validYear(start) && validYear(end) {
			return finishRange(tr, start, &end, confidenceYearRange), [2]int{loc[0], loc[1]}, true
		}
	}

	if loc := ongoingRe.FindStringSubmatchIndex(text); loc != nil {
		start, _ := strconv.Atoi(text[loc[2]:loc[3]])
		if validYear(start) {
			tr.StartYear = &start
			tr.IsOngoing = true
			tr.ParseConfidence = confidenceOngoing
			return tr, [2]int{loc[0], loc[1]}, true
		}
	}

	if locs := monthYearRe.FindAllStringSubmatchIndex(text, 2); len(locs) > 0 {
		years := make([]int, 0, 2)
		for _, loc := range locs {
			yy, _ := strconv.Atoi(text[loc[4]:loc[5]])
			if yy < 100 {
				yy = resolveShortYear(yy)
			}
			if validYear(yy) {
				years = append(years, yy)
			}
		}
		if len(years) > 0 {
			span = [2]int{locs[0][0], locs[len(locs)-1][1]}
			end := years[len(years)-1]
			return finishRange(tr, years[0], &end, confidenceMonthYear), span, true
		}
	}

	if loc := dayMonthRe.FindStringSubmatchIndex(text); loc != nil {
		year, _ := strconv.Atoi(text[loc[6]:loc[7]])
		if validYear(year) {
			end := year
			return finishRange(tr, year, &end, confidenceNumeric), [2]int{loc[0], loc[1]}, true
		}
	}

	if loc := monthNumRe.FindStringSubmatchIndex(text); loc != nil {
		month, _ := strconv.Atoi(text[loc[2]:loc[3]])
		year, _ := strconv.Atoi(text[loc[4]:loc[5]])
		if month >= 1 && month <= 12 && validYear(year) {
			end := year
			return finishRange(tr, year, &end, confidenceNumeric), [2]int{loc[0], loc[1]}, true
		}
	}

	if loc := bareYearRe.FindStringSubmatchIndex(text); loc != nil {
		year, _ := strconv.Atoi(text[loc[2]:loc[3]])
		if validYear(year) {
			end := year
			return finishRange(tr, year, &end, confidenceBareYear), [2]int{loc[0], loc[1]}, true
		}
	}

	return tr, span, false
}

// finishRange fills in a parsed start/end pair, enforcing start <= end by
// swapping and flagging the correction.
func finishRange(r models.TemporalRange, start int, end *int, confidence float64) models.TemporalRange {
	if end != nil && *end < start {
		start, *end = *end, start
		r.WasCorrected = true
	}
	r.StartYear = &start
	r.EndYear = end
	r.ParseConfidence = confidence
	return r
}

// Format renders a TemporalRange in its canonical string form, the form the
// standardized template uses. Normalizing the result again yields the same
// years and ongoing flag.
func Format(t models.TemporalRange) string {
	switch {
	case t.StartYear == nil:
		return t.RawText
	case t.IsOngoing:
		return fmt.Sprintf("%d - heden", *t.StartYear)
	case t.EndYear != nil && *t.EndYear != *t.StartYear:
		return fmt.Sprintf("%d - %d", *t.StartYear, *t.EndYear)
	default:
		return strconv.Itoa(*t.StartYear)
	}
}

// ContainsDate reports whether text carries any parseable date expression.
// Used by the mapper's block splitter to spot entry boundary lines.
func ContainsDate(text string) bool {
	return Normalize(text).Parsed()
}
