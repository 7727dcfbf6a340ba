// Package validate scores canonical records against completeness and
// consistency rules and produces a validation report.
package validate

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/draftwerk/cvpipe/internal/models"
)

// DefaultThreshold is the minimum overall score for a passing report.
const DefaultThreshold = 0.7

// Rule weights. They sum to 1.0 so the overall score is a weighted mean.
const (
	weightName           = 0.15
	weightDatedPosition  = 0.25
	weightEducation      = 0.15
	weightDateConfidence = 0.25
	weightTextLength     = 0.10
	weightNoDuplicates   = 0.10
)

// confidentParse is the parse-confidence level above which a temporal range
// counts as reliably dated.
const confidentParse = 0.6

// input bundles everything a rule can inspect.
type input struct {
	record   models.CanonicalRecord
	sections []models.Section
}

// rule is one weighted check: it returns a sub-score in [0,1] and an optional
// finding when something is off.
type rule struct {
	name   string
	weight float64
	eval   func(v *Validator, in input) (float64, *models.Finding)
}

// Validator runs the rule set over a canonical record. It is stateless after
// construction and safe for concurrent use.
type Validator struct {
	threshold    float64
	minTextChars int
	logger       *zap.Logger
	rules        []rule
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// NewValidator creates a validator. threshold <= 0 selects DefaultThreshold;
// minTextChars <= 0 disables the text-length rule's lower bound.
func NewValidator(threshold float64, minTextChars int, opts ...Option) *Validator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	v := &Validator{
		threshold:    threshold,
		minTextChars: minTextChars,
	}
	v.rules = []rule{
		{name: "name_present", weight: weightName, eval: evalName},
		{name: "dated_position", weight: weightDatedPosition, eval: evalDatedPosition},
		{name: "education_present", weight: weightEducation, eval: evalEducation},
		{name: "date_confidence", weight: weightDateConfidence, eval: evalDateConfidence},
		{name: "text_length", weight: weightTextLength, eval: evalTextLength},
		{name: "no_duplicate_positions", weight: weightNoDuplicates, eval: evalNoDuplicates},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate evaluates every rule and assembles the report. The same record
// always yields the same report.
func (v *Validator) Validate(record models.CanonicalRecord, sections []models.Section) models.ValidationReport {
	in := input{record: record, sections: sections}
	report := models.ValidationReport{Findings: []models.Finding{}}

	var score float64
	for _, r := range v.rules {
		sub, finding := r.eval(v, in)
		score += r.weight * sub
		if finding != nil {
			finding.Rule = r.name
			report.Findings = append(report.Findings, *finding)
		}
	}

	report.OverallScore = score
	report.Passed = !report.HasError() && score >= v.threshold
	report.Quality = qualityLevel(score)

	if v.logger != nil {
		v.logger.Debug("record validated",
			zap.String("document_id", record.DocumentID),
			zap.Float64("score", report.OverallScore),
			zap.Bool("passed", report.Passed),
			zap.Int("findings", len(report.Findings)))
	}
	return report
}

// qualityLevel bands a score for operator triage.
func qualityLevel(score float64) models.QualityLevel {
	switch {
	case score >= 0.9:
		return models.QualityExcellent
	case score >= 0.7:
		return models.QualityGood
	case score >= 0.5:
		return models.QualityAcceptable
	case score >= 0.3:
		return models.QualityPoor
	default:
		return models.QualityFailed
	}
}

func evalName(_ *Validator, in input) (float64, *models.Finding) {
	if in.record.Identity.Name != "" {
		return 1, nil
	}
	return 0, &models.Finding{
		Severity: models.SeverityError,
		Message:  "no name could be extracted",
	}
}

func evalDatedPosition(_ *Validator, in input) (float64, *models.Finding) {
	for _, p := range in.record.Positions {
		if p.Period.Parsed() {
			return 1, nil
		}
	}
	return 0, &models.Finding{
		Severity: models.SeverityError,
		Message:  "no work experience entry with a parseable period",
	}
}

func evalEducation(_ *Validator, in input) (float64, *models.Finding) {
	if len(in.record.Education) > 0 {
		return 1, nil
	}
	return 0, &models.Finding{
		Severity: models.SeverityWarning,
		Message:  "no education entries found",
	}
}

// evalDateConfidence scores the fraction of dated entries whose period parsed
// with high confidence. A record with no entries at all scores zero here; the
// dated-position rule already carries the error for that case.
func evalDateConfidence(_ *Validator, in input) (float64, *models.Finding) {
	var total, confident int
	for _, p := range in.record.Positions {
		total++
		if p.Period.ParseConfidence >= confidentParse {
			confident++
		}
	}
	for _, e := range in.record.Education {
		total++
		if e.Period.ParseConfidence >= confidentParse {
			confident++
		}
	}
	if total == 0 {
		return 0, &models.Finding{
			Severity: models.SeverityWarning,
			Message:  "no dated entries to assess",
		}
	}
	ratio := float64(confident) / float64(total)
	if ratio < 0.5 {
		return ratio, &models.Finding{
			Severity: models.SeverityWarning,
			Message:  fmt.Sprintf("only %d of %d entries have confidently parsed periods", confident, total),
		}
	}
	return ratio, nil
}

func evalTextLength(v *Validator, in input) (float64, *models.Finding) {
	var total int
	for _, sec := range in.sections {
		total += len(sec.Text)
	}
	if v.minTextChars <= 0 || total >= v.minTextChars {
		return 1, nil
	}
	return 0, &models.Finding{
		Severity: models.SeverityWarning,
		Message:  fmt.Sprintf("extracted text is %d chars, below the %d minimum", total, v.minTextChars),
	}
}

func evalNoDuplicates(_ *Validator, in input) (float64, *models.Finding) {
	seen := make(map[string]string, len(in.record.Positions))
	for _, p := range in.record.Positions {
		key := duplicateKey(p)
		if key == "" {
			continue
		}
		if prev, ok := seen[key]; ok {
			return 0, &models.Finding{
				Severity: models.SeverityWarning,
				Message:  fmt.Sprintf("positions %q and %q look like the same entry", prev, p.Organization),
			}
		}
		seen[key] = p.Organization
	}
	return 1, nil
}
