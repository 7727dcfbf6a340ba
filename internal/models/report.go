package models

// Severity grades a validation finding.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Finding is one named validation result with a human-readable message.
type Finding struct {
	Severity Severity `json:"severity"`
	Rule     string   `json:"rule"`
	Message  string   `json:"message"`
}

// QualityLevel bands an overall score for operator triage.
type QualityLevel string

const (
	QualityExcellent  QualityLevel = "excellent"
	QualityGood       QualityLevel = "good"
	QualityAcceptable QualityLevel = "acceptable"
	QualityPoor       QualityLevel = "poor"
	QualityFailed     QualityLevel = "failed"
)

// ValidationReport is the validator's verdict on a canonical record.
// Passed is true iff no error-severity finding exists and OverallScore
// meets the configured threshold. Findings are in rule-evaluation order.
type ValidationReport struct {
	OverallScore float64      `json:"overall_score"`
	Findings     []Finding    `json:"findings"`
	Passed       bool         `json:"passed"`
	Quality      QualityLevel `json:"quality"`
}

// HasError reports whether any finding has error severity.
func (r *ValidationReport) HasError() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}
