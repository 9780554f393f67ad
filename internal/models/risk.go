package models

// RiskLevel is the coarse bucket returned by the scoring model.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// RiskAssessment is the advisory verdict for a prospective payment.
// On failure Success is false and Error explains why; callers may proceed without a score.
type RiskAssessment struct {
	Success   bool
	RiskScore float64
	RiskLevel RiskLevel
	Error     string
}
