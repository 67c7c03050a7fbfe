package domain

import (
	"fmt"
	"time"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
)

// Severities returns all severities ordered from most to least severe.
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium}
}

type Category string

const (
	// Critical: each one is independently disqualifying.
	CategoryFraudIndicator    Category = "fraud_indicator"
	CategoryTitleIssue        Category = "title_issue"
	CategoryPolicyViolation   Category = "policy_violation"
	CategoryCoverageExclusion Category = "coverage_exclusion"

	// High: disqualifying in aggregate once they reach the red flag threshold.
	CategoryOdometerDiscrepancy Category = "odometer_discrepancy"
	CategoryPriorTotalLoss      Category = "prior_total_loss"
	CategoryUnreportedDamage    Category = "unreported_damage"

	// Medium: reviewable concerns that alone never block coverage.
	CategoryWearAndTear          Category = "wear_and_tear"
	CategoryMaintenanceIssue     Category = "maintenance_issue"
	CategoryPreExistingCondition Category = "pre_existing_condition"
	CategoryDelayedReporting     Category = "delayed_reporting"
	CategoryOther                Category = "other"
)

// categorySeverity is the single source of truth for finding severity.
// Findings never carry a severity of their own choosing; it is always
// derived from the category through this table.
var categorySeverity = map[Category]Severity{
	CategoryFraudIndicator:    SeverityCritical,
	CategoryTitleIssue:        SeverityCritical,
	CategoryPolicyViolation:   SeverityCritical,
	CategoryCoverageExclusion: SeverityCritical,

	CategoryOdometerDiscrepancy: SeverityHigh,
	CategoryPriorTotalLoss:      SeverityHigh,
	CategoryUnreportedDamage:    SeverityHigh,

	CategoryWearAndTear:          SeverityMedium,
	CategoryMaintenanceIssue:     SeverityMedium,
	CategoryPreExistingCondition: SeverityMedium,
	CategoryDelayedReporting:     SeverityMedium,
	CategoryOther:                SeverityMedium,
}

func SeverityFor(c Category) (Severity, bool) {
	sev, ok := categorySeverity[c]
	return sev, ok
}

func Categories() []Category {
	return []Category{
		CategoryFraudIndicator,
		CategoryTitleIssue,
		CategoryPolicyViolation,
		CategoryCoverageExclusion,
		CategoryOdometerDiscrepancy,
		CategoryPriorTotalLoss,
		CategoryUnreportedDamage,
		CategoryWearAndTear,
		CategoryMaintenanceIssue,
		CategoryPreExistingCondition,
		CategoryDelayedReporting,
		CategoryOther,
	}
}

// Finding is a single red flag raised against a claim document.
type Finding struct {
	Category       Category `json:"category"`
	Severity       Severity `json:"severity"`
	SourceDocument string   `json:"source_document"`
	Rationale      string   `json:"rationale"`
}

// NewFinding stamps the severity from the category table.
func NewFinding(category Category, sourceDocument, rationale string) (Finding, error) {
	sev, ok := SeverityFor(category)
	if !ok {
		return Finding{}, WrapError(ErrInvalidFinding, "new finding", fmt.Errorf("unknown category %q", category))
	}
	return Finding{
		Category:       category,
		Severity:       sev,
		SourceDocument: sourceDocument,
		Rationale:      rationale,
	}, nil
}

// Validate checks that the finding carries a known category and the
// severity that category maps to.
func (f Finding) Validate() error {
	sev, ok := SeverityFor(f.Category)
	if !ok {
		return WrapError(ErrInvalidFinding, "validate finding", fmt.Errorf("unknown category %q", f.Category))
	}
	if f.Severity != sev {
		return WrapError(ErrInvalidFinding, "validate finding",
			fmt.Errorf("severity %q does not match category %q (expected %q)", f.Severity, f.Category, sev))
	}
	return nil
}

type Recommendation string

const (
	RecommendationCover        Recommendation = "COVER"
	RecommendationCoverCaution Recommendation = "COVER_WITH_CAUTION"
	RecommendationDeny         Recommendation = "DENY"
)

// Assessment is the deterministic outcome of evaluating a claim's findings.
// It deliberately carries no timestamp: the same findings and confidence
// must always serialize to the same bytes.
type Assessment struct {
	Recommendation     Recommendation         `json:"recommendation"`
	RiskScore          int                    `json:"risk_score"`
	Confidence         float64                `json:"confidence"`
	Reasoning          []string               `json:"reasoning"`
	FindingsBySeverity map[Severity][]Finding `json:"findings_by_severity"`
}

// AssessmentRecord is a persisted assessment plus its provenance.
type AssessmentRecord struct {
	ClaimID    string     `json:"claim_id"`
	Assessment Assessment `json:"assessment"`
	Model      string     `json:"model"`
	CreatedAt  time.Time  `json:"created_at"`
}

// DocumentAnalysis is what the language-model extractor produces for a
// single document: taxonomy findings plus free-form key observations.
type DocumentAnalysis struct {
	DocType     DocType
	Findings    []Finding
	Confidence  float64
	KeyFindings []string
	TokensUsed  int
}
