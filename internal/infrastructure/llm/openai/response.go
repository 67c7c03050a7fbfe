package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/coverline/claimlens/internal/core/domain"
)

type modelFinding struct {
	Category  string `json:"category"`
	Rationale string `json:"rationale"`
}

type modelResponse struct {
	Findings    []modelFinding `json:"findings"`
	Confidence  *float64       `json:"confidence"`
	KeyFindings []string       `json:"key_findings"`
}

// parseAnalysis decodes the model's JSON answer and stamps every finding
// with the taxonomy severity and its source document. A response without a
// decodable JSON object or without a confidence value is rejected rather
// than guessed at.
func parseAnalysis(raw string, docType domain.DocType) (domain.DocumentAnalysis, error) {
	payload := extractJSONObject(raw)
	if payload == "" {
		return domain.DocumentAnalysis{}, domain.WrapError(domain.ErrInvalidInput, "parse model response",
			errors.New("response contains no JSON object"))
	}

	var decoded modelResponse
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return domain.DocumentAnalysis{}, domain.WrapError(domain.ErrInvalidInput, "parse model response", err)
	}
	if decoded.Confidence == nil {
		return domain.DocumentAnalysis{}, domain.WrapError(domain.ErrInvalidInput, "parse model response",
			errors.New("missing confidence"))
	}
	confidence := *decoded.Confidence
	if confidence < 0 || confidence > 1 {
		return domain.DocumentAnalysis{}, domain.WrapError(domain.ErrInvalidInput, "parse model response",
			fmt.Errorf("confidence %g out of range [0, 1]", confidence))
	}

	findings := make([]domain.Finding, 0, len(decoded.Findings))
	for _, mf := range decoded.Findings {
		finding, err := domain.NewFinding(normalizeCategory(mf.Category), string(docType), strings.TrimSpace(mf.Rationale))
		if err != nil {
			return domain.DocumentAnalysis{}, err
		}
		findings = append(findings, finding)
	}

	keyFindings := decoded.KeyFindings
	if keyFindings == nil {
		keyFindings = []string{}
	}

	return domain.DocumentAnalysis{
		DocType:     docType,
		Findings:    findings,
		Confidence:  confidence,
		KeyFindings: keyFindings,
	}, nil
}

// extractJSONObject cuts the first balanced-looking JSON object out of the
// model answer. Chat models routinely wrap the object in prose despite
// instructions not to.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return ""
}

// keywordCategories maps label fragments the model tends to invent onto
// taxonomy categories. Entries are checked in order, so disqualifying
// categories win over reviewable ones ("salvage title" is a title issue,
// not wear and tear).
var keywordCategories = []struct {
	keywords []string
	category domain.Category
}{
	{[]string{"fraud", "forgery", "forged", "staged", "stolen", "misrepresent"}, domain.CategoryFraudIndicator},
	{[]string{"salvage", "rebuilt", "title"}, domain.CategoryTitleIssue},
	{[]string{"violation", "racing", "commercial_use", "modification"}, domain.CategoryPolicyViolation},
	{[]string{"exclusion", "not_covered", "uncovered"}, domain.CategoryCoverageExclusion},
	{[]string{"odometer", "rollback", "mileage"}, domain.CategoryOdometerDiscrepancy},
	{[]string{"total_loss", "totaled", "write_off"}, domain.CategoryPriorTotalLoss},
	{[]string{"unreported", "undisclosed", "prior_damage", "previous_damage"}, domain.CategoryUnreportedDamage},
	{[]string{"wear", "corrosion", "rust"}, domain.CategoryWearAndTear},
	{[]string{"maintenance", "neglect"}, domain.CategoryMaintenanceIssue},
	{[]string{"pre_existing", "preexisting"}, domain.CategoryPreExistingCondition},
	{[]string{"delayed", "late_report", "late_notice"}, domain.CategoryDelayedReporting},
}

func normalizeCategory(raw string) domain.Category {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)

	if _, ok := domain.SeverityFor(domain.Category(s)); ok {
		return domain.Category(s)
	}
	for _, entry := range keywordCategories {
		for _, kw := range entry.keywords {
			if strings.Contains(s, kw) {
				return entry.category
			}
		}
	}
	return domain.CategoryOther
}
