package coverage

import (
	"fmt"

	"github.com/coverline/claimlens/internal/core/domain"
)

const (
	DefaultRedFlagThreshold    = 3
	DefaultConfidenceThreshold = 0.7

	riskWeightCritical = 40
	riskWeightHigh     = 15
	riskWeightMedium   = 5
	riskScoreCap       = 100
)

// Config carries the fixed decision thresholds. There is no per-claim
// tuning: every claim is judged by the same rules.
type Config struct {
	RedFlagThreshold    int
	ConfidenceThreshold float64
}

func DefaultConfig() Config {
	return Config{
		RedFlagThreshold:    DefaultRedFlagThreshold,
		ConfidenceThreshold: DefaultConfidenceThreshold,
	}
}

func (c Config) Validate() error {
	if c.RedFlagThreshold < 1 {
		return domain.WrapError(domain.ErrInvalidConfig, "validate coverage config",
			fmt.Errorf("red flag threshold must be at least 1, got %d", c.RedFlagThreshold))
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return domain.WrapError(domain.ErrInvalidConfig, "validate coverage config",
			fmt.Errorf("confidence threshold must be within [0, 1], got %g", c.ConfidenceThreshold))
	}
	return nil
}

// Evaluate applies the decision rules to the findings extracted from a
// claim's documents. It is pure: no clock, no I/O, and identical inputs
// always produce an identical assessment.
//
// Decision order: any critical finding, or a count of high findings at or
// above the red flag threshold, denies the claim. Otherwise any high
// finding, or more than one medium finding, recommends coverage with
// caution. A clean claim is covered, unless extraction confidence fell
// strictly below the configured floor, which downgrades the cover to a
// caution.
func Evaluate(findings []domain.Finding, confidence float64, cfg Config) (domain.Assessment, error) {
	if err := cfg.Validate(); err != nil {
		return domain.Assessment{}, err
	}
	if confidence < 0 || confidence > 1 {
		return domain.Assessment{}, domain.WrapError(domain.ErrInvalidConfig, "evaluate coverage",
			fmt.Errorf("confidence must be within [0, 1], got %g", confidence))
	}

	buckets := map[domain.Severity][]domain.Finding{
		domain.SeverityCritical: {},
		domain.SeverityHigh:     {},
		domain.SeverityMedium:   {},
	}
	for _, f := range findings {
		if err := f.Validate(); err != nil {
			return domain.Assessment{}, err
		}
		buckets[f.Severity] = append(buckets[f.Severity], f)
	}

	critical := buckets[domain.SeverityCritical]
	high := buckets[domain.SeverityHigh]
	medium := buckets[domain.SeverityMedium]

	risk := riskWeightCritical*len(critical) + riskWeightHigh*len(high) + riskWeightMedium*len(medium)
	if risk > riskScoreCap {
		risk = riskScoreCap
	}

	var recommendation domain.Recommendation
	var reasoning []string

	switch {
	case len(critical) > 0 || len(high) >= cfg.RedFlagThreshold:
		recommendation = domain.RecommendationDeny
		for _, f := range critical {
			reasoning = append(reasoning, fmt.Sprintf("critical finding %s in %s: %s", f.Category, f.SourceDocument, f.Rationale))
		}
		if len(high) >= cfg.RedFlagThreshold {
			reasoning = append(reasoning, fmt.Sprintf("high-severity findings reached the red flag threshold (%d >= %d)", len(high), cfg.RedFlagThreshold))
		}
	case len(high) > 0 || len(medium) > 1:
		recommendation = domain.RecommendationCoverCaution
		for _, f := range high {
			reasoning = append(reasoning, fmt.Sprintf("high finding %s in %s: %s", f.Category, f.SourceDocument, f.Rationale))
		}
		// A lone medium finding never triggers caution, so it is not a
		// contributing factor and gets no line.
		if len(medium) > 1 {
			for _, f := range medium {
				reasoning = append(reasoning, fmt.Sprintf("medium finding %s in %s: %s", f.Category, f.SourceDocument, f.Rationale))
			}
		}
	default:
		recommendation = domain.RecommendationCover
		reasoning = append(reasoning, "no disqualifying findings identified")
	}

	if recommendation == domain.RecommendationCover && confidence < cfg.ConfidenceThreshold {
		recommendation = domain.RecommendationCoverCaution
		reasoning = append(reasoning, fmt.Sprintf("extraction confidence %.2f below required %.2f", confidence, cfg.ConfidenceThreshold))
	}

	return domain.Assessment{
		Recommendation:     recommendation,
		RiskScore:          risk,
		Confidence:         confidence,
		Reasoning:          reasoning,
		FindingsBySeverity: buckets,
	}, nil
}
