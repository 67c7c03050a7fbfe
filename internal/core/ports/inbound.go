package ports

import (
	"context"
	"io"

	"github.com/coverline/claimlens/internal/core/domain"
)

// ClaimIntake is the inbound contract for claim lifecycle orchestration.
type ClaimIntake interface {
	CreateClaim(ctx context.Context, input NewClaimInput) (*domain.Claim, error)
	AttachDocument(ctx context.Context, claimID string, docType domain.DocType, filename string, size int64, body io.Reader) (*domain.ClaimDocument, error)
	RequestAnalysis(ctx context.Context, claimID string) (*domain.Claim, error)
	GetClaim(ctx context.Context, claimID string) (*domain.Claim, error)
	GetAssessment(ctx context.Context, claimID string) (*domain.AssessmentRecord, error)
	BuildReport(ctx context.Context, claimID string) (*domain.ClaimReport, error)
}

// NewClaimInput carries the caller-supplied fields of a fresh claim.
type NewClaimInput struct {
	PolicyNumber string `json:"policy_number"`
	Claimant     string `json:"claimant"`
	Description  string `json:"description"`
}

// ClaimAnalyzer is the inbound contract for asynchronous claim analysis.
type ClaimAnalyzer interface {
	AnalyzeByID(ctx context.Context, claimID string) (*domain.Assessment, error)
}
