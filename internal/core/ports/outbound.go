package ports

import (
	"context"
	"io"

	"github.com/coverline/claimlens/internal/core/domain"
)

// ClaimRepository persists claims, their documents and assessments.
type ClaimRepository interface {
	CreateClaim(ctx context.Context, claim *domain.Claim) error
	GetClaim(ctx context.Context, id string) (*domain.Claim, error)
	UpdateClaimStatus(ctx context.Context, id string, status domain.ClaimStatus, failureReason string) error
	AddDocument(ctx context.Context, doc *domain.ClaimDocument) error
	ListDocuments(ctx context.Context, claimID string) ([]domain.ClaimDocument, error)
	UpdateDocumentAnalysis(ctx context.Context, documentID string, pages int, keyFindings []string) error
	SaveAssessment(ctx context.Context, claimID string, assessment *domain.Assessment, model string) error
	GetAssessment(ctx context.Context, claimID string) (*domain.AssessmentRecord, error)
}

// ObjectStorage stores uploaded claim documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// AnalysisQueue publishes/consumes claim analysis jobs.
type AnalysisQueue interface {
	PublishClaimQueued(ctx context.Context, claimID string) error
	SubscribeClaimQueued(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor recovers plain text from a stored claim document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.ClaimDocument) (domain.DocumentText, error)
}

// FindingExtractor turns document text into taxonomy findings.
type FindingExtractor interface {
	AnalyzeDocument(ctx context.Context, docType domain.DocType, text string) (domain.DocumentAnalysis, error)
}
