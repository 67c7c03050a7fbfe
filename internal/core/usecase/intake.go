package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coverline/claimlens/internal/core/domain"
	"github.com/coverline/claimlens/internal/core/ports"
)

var pdfMagic = []byte("%PDF-")

type ClaimIntakeUseCase struct {
	repo           ports.ClaimRepository
	storage        ports.ObjectStorage
	queue          ports.AnalysisQueue
	maxUploadBytes int64
}

func NewClaimIntakeUseCase(
	repo ports.ClaimRepository,
	storage ports.ObjectStorage,
	queue ports.AnalysisQueue,
	maxUploadBytes int64,
) *ClaimIntakeUseCase {
	return &ClaimIntakeUseCase{
		repo:           repo,
		storage:        storage,
		queue:          queue,
		maxUploadBytes: maxUploadBytes,
	}
}

func (uc *ClaimIntakeUseCase) CreateClaim(ctx context.Context, input ports.NewClaimInput) (*domain.Claim, error) {
	policyNumber := strings.TrimSpace(input.PolicyNumber)
	claimant := strings.TrimSpace(input.Claimant)
	if policyNumber == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create claim", errors.New("policy_number is required"))
	}
	if claimant == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create claim", errors.New("claimant is required"))
	}

	now := time.Now().UTC()
	claim := &domain.Claim{
		ID:           uuid.NewString(),
		PolicyNumber: policyNumber,
		Claimant:     claimant,
		Description:  strings.TrimSpace(input.Description),
		Status:       domain.ClaimStatusOpen,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := uc.repo.CreateClaim(ctx, claim); err != nil {
		return nil, fmt.Errorf("create claim record: %w", err)
	}

	return claim, nil
}

func (uc *ClaimIntakeUseCase) AttachDocument(
	ctx context.Context,
	claimID string,
	docType domain.DocType,
	filename string,
	size int64,
	body io.Reader,
) (*domain.ClaimDocument, error) {
	if _, err := uc.repo.GetClaim(ctx, claimID); err != nil {
		return nil, err
	}
	if _, err := domain.ParseDocType(string(docType)); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "attach document", errors.New("empty upload"))
	}
	if size > uc.maxUploadBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "attach document",
			fmt.Errorf("file size %d exceeds limit %d", size, uc.maxUploadBytes))
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return nil, domain.WrapError(domain.ErrInvalidInput, "attach document",
			fmt.Errorf("unsupported file extension %q, only PDF is accepted", filepath.Ext(filename)))
	}

	// Sniff the header before touching storage: extension checks are
	// cheap to fool, the magic bytes are what the extractor relies on.
	magic := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(body, magic); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "attach document", fmt.Errorf("read upload header: %w", err))
	}
	if !bytes.Equal(magic, pdfMagic) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "attach document", errors.New("file content is not a PDF"))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))

	if err := uc.storage.Save(ctx, storageKey, io.MultiReader(bytes.NewReader(magic), body)); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc := &domain.ClaimDocument{
		ID:          id,
		ClaimID:     claimID,
		DocType:     docType,
		Filename:    filename,
		StorageKey:  storageKey,
		SizeBytes:   size,
		KeyFindings: []string{},
		UploadedAt:  time.Now().UTC(),
	}

	if err := uc.repo.AddDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document metadata: %w", err)
	}

	return doc, nil
}

func (uc *ClaimIntakeUseCase) RequestAnalysis(ctx context.Context, claimID string) (*domain.Claim, error) {
	claim, err := uc.repo.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.InFlight() {
		return nil, domain.WrapError(domain.ErrAnalysisInFlight, "request analysis",
			fmt.Errorf("claim is already %s", claim.Status))
	}

	docs, err := uc.repo.ListDocuments(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("list claim documents: %w", err)
	}
	if !hasDocType(docs, domain.DocTypeContract) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "request analysis",
			errors.New("a contract document is required before analysis"))
	}

	if err := uc.repo.UpdateClaimStatus(ctx, claimID, domain.ClaimStatusQueued, ""); err != nil {
		return nil, fmt.Errorf("set status=queued: %w", err)
	}

	if err := uc.queue.PublishClaimQueued(ctx, claimID); err != nil {
		// Put the claim back so a later request is not stuck behind a
		// run that never made it onto the queue.
		if revertErr := uc.repo.UpdateClaimStatus(ctx, claimID, claim.Status, claim.FailureReason); revertErr != nil {
			return nil, fmt.Errorf("publish analysis job: %w; revert status: %v", err, revertErr)
		}
		return nil, fmt.Errorf("publish analysis job: %w", err)
	}

	claim.Status = domain.ClaimStatusQueued
	claim.FailureReason = ""
	return claim, nil
}

func (uc *ClaimIntakeUseCase) GetClaim(ctx context.Context, claimID string) (*domain.Claim, error) {
	claim, err := uc.repo.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}

	docs, err := uc.repo.ListDocuments(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("list claim documents: %w", err)
	}
	domain.SortDocumentsCanonical(docs)
	claim.Documents = docs

	return claim, nil
}

func (uc *ClaimIntakeUseCase) GetAssessment(ctx context.Context, claimID string) (*domain.AssessmentRecord, error) {
	if _, err := uc.repo.GetClaim(ctx, claimID); err != nil {
		return nil, err
	}
	return uc.repo.GetAssessment(ctx, claimID)
}

func (uc *ClaimIntakeUseCase) BuildReport(ctx context.Context, claimID string) (*domain.ClaimReport, error) {
	claim, err := uc.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	record, err := uc.repo.GetAssessment(ctx, claimID)
	if err != nil {
		return nil, err
	}

	findingCounts := countFindingsBySource(record.Assessment)
	docs := make([]domain.ReportDocument, 0, len(claim.Documents))
	for _, d := range claim.Documents {
		docs = append(docs, domain.ReportDocument{
			DocType:      d.DocType,
			Filename:     d.Filename,
			Pages:        d.Pages,
			FindingCount: findingCounts[string(d.DocType)],
			KeyFindings:  d.KeyFindings,
		})
	}

	return &domain.ClaimReport{
		ClaimID:      claim.ID,
		PolicyNumber: claim.PolicyNumber,
		Claimant:     claim.Claimant,
		Summary:      summarize(record.Assessment, len(claim.Documents)),
		Assessment:   record.Assessment,
		Documents:    docs,
		Model:        record.Model,
		GeneratedAt:  time.Now().UTC(),
	}, nil
}

func summarize(a domain.Assessment, documents int) string {
	critical := len(a.FindingsBySeverity[domain.SeverityCritical])
	high := len(a.FindingsBySeverity[domain.SeverityHigh])
	medium := len(a.FindingsBySeverity[domain.SeverityMedium])
	total := critical + high + medium

	switch a.Recommendation {
	case domain.RecommendationDeny:
		if critical > 0 {
			return fmt.Sprintf("Coverage denied: %d critical finding(s) across %d document(s).", critical, documents)
		}
		return fmt.Sprintf("Coverage denied: %d high-severity finding(s) reached the red flag threshold.", high)
	case domain.RecommendationCoverCaution:
		if total == 0 {
			return "Coverage recommended with caution: extraction confidence below the configured threshold."
		}
		return fmt.Sprintf("Coverage recommended with caution: %d finding(s) warrant additional review.", total)
	default:
		return fmt.Sprintf("Coverage recommended: no disqualifying findings across %d document(s).", documents)
	}
}

func hasDocType(docs []domain.ClaimDocument, dt domain.DocType) bool {
	for _, d := range docs {
		if d.DocType == dt {
			return true
		}
	}
	return false
}

func countFindingsBySource(a domain.Assessment) map[string]int {
	counts := map[string]int{}
	for _, findings := range a.FindingsBySeverity {
		for _, f := range findings {
			counts[f.SourceDocument]++
		}
	}
	return counts
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.pdf"
	}
	return base
}
