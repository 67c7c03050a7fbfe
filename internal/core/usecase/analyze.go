package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/coverline/claimlens/internal/core/coverage"
	"github.com/coverline/claimlens/internal/core/domain"
	"github.com/coverline/claimlens/internal/core/ports"
)

type AnalyzeClaimUseCase struct {
	repo      ports.ClaimRepository
	extractor ports.TextExtractor
	analyzer  ports.FindingExtractor
	rules     coverage.Config
	model     string
}

func NewAnalyzeClaimUseCase(
	repo ports.ClaimRepository,
	extractor ports.TextExtractor,
	analyzer ports.FindingExtractor,
	rules coverage.Config,
	model string,
) *AnalyzeClaimUseCase {
	return &AnalyzeClaimUseCase{
		repo:      repo,
		extractor: extractor,
		analyzer:  analyzer,
		rules:     rules,
		model:     model,
	}
}

func (uc *AnalyzeClaimUseCase) AnalyzeByID(ctx context.Context, claimID string) (*domain.Assessment, error) {
	if err := uc.markStatus(ctx, claimID, domain.ClaimStatusAnalyzing, ""); err != nil {
		return nil, fmt.Errorf("set status=analyzing: %w", err)
	}

	assessment, err := uc.analysisPipeline(ctx, claimID)
	if err != nil {
		if failErr := uc.markFailed(ctx, claimID, err); failErr != nil {
			return nil, fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return nil, err
	}

	if err := uc.repo.SaveAssessment(ctx, claimID, assessment, uc.model); err != nil {
		err = fmt.Errorf("save assessment: %w", err)
		if failErr := uc.markFailed(ctx, claimID, err); failErr != nil {
			return nil, fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return nil, err
	}

	if err := uc.markStatus(ctx, claimID, domain.ClaimStatusAssessed, ""); err != nil {
		return nil, fmt.Errorf("set status=assessed: %w", err)
	}

	return assessment, nil
}

// analysisPipeline reads every document in canonical order and folds the
// per-document analyses into a single assessment. A failure on any one
// document fails the whole run: a decision made on partial evidence would
// systematically understate risk.
func (uc *AnalyzeClaimUseCase) analysisPipeline(ctx context.Context, claimID string) (*domain.Assessment, error) {
	docs, err := uc.loadDocuments(ctx, claimID)
	if err != nil {
		return nil, err
	}

	var findings []domain.Finding
	confidences := make([]float64, 0, len(docs))
	for i := range docs {
		analysis, err := uc.analyzeDocument(ctx, &docs[i])
		if err != nil {
			return nil, err
		}
		findings = append(findings, analysis.Findings...)
		confidences = append(confidences, analysis.Confidence)
	}

	assessment, err := coverage.Evaluate(findings, meanConfidence(confidences), uc.rules)
	if err != nil {
		return nil, fmt.Errorf("evaluate coverage: %w", err)
	}
	return &assessment, nil
}

func (uc *AnalyzeClaimUseCase) loadDocuments(ctx context.Context, claimID string) ([]domain.ClaimDocument, error) {
	docs, err := uc.repo.ListDocuments(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("list claim documents: %w", err)
	}
	if len(docs) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load claim documents", errors.New("claim has no documents"))
	}
	domain.SortDocumentsCanonical(docs)
	return docs, nil
}

func (uc *AnalyzeClaimUseCase) analyzeDocument(ctx context.Context, doc *domain.ClaimDocument) (domain.DocumentAnalysis, error) {
	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return domain.DocumentAnalysis{}, fmt.Errorf("extract text from %s document: %w", doc.DocType, err)
	}

	analysis, err := uc.analyzer.AnalyzeDocument(ctx, doc.DocType, text.Content)
	if err != nil {
		return domain.DocumentAnalysis{}, fmt.Errorf("analyze %s document: %w", doc.DocType, err)
	}

	if err := uc.repo.UpdateDocumentAnalysis(ctx, doc.ID, text.Pages, analysis.KeyFindings); err != nil {
		return domain.DocumentAnalysis{}, fmt.Errorf("save %s document analysis: %w", doc.DocType, err)
	}

	return analysis, nil
}

func meanConfidence(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func (uc *AnalyzeClaimUseCase) markStatus(ctx context.Context, claimID string, status domain.ClaimStatus, failureReason string) error {
	return uc.repo.UpdateClaimStatus(ctx, claimID, status, failureReason)
}

func (uc *AnalyzeClaimUseCase) markFailed(ctx context.Context, claimID string, analyzeErr error) error {
	if analyzeErr == nil {
		return nil
	}
	return uc.markStatus(ctx, claimID, domain.ClaimStatusFailed, analyzeErr.Error())
}
