package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/coverline/claimlens/internal/core/domain"
	"github.com/coverline/claimlens/internal/core/ports"
)

type statusCall struct {
	status domain.ClaimStatus
	reason string
}

type intakeRepoFake struct {
	claim       *domain.Claim
	getErr      error
	createErr   error
	created     *domain.Claim
	docs        []domain.ClaimDocument
	listErr     error
	added       []*domain.ClaimDocument
	addErr      error
	statusCalls []statusCall
	statusErr   error
	record      *domain.AssessmentRecord
	recordErr   error
}

func (f *intakeRepoFake) CreateClaim(_ context.Context, c *domain.Claim) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = c
	return nil
}

func (f *intakeRepoFake) GetClaim(context.Context, string) (*domain.Claim, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copyClaim := *f.claim
	return &copyClaim, nil
}

func (f *intakeRepoFake) UpdateClaimStatus(_ context.Context, _ string, status domain.ClaimStatus, reason string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, reason: reason})
	return f.statusErr
}

func (f *intakeRepoFake) AddDocument(_ context.Context, d *domain.ClaimDocument) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, d)
	return nil
}

func (f *intakeRepoFake) ListDocuments(context.Context, string) ([]domain.ClaimDocument, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.ClaimDocument(nil), f.docs...), nil
}

func (f *intakeRepoFake) UpdateDocumentAnalysis(context.Context, string, int, []string) error {
	return nil
}

func (f *intakeRepoFake) SaveAssessment(context.Context, string, *domain.Assessment, string) error {
	return nil
}

func (f *intakeRepoFake) GetAssessment(context.Context, string) (*domain.AssessmentRecord, error) {
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	return f.record, nil
}

type storageFake struct {
	saved map[string][]byte
	err   error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.saved == nil {
		f.saved = map[string][]byte{}
	}
	f.saved[key] = b
	return nil
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishClaimQueued(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, id)
	return nil
}

func (f *queueFake) SubscribeClaimQueued(context.Context, func(context.Context, string) error) error {
	return nil
}

const testMaxUploadBytes = 1 << 20

func newIntakeUC(repo *intakeRepoFake, storage *storageFake, queue *queueFake) *ClaimIntakeUseCase {
	return NewClaimIntakeUseCase(repo, storage, queue, testMaxUploadBytes)
}

func pdfBody() []byte {
	return []byte("%PDF-1.4\nfake pdf payload")
}

func TestCreateClaimSuccess(t *testing.T) {
	repo := &intakeRepoFake{}
	uc := newIntakeUC(repo, &storageFake{}, &queueFake{})

	claim, err := uc.CreateClaim(context.Background(), ports.NewClaimInput{
		PolicyNumber: "  POL-2024-001  ",
		Claimant:     "Jordan Reyes",
		Description:  "rear-end collision",
	})
	if err != nil {
		t.Fatalf("CreateClaim() error = %v", err)
	}
	if claim.ID == "" {
		t.Fatal("expected generated claim id")
	}
	if claim.PolicyNumber != "POL-2024-001" {
		t.Fatalf("expected trimmed policy number, got %q", claim.PolicyNumber)
	}
	if claim.Status != domain.ClaimStatusOpen {
		t.Fatalf("expected status open, got %q", claim.Status)
	}
	if repo.created == nil || repo.created.ID != claim.ID {
		t.Fatal("expected claim persisted through repository")
	}
}

func TestCreateClaimRequiresPolicyAndClaimant(t *testing.T) {
	uc := newIntakeUC(&intakeRepoFake{}, &storageFake{}, &queueFake{})

	_, err := uc.CreateClaim(context.Background(), ports.NewClaimInput{Claimant: "Jordan Reyes"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing policy number, got %v", err)
	}

	_, err = uc.CreateClaim(context.Background(), ports.NewClaimInput{PolicyNumber: "POL-1"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing claimant, got %v", err)
	}
}

func TestAttachDocumentSuccess(t *testing.T) {
	repo := &intakeRepoFake{claim: &domain.Claim{ID: "claim-1", Status: domain.ClaimStatusOpen}}
	storage := &storageFake{}
	uc := newIntakeUC(repo, storage, &queueFake{})

	body := pdfBody()
	doc, err := uc.AttachDocument(context.Background(), "claim-1", domain.DocTypeContract,
		"policy contract.pdf", int64(len(body)), bytes.NewReader(body))
	if err != nil {
		t.Fatalf("AttachDocument() error = %v", err)
	}
	if doc.ID == "" {
		t.Fatal("expected generated document id")
	}
	if !strings.HasSuffix(doc.StorageKey, "_policy_contract.pdf") {
		t.Fatalf("expected sanitized storage key, got %q", doc.StorageKey)
	}
	if !strings.HasPrefix(doc.StorageKey, doc.ID+"_") {
		t.Fatalf("expected storage key prefixed with document id, got %q", doc.StorageKey)
	}
	if saved, ok := storage.saved[doc.StorageKey]; !ok || !bytes.Equal(saved, body) {
		t.Fatal("expected full upload body saved, including the sniffed header")
	}
	if len(repo.added) != 1 || repo.added[0].DocType != domain.DocTypeContract {
		t.Fatalf("expected document metadata persisted, got %+v", repo.added)
	}
}

func TestAttachDocumentRejectsNonPDFContent(t *testing.T) {
	repo := &intakeRepoFake{claim: &domain.Claim{ID: "claim-1"}}
	storage := &storageFake{}
	uc := newIntakeUC(repo, storage, &queueFake{})

	body := []byte("<html>not a pdf</html>")
	_, err := uc.AttachDocument(context.Background(), "claim-1", domain.DocTypeContract,
		"contract.pdf", int64(len(body)), bytes.NewReader(body))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(storage.saved) != 0 {
		t.Fatal("expected nothing saved for rejected upload")
	}
}

func TestAttachDocumentRejectsWrongExtension(t *testing.T) {
	repo := &intakeRepoFake{claim: &domain.Claim{ID: "claim-1"}}
	uc := newIntakeUC(repo, &storageFake{}, &queueFake{})

	body := pdfBody()
	_, err := uc.AttachDocument(context.Background(), "claim-1", domain.DocTypeInspection,
		"photo.jpg", int64(len(body)), bytes.NewReader(body))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAttachDocumentRejectsOversizedUpload(t *testing.T) {
	repo := &intakeRepoFake{claim: &domain.Claim{ID: "claim-1"}}
	uc := newIntakeUC(repo, &storageFake{}, &queueFake{})

	_, err := uc.AttachDocument(context.Background(), "claim-1", domain.DocTypeContract,
		"contract.pdf", testMaxUploadBytes+1, bytes.NewReader(pdfBody()))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAttachDocumentRejectsUnknownDocType(t *testing.T) {
	repo := &intakeRepoFake{claim: &domain.Claim{ID: "claim-1"}}
	uc := newIntakeUC(repo, &storageFake{}, &queueFake{})

	body := pdfBody()
	_, err := uc.AttachDocument(context.Background(), "claim-1", domain.DocType("receipt"),
		"receipt.pdf", int64(len(body)), bytes.NewReader(body))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAttachDocumentUnknownClaim(t *testing.T) {
	repo := &intakeRepoFake{getErr: domain.WrapError(domain.ErrClaimNotFound, "get claim", errors.New("no rows"))}
	uc := newIntakeUC(repo, &storageFake{}, &queueFake{})

	body := pdfBody()
	_, err := uc.AttachDocument(context.Background(), "missing", domain.DocTypeContract,
		"contract.pdf", int64(len(body)), bytes.NewReader(body))
	if !domain.IsKind(err, domain.ErrClaimNotFound) {
		t.Fatalf("expected ErrClaimNotFound, got %v", err)
	}
}

func TestRequestAnalysisSuccess(t *testing.T) {
	repo := &intakeRepoFake{
		claim: &domain.Claim{ID: "claim-1", Status: domain.ClaimStatusOpen},
		docs:  []domain.ClaimDocument{{ID: "d1", DocType: domain.DocTypeContract}},
	}
	queue := &queueFake{}
	uc := newIntakeUC(repo, &storageFake{}, queue)

	claim, err := uc.RequestAnalysis(context.Background(), "claim-1")
	if err != nil {
		t.Fatalf("RequestAnalysis() error = %v", err)
	}
	if claim.Status != domain.ClaimStatusQueued {
		t.Fatalf("expected queued status, got %q", claim.Status)
	}
	if len(repo.statusCalls) != 1 || repo.statusCalls[0].status != domain.ClaimStatusQueued {
		t.Fatalf("unexpected status calls: %+v", repo.statusCalls)
	}
	if len(queue.published) != 1 || queue.published[0] != "claim-1" {
		t.Fatalf("expected claim published to queue, got %v", queue.published)
	}
}

func TestRequestAnalysisRequiresContract(t *testing.T) {
	repo := &intakeRepoFake{
		claim: &domain.Claim{ID: "claim-1", Status: domain.ClaimStatusOpen},
		docs:  []domain.ClaimDocument{{ID: "d1", DocType: domain.DocTypeInspection}},
	}
	uc := newIntakeUC(repo, &storageFake{}, &queueFake{})

	_, err := uc.RequestAnalysis(context.Background(), "claim-1")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(repo.statusCalls) != 0 {
		t.Fatalf("expected no status transition, got %+v", repo.statusCalls)
	}
}

func TestRequestAnalysisConflictsWhenInFlight(t *testing.T) {
	repo := &intakeRepoFake{claim: &domain.Claim{ID: "claim-1", Status: domain.ClaimStatusAnalyzing}}
	uc := newIntakeUC(repo, &storageFake{}, &queueFake{})

	_, err := uc.RequestAnalysis(context.Background(), "claim-1")
	if !domain.IsKind(err, domain.ErrAnalysisInFlight) {
		t.Fatalf("expected ErrAnalysisInFlight, got %v", err)
	}
}

func TestRequestAnalysisAllowsReanalysis(t *testing.T) {
	repo := &intakeRepoFake{
		claim: &domain.Claim{ID: "claim-1", Status: domain.ClaimStatusAssessed},
		docs:  []domain.ClaimDocument{{ID: "d1", DocType: domain.DocTypeContract}},
	}
	uc := newIntakeUC(repo, &storageFake{}, &queueFake{})

	claim, err := uc.RequestAnalysis(context.Background(), "claim-1")
	if err != nil {
		t.Fatalf("RequestAnalysis() error = %v", err)
	}
	if claim.Status != domain.ClaimStatusQueued {
		t.Fatalf("expected queued status, got %q", claim.Status)
	}
}

func TestRequestAnalysisRevertsStatusOnPublishFailure(t *testing.T) {
	repo := &intakeRepoFake{
		claim: &domain.Claim{ID: "claim-1", Status: domain.ClaimStatusOpen},
		docs:  []domain.ClaimDocument{{ID: "d1", DocType: domain.DocTypeContract}},
	}
	queue := &queueFake{err: errors.New("nats unavailable")}
	uc := newIntakeUC(repo, &storageFake{}, queue)

	_, err := uc.RequestAnalysis(context.Background(), "claim-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(repo.statusCalls) != 2 {
		t.Fatalf("expected queued then revert, got %+v", repo.statusCalls)
	}
	if repo.statusCalls[1].status != domain.ClaimStatusOpen {
		t.Fatalf("expected revert to open, got %+v", repo.statusCalls[1])
	}
}

func TestGetClaimSortsDocumentsCanonically(t *testing.T) {
	repo := &intakeRepoFake{
		claim: &domain.Claim{ID: "claim-1", Status: domain.ClaimStatusOpen},
		docs: []domain.ClaimDocument{
			{ID: "d2", DocType: domain.DocTypeHistory},
			{ID: "d1", DocType: domain.DocTypeContract},
		},
	}
	uc := newIntakeUC(repo, &storageFake{}, &queueFake{})

	claim, err := uc.GetClaim(context.Background(), "claim-1")
	if err != nil {
		t.Fatalf("GetClaim() error = %v", err)
	}
	if len(claim.Documents) != 2 || claim.Documents[0].DocType != domain.DocTypeContract {
		t.Fatalf("expected contract first, got %+v", claim.Documents)
	}
}

func TestGetAssessmentPropagatesNotReady(t *testing.T) {
	repo := &intakeRepoFake{
		claim:     &domain.Claim{ID: "claim-1", Status: domain.ClaimStatusOpen},
		recordErr: domain.WrapError(domain.ErrAssessmentNotReady, "get assessment", errors.New("no rows")),
	}
	uc := newIntakeUC(repo, &storageFake{}, &queueFake{})

	_, err := uc.GetAssessment(context.Background(), "claim-1")
	if !domain.IsKind(err, domain.ErrAssessmentNotReady) {
		t.Fatalf("expected ErrAssessmentNotReady, got %v", err)
	}
}

func TestBuildReport(t *testing.T) {
	assessment := domain.Assessment{
		Recommendation: domain.RecommendationDeny,
		RiskScore:      55,
		Confidence:     0.85,
		Reasoning:      []string{"critical finding fraud_indicator in contract: staged damage"},
		FindingsBySeverity: map[domain.Severity][]domain.Finding{
			domain.SeverityCritical: {{Category: domain.CategoryFraudIndicator, Severity: domain.SeverityCritical, SourceDocument: "contract"}},
			domain.SeverityHigh:     {{Category: domain.CategoryUnreportedDamage, Severity: domain.SeverityHigh, SourceDocument: "inspection"}},
			domain.SeverityMedium:   {},
		},
	}
	repo := &intakeRepoFake{
		claim: &domain.Claim{ID: "claim-1", PolicyNumber: "POL-9", Claimant: "Jordan Reyes", Status: domain.ClaimStatusAssessed},
		docs: []domain.ClaimDocument{
			{ID: "d2", DocType: domain.DocTypeInspection, Filename: "inspection.pdf", Pages: 4, KeyFindings: []string{"frame damage"}},
			{ID: "d1", DocType: domain.DocTypeContract, Filename: "contract.pdf", Pages: 12},
		},
		record: &domain.AssessmentRecord{
			ClaimID:    "claim-1",
			Assessment: assessment,
			Model:      "gpt-4",
			CreatedAt:  time.Now().UTC(),
		},
	}
	uc := newIntakeUC(repo, &storageFake{}, &queueFake{})

	report, err := uc.BuildReport(context.Background(), "claim-1")
	if err != nil {
		t.Fatalf("BuildReport() error = %v", err)
	}
	if report.Summary != "Coverage denied: 1 critical finding(s) across 2 document(s)." {
		t.Fatalf("unexpected summary: %q", report.Summary)
	}
	if report.Model != "gpt-4" {
		t.Fatalf("expected model carried into report, got %q", report.Model)
	}
	if report.GeneratedAt.IsZero() {
		t.Fatal("expected generation timestamp")
	}
	if len(report.Documents) != 2 || report.Documents[0].DocType != domain.DocTypeContract {
		t.Fatalf("expected canonical document order, got %+v", report.Documents)
	}
	if report.Documents[0].FindingCount != 1 {
		t.Fatalf("expected 1 finding attributed to contract, got %d", report.Documents[0].FindingCount)
	}
	if report.Documents[1].FindingCount != 1 {
		t.Fatalf("expected 1 finding attributed to inspection, got %d", report.Documents[1].FindingCount)
	}
}
