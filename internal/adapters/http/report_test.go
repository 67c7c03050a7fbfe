package httpadapter

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/coverline/claimlens/internal/config"
	"github.com/coverline/claimlens/internal/core/domain"
)

func testReport(t *testing.T) *domain.ClaimReport {
	t.Helper()
	finding, err := domain.NewFinding(domain.CategoryFraudIndicator, "adjuster", "loss appears staged")
	if err != nil {
		t.Fatalf("NewFinding() error = %v", err)
	}
	return &domain.ClaimReport{
		ClaimID:      "c-1",
		PolicyNumber: "POL-9",
		Claimant:     "Jane Renter",
		Summary:      "Coverage denied: 1 critical finding(s) across 2 document(s).",
		Assessment: domain.Assessment{
			Recommendation: domain.RecommendationDeny,
			RiskScore:      40,
			Confidence:     0.9,
			Reasoning:      []string{"critical finding fraud_indicator in adjuster: loss appears staged"},
			FindingsBySeverity: map[domain.Severity][]domain.Finding{
				domain.SeverityCritical: {finding},
				domain.SeverityHigh:     {},
				domain.SeverityMedium:   {},
			},
		},
		Documents: []domain.ReportDocument{
			{DocType: domain.DocTypeContract, Filename: "policy.pdf", Pages: 12, FindingCount: 0, KeyFindings: []string{}},
			{DocType: domain.DocTypeAdjuster, Filename: "notes.pdf", Pages: 2, FindingCount: 1, KeyFindings: []string{"claimant account inconsistent"}},
		},
		Model:       "gpt-4",
		GeneratedAt: time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC),
	}
}

func TestDownloadReportJSONAttachment(t *testing.T) {
	handler := newClaimHandler(config.Config{}, &intakeFake{report: testReport(t)})

	req := httptest.NewRequest(http.MethodGet, "/v1/claims/c-1/report", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	wantDisposition := `attachment; filename="coverage_analysis_20260825_103000.json"`
	if got := res.Header().Get("Content-Disposition"); got != wantDisposition {
		t.Fatalf("unexpected disposition %q, want %q", got, wantDisposition)
	}

	var resp struct {
		ClaimID    string `json:"claim_id"`
		Summary    string `json:"summary"`
		Assessment struct {
			Recommendation string `json:"recommendation"`
		} `json:"assessment"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if resp.ClaimID != "c-1" || resp.Assessment.Recommendation != "DENY" {
		t.Fatalf("unexpected report payload: %+v", resp)
	}
	if resp.Summary == "" {
		t.Fatalf("expected summary line in report")
	}
}

func TestDownloadReportXLSXWorkbook(t *testing.T) {
	handler := newClaimHandler(config.Config{}, &intakeFake{report: testReport(t)})

	req := httptest.NewRequest(http.MethodGet, "/v1/claims/c-1/report?format=xlsx", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	wantDisposition := `attachment; filename="coverage_analysis_20260825_103000.xlsx"`
	if got := res.Header().Get("Content-Disposition"); got != wantDisposition {
		t.Fatalf("unexpected disposition %q, want %q", got, wantDisposition)
	}

	workbook, err := excelize.OpenReader(bytes.NewReader(res.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer workbook.Close()

	recommendation, err := workbook.GetCellValue("Summary", "B4")
	if err != nil {
		t.Fatalf("GetCellValue() error = %v", err)
	}
	if recommendation != "DENY" {
		t.Fatalf("expected recommendation DENY in summary sheet, got %q", recommendation)
	}

	findings, err := workbook.GetRows("Findings")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("expected header plus one finding row, got %d rows", len(findings))
	}
	if findings[1][1] != "fraud_indicator" || findings[1][2] != "adjuster" {
		t.Fatalf("unexpected finding row: %v", findings[1])
	}

	documents, err := workbook.GetRows("Documents")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(documents) != 3 {
		t.Fatalf("expected header plus two document rows, got %d rows", len(documents))
	}
}

func TestDownloadReportRejectsUnknownFormat(t *testing.T) {
	handler := newClaimHandler(config.Config{}, &intakeFake{report: testReport(t)})

	req := httptest.NewRequest(http.MethodGet, "/v1/claims/c-1/report?format=pdf", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}
