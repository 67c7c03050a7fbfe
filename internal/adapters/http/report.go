package httpadapter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/coverline/claimlens/internal/core/domain"
)

func (rt *Router) downloadReport(w http.ResponseWriter, r *http.Request) {
	report, err := rt.intake.BuildReport(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	switch format {
	case "json":
		rt.metrics.RecordReportDownloaded("json")
		writeReportJSON(w, report)
	case "xlsx":
		rt.metrics.RecordReportDownloaded("xlsx")
		writeReportXLSX(w, report)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("unsupported report format %q, use json or xlsx", format),
		})
	}
}

func reportFilename(report *domain.ClaimReport, ext string) string {
	return fmt.Sprintf("coverage_analysis_%s.%s", report.GeneratedAt.Format("20060102_150405"), ext)
}

func writeReportJSON(w http.ResponseWriter, report *domain.ClaimReport) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reportFilename(report, "json")))

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		slog.Error("write_report_json_failed", "claim_id", report.ClaimID, "error", err)
	}
}

func writeReportXLSX(w http.ResponseWriter, report *domain.ClaimReport) {
	workbook, err := buildReportWorkbook(report)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "build report workbook"})
		slog.Error("build_report_workbook_failed", "claim_id", report.ClaimID, "error", err)
		return
	}
	defer func() {
		_ = workbook.Close()
	}()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reportFilename(report, "xlsx")))
	if err := workbook.Write(w); err != nil {
		slog.Error("write_report_xlsx_failed", "claim_id", report.ClaimID, "error", err)
	}
}

func buildReportWorkbook(report *domain.ClaimReport) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return nil, err
	}

	summary := [][]any{
		{"Claim ID", report.ClaimID},
		{"Policy Number", report.PolicyNumber},
		{"Claimant", report.Claimant},
		{"Recommendation", string(report.Assessment.Recommendation)},
		{"Risk Score", report.Assessment.RiskScore},
		{"Confidence", report.Assessment.Confidence},
		{"Summary", report.Summary},
		{"Model", report.Model},
		{"Generated At", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
	}
	for i, row := range summary {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow("Summary", cell, &row); err != nil {
			return nil, err
		}
	}

	if err := writeRowsSheet(f, "Reasoning", [][]any{{"#", "Reasoning"}}, reasoningRows(report)); err != nil {
		return nil, err
	}
	if err := writeRowsSheet(f, "Findings", [][]any{{"Severity", "Category", "Source Document", "Rationale"}}, findingRows(report)); err != nil {
		return nil, err
	}
	if err := writeRowsSheet(f, "Documents", [][]any{{"Document Type", "Filename", "Pages", "Findings", "Key Findings"}}, documentRows(report)); err != nil {
		return nil, err
	}

	return f, nil
}

func writeRowsSheet(f *excelize.File, sheet string, header, rows [][]any) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	for i, row := range append(header, rows...) {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func reasoningRows(report *domain.ClaimReport) [][]any {
	rows := make([][]any, 0, len(report.Assessment.Reasoning))
	for i, line := range report.Assessment.Reasoning {
		rows = append(rows, []any{i + 1, line})
	}
	return rows
}

func findingRows(report *domain.ClaimReport) [][]any {
	var rows [][]any
	for _, severity := range domain.Severities() {
		for _, finding := range report.Assessment.FindingsBySeverity[severity] {
			rows = append(rows, []any{
				string(finding.Severity),
				string(finding.Category),
				finding.SourceDocument,
				finding.Rationale,
			})
		}
	}
	return rows
}

func documentRows(report *domain.ClaimReport) [][]any {
	rows := make([][]any, 0, len(report.Documents))
	for _, doc := range report.Documents {
		rows = append(rows, []any{
			string(doc.DocType),
			doc.Filename,
			doc.Pages,
			doc.FindingCount,
			strings.Join(doc.KeyFindings, "; "),
		})
	}
	return rows
}
