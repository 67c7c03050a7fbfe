package domain

import "testing"

func TestEveryCategoryHasSeverity(t *testing.T) {
	counts := map[Severity]int{}
	for _, c := range Categories() {
		sev, ok := SeverityFor(c)
		if !ok {
			t.Fatalf("category %q has no severity mapping", c)
		}
		counts[sev]++
	}

	if counts[SeverityCritical] != 4 {
		t.Fatalf("expected 4 critical categories, got %d", counts[SeverityCritical])
	}
	if counts[SeverityHigh] != 3 {
		t.Fatalf("expected 3 high categories, got %d", counts[SeverityHigh])
	}
	if counts[SeverityMedium] != 5 {
		t.Fatalf("expected 5 medium categories, got %d", counts[SeverityMedium])
	}
}

func TestSeverityForUnknownCategory(t *testing.T) {
	if _, ok := SeverityFor(Category("time_travel")); ok {
		t.Fatal("expected unknown category to have no severity")
	}
}

func TestNewFindingStampsSeverity(t *testing.T) {
	f, err := NewFinding(CategoryOdometerDiscrepancy, "history", "odometer reads 40k below prior record")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Severity != SeverityHigh {
		t.Fatalf("expected severity high, got %q", f.Severity)
	}
	if f.SourceDocument != "history" {
		t.Fatalf("unexpected source document %q", f.SourceDocument)
	}
}

func TestNewFindingRejectsUnknownCategory(t *testing.T) {
	_, err := NewFinding(Category("bogus"), "contract", "whatever")
	if !IsKind(err, ErrInvalidFinding) {
		t.Fatalf("expected ErrInvalidFinding, got %v", err)
	}
}

func TestValidateRejectsMismatchedSeverity(t *testing.T) {
	f := Finding{Category: CategoryWearAndTear, Severity: SeverityCritical, SourceDocument: "inspection"}
	if err := f.Validate(); !IsKind(err, ErrInvalidFinding) {
		t.Fatalf("expected ErrInvalidFinding, got %v", err)
	}

	f.Severity = SeverityMedium
	if err := f.Validate(); err != nil {
		t.Fatalf("expected valid finding, got %v", err)
	}
}

func TestParseDocType(t *testing.T) {
	dt, err := ParseDocType("inspection")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dt != DocTypeInspection {
		t.Fatalf("unexpected doc type %q", dt)
	}

	if _, err := ParseDocType("receipt"); !IsKind(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSortDocumentsCanonical(t *testing.T) {
	docs := []ClaimDocument{
		{ID: "d3", DocType: DocTypeAdjuster},
		{ID: "d1", DocType: DocTypeContract},
		{ID: "d2", DocType: DocTypeACV},
	}

	SortDocumentsCanonical(docs)

	want := []DocType{DocTypeContract, DocTypeACV, DocTypeAdjuster}
	for i, dt := range want {
		if docs[i].DocType != dt {
			t.Fatalf("position %d: expected %q, got %q", i, dt, docs[i].DocType)
		}
	}
}

func TestClaimInFlight(t *testing.T) {
	cases := map[ClaimStatus]bool{
		ClaimStatusOpen:      false,
		ClaimStatusQueued:    true,
		ClaimStatusAnalyzing: true,
		ClaimStatusAssessed:  false,
		ClaimStatusFailed:    false,
	}
	for status, want := range cases {
		c := Claim{Status: status}
		if got := c.InFlight(); got != want {
			t.Fatalf("status %q: expected InFlight=%v, got %v", status, want, got)
		}
	}
}
