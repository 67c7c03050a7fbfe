package domain

import "time"

// ClaimReport is the exportable view of a finished assessment. Unlike the
// assessment itself it is allowed to carry a generation timestamp, because
// reports are point-in-time artifacts rather than canonical state.
type ClaimReport struct {
	ClaimID      string           `json:"claim_id"`
	PolicyNumber string           `json:"policy_number"`
	Claimant     string           `json:"claimant"`
	Summary      string           `json:"summary"`
	Assessment   Assessment       `json:"assessment"`
	Documents    []ReportDocument `json:"documents"`
	Model        string           `json:"model"`
	GeneratedAt  time.Time        `json:"generated_at"`
}

type ReportDocument struct {
	DocType      DocType  `json:"doc_type"`
	Filename     string   `json:"filename"`
	Pages        int      `json:"pages"`
	FindingCount int      `json:"finding_count"`
	KeyFindings  []string `json:"key_findings,omitempty"`
}
