package domain

import (
	"fmt"
	"sort"
	"time"
)

type ClaimStatus string

const (
	ClaimStatusOpen      ClaimStatus = "open"
	ClaimStatusQueued    ClaimStatus = "queued"
	ClaimStatusAnalyzing ClaimStatus = "analyzing"
	ClaimStatusAssessed  ClaimStatus = "assessed"
	ClaimStatusFailed    ClaimStatus = "failed"
)

type Claim struct {
	ID            string          `json:"id"`
	PolicyNumber  string          `json:"policy_number"`
	Claimant      string          `json:"claimant"`
	Description   string          `json:"description,omitempty"`
	Status        ClaimStatus     `json:"status"`
	FailureReason string          `json:"failure_reason,omitempty"`
	Documents     []ClaimDocument `json:"documents,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// InFlight reports whether an analysis run is already pending or active,
// in which case another one must not be enqueued.
func (c *Claim) InFlight() bool {
	return c.Status == ClaimStatusQueued || c.Status == ClaimStatusAnalyzing
}

type DocType string

const (
	DocTypeContract   DocType = "contract"
	DocTypeInspection DocType = "inspection"
	DocTypeACV        DocType = "acv"
	DocTypeHistory    DocType = "history"
	DocTypeAdjuster   DocType = "adjuster"
)

// docTypeOrder fixes the analysis order: the policy contract is read first
// so its exclusions frame the rest, supporting evidence follows.
var docTypeOrder = map[DocType]int{
	DocTypeContract:   0,
	DocTypeInspection: 1,
	DocTypeACV:        2,
	DocTypeHistory:    3,
	DocTypeAdjuster:   4,
}

func DocTypes() []DocType {
	return []DocType{DocTypeContract, DocTypeInspection, DocTypeACV, DocTypeHistory, DocTypeAdjuster}
}

func ParseDocType(s string) (DocType, error) {
	dt := DocType(s)
	if _, ok := docTypeOrder[dt]; !ok {
		return "", WrapError(ErrInvalidInput, "parse document type", fmt.Errorf("unknown document type %q", s))
	}
	return dt, nil
}

type ClaimDocument struct {
	ID          string    `json:"id"`
	ClaimID     string    `json:"claim_id"`
	DocType     DocType   `json:"doc_type"`
	Filename    string    `json:"filename"`
	StorageKey  string    `json:"storage_key"`
	SizeBytes   int64     `json:"size_bytes"`
	Pages       int       `json:"pages,omitempty"`
	KeyFindings []string  `json:"key_findings,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// SortDocumentsCanonical orders documents contract-first regardless of
// upload order, so analysis runs and reports are reproducible.
func SortDocumentsCanonical(docs []ClaimDocument) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docTypeOrder[docs[i].DocType] < docTypeOrder[docs[j].DocType]
	})
}

// DocumentText is the page-joined plain text recovered from a stored PDF.
type DocumentText struct {
	Content string
	Pages   int
}
