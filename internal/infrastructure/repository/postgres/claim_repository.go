package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/coverline/claimlens/internal/core/domain"
)

type ClaimRepository struct {
	db *sql.DB
}

func NewClaimRepository(db *sql.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ClaimRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS claims (
	id TEXT PRIMARY KEY,
	policy_number TEXT NOT NULL,
	claimant TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	failure_reason TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_claims_status ON claims(status);
CREATE INDEX IF NOT EXISTS idx_claims_created_at ON claims(created_at DESC);

CREATE TABLE IF NOT EXISTS claim_documents (
	id TEXT PRIMARY KEY,
	claim_id TEXT NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
	doc_type TEXT NOT NULL,
	filename TEXT NOT NULL,
	storage_key TEXT NOT NULL,
	size_bytes BIGINT NOT NULL,
	pages INTEGER NOT NULL DEFAULT 0,
	key_findings JSONB NOT NULL DEFAULT '[]'::jsonb,
	uploaded_at TIMESTAMPTZ NOT NULL,
	UNIQUE (claim_id, doc_type)
);

CREATE TABLE IF NOT EXISTS claim_assessments (
	claim_id TEXT PRIMARY KEY REFERENCES claims(id) ON DELETE CASCADE,
	recommendation TEXT NOT NULL,
	risk_score INTEGER NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	reasoning JSONB NOT NULL DEFAULT '[]'::jsonb,
	findings_by_severity JSONB NOT NULL DEFAULT '{}'::jsonb,
	model TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ClaimRepository) CreateClaim(ctx context.Context, claim *domain.Claim) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO claims (id, policy_number, claimant, description, status, failure_reason, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		claim.ID, claim.PolicyNumber, claim.Claimant, claim.Description,
		string(claim.Status), claim.FailureReason, claim.CreatedAt, claim.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

func (r *ClaimRepository) GetClaim(ctx context.Context, id string) (*domain.Claim, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, policy_number, claimant, description, status, failure_reason, created_at, updated_at
FROM claims
WHERE id = $1
`, id)

	var claim domain.Claim
	var status string
	err := row.Scan(
		&claim.ID, &claim.PolicyNumber, &claim.Claimant, &claim.Description,
		&status, &claim.FailureReason, &claim.CreatedAt, &claim.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrClaimNotFound, "get claim", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan claim: %w", err)
	}
	claim.Status = domain.ClaimStatus(status)

	docs, err := r.ListDocuments(ctx, id)
	if err != nil {
		return nil, err
	}
	claim.Documents = docs
	return &claim, nil
}

func (r *ClaimRepository) UpdateClaimStatus(ctx context.Context, id string, status domain.ClaimStatus, failureReason string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE claims
SET status = $2, failure_reason = $3, updated_at = $4
WHERE id = $1
`, id, string(status), failureReason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update claim status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update claim status rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrClaimNotFound, "update claim status", fmt.Errorf("id %s", id))
	}
	return nil
}

// AddDocument inserts a claim document. Re-uploading the same document type
// replaces the previous file for that claim.
func (r *ClaimRepository) AddDocument(ctx context.Context, doc *domain.ClaimDocument) error {
	keyFindingsJSON, err := json.Marshal(doc.KeyFindings)
	if err != nil {
		return fmt.Errorf("marshal key findings: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO claim_documents (id, claim_id, doc_type, filename, storage_key, size_bytes, pages, key_findings, uploaded_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (claim_id, doc_type) DO UPDATE SET
	id = EXCLUDED.id,
	filename = EXCLUDED.filename,
	storage_key = EXCLUDED.storage_key,
	size_bytes = EXCLUDED.size_bytes,
	pages = EXCLUDED.pages,
	key_findings = EXCLUDED.key_findings,
	uploaded_at = EXCLUDED.uploaded_at
`,
		doc.ID, doc.ClaimID, string(doc.DocType), doc.Filename, doc.StorageKey,
		doc.SizeBytes, doc.Pages, keyFindingsJSON, doc.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("insert claim document: %w", err)
	}
	return nil
}

func (r *ClaimRepository) ListDocuments(ctx context.Context, claimID string) ([]domain.ClaimDocument, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, claim_id, doc_type, filename, storage_key, size_bytes, pages, key_findings, uploaded_at
FROM claim_documents
WHERE claim_id = $1
ORDER BY uploaded_at
`, claimID)
	if err != nil {
		return nil, fmt.Errorf("query claim documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.ClaimDocument
	for rows.Next() {
		var doc domain.ClaimDocument
		var docType string
		var keyFindingsRaw []byte
		if err := rows.Scan(
			&doc.ID, &doc.ClaimID, &docType, &doc.Filename, &doc.StorageKey,
			&doc.SizeBytes, &doc.Pages, &keyFindingsRaw, &doc.UploadedAt,
		); err != nil {
			return nil, fmt.Errorf("scan claim document: %w", err)
		}
		if err := json.Unmarshal(keyFindingsRaw, &doc.KeyFindings); err != nil {
			return nil, fmt.Errorf("unmarshal key findings: %w", err)
		}
		doc.DocType = domain.DocType(docType)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claim documents: %w", err)
	}
	return docs, nil
}

func (r *ClaimRepository) UpdateDocumentAnalysis(ctx context.Context, documentID string, pages int, keyFindings []string) error {
	keyFindingsJSON, err := json.Marshal(keyFindings)
	if err != nil {
		return fmt.Errorf("marshal key findings: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE claim_documents
SET pages = $2, key_findings = $3
WHERE id = $1
`, documentID, pages, keyFindingsJSON)
	if err != nil {
		return fmt.Errorf("update document analysis: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document analysis rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "update document analysis", fmt.Errorf("id %s", documentID))
	}
	return nil
}

func (r *ClaimRepository) SaveAssessment(ctx context.Context, claimID string, assessment *domain.Assessment, model string) error {
	reasoningJSON, err := json.Marshal(assessment.Reasoning)
	if err != nil {
		return fmt.Errorf("marshal reasoning: %w", err)
	}
	findingsJSON, err := json.Marshal(assessment.FindingsBySeverity)
	if err != nil {
		return fmt.Errorf("marshal findings by severity: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO claim_assessments (claim_id, recommendation, risk_score, confidence, reasoning, findings_by_severity, model, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (claim_id) DO UPDATE SET
	recommendation = EXCLUDED.recommendation,
	risk_score = EXCLUDED.risk_score,
	confidence = EXCLUDED.confidence,
	reasoning = EXCLUDED.reasoning,
	findings_by_severity = EXCLUDED.findings_by_severity,
	model = EXCLUDED.model,
	created_at = EXCLUDED.created_at
`,
		claimID, string(assessment.Recommendation), assessment.RiskScore, assessment.Confidence,
		reasoningJSON, findingsJSON, model, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save assessment: %w", err)
	}
	return nil
}

func (r *ClaimRepository) GetAssessment(ctx context.Context, claimID string) (*domain.AssessmentRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT claim_id, recommendation, risk_score, confidence, reasoning, findings_by_severity, model, created_at
FROM claim_assessments
WHERE claim_id = $1
`, claimID)

	var record domain.AssessmentRecord
	var recommendation string
	var reasoningRaw, findingsRaw []byte
	err := row.Scan(
		&record.ClaimID, &recommendation, &record.Assessment.RiskScore, &record.Assessment.Confidence,
		&reasoningRaw, &findingsRaw, &record.Model, &record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrAssessmentNotReady, "get assessment", fmt.Errorf("claim %s", claimID))
		}
		return nil, fmt.Errorf("scan assessment: %w", err)
	}

	if err := json.Unmarshal(reasoningRaw, &record.Assessment.Reasoning); err != nil {
		return nil, fmt.Errorf("unmarshal reasoning: %w", err)
	}
	if err := json.Unmarshal(findingsRaw, &record.Assessment.FindingsBySeverity); err != nil {
		return nil, fmt.Errorf("unmarshal findings by severity: %w", err)
	}
	record.Assessment.Recommendation = domain.Recommendation(recommendation)
	return &record, nil
}
