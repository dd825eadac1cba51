package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/apiarylabs/ledgerpilot/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
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

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS tenants (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
	uploaded_by TEXT NOT NULL DEFAULT '',
	storage_key TEXT NOT NULL,
	filename TEXT NOT NULL,
	status TEXT NOT NULL,
	vendor_name TEXT NOT NULL DEFAULT '',
	document_number TEXT NOT NULL DEFAULT '',
	total_amount DOUBLE PRECISION,
	confidence_score DOUBLE PRECISION,
	extracted_json JSONB,
	duplicate_flag BOOLEAN NOT NULL DEFAULT FALSE,
	fraud_flag BOOLEAN NOT NULL DEFAULT FALSE,
	fraud_score DOUBLE PRECISION,
	text_hash TEXT NOT NULL DEFAULT '',
	processing_seconds DOUBLE PRECISION,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS document_events (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	actor_id TEXT NOT NULL DEFAULT '',
	event_type TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS tenant_policies (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL UNIQUE REFERENCES tenants(id) ON DELETE CASCADE,
	auto_approve_confidence_threshold DOUBLE PRECISION NOT NULL,
	max_auto_approve_amount DOUBLE PRECISION NOT NULL,
	high_value_escalation_threshold DOUBLE PRECISION NOT NULL,
	require_review_if_duplicate BOOLEAN NOT NULL,
	require_review_if_fraud_flag BOOLEAN NOT NULL,
	auditor_enabled BOOLEAN NOT NULL,
	fraud_amount_threshold DOUBLE PRECISION NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_tenant_status ON documents(tenant_id, status);
CREATE INDEX IF NOT EXISTS idx_documents_tenant_hash ON documents(tenant_id, text_hash);
CREATE INDEX IF NOT EXISTS idx_documents_tenant_triplet ON documents(tenant_id, vendor_name, document_number);
CREATE INDEX IF NOT EXISTS idx_document_events_document ON document_events(document_id, created_at);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const documentColumns = `id, tenant_id, uploaded_by, storage_key, filename, status, vendor_name, document_number, total_amount, confidence_score, extracted_json, duplicate_flag, fraud_flag, fraud_score, text_hash, processing_seconds, created_at, updated_at`

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	return r.insert(ctx, r.db, doc)
}

// CreateBatch inserts imported documents in one transaction: a spreadsheet
// import lands fully or not at all.
func (r *DocumentRepository) CreateBatch(ctx context.Context, docs []*domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, doc := range docs {
		if err := r.insert(ctx, tx, doc); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch tx: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *DocumentRepository) insert(ctx context.Context, db execer, doc *domain.Document) error {
	if _, err := db.ExecContext(ctx, `
INSERT INTO tenants (id) VALUES ($1) ON CONFLICT (id) DO NOTHING
`, doc.TenantID); err != nil {
		return fmt.Errorf("ensure tenant: %w", err)
	}

	extractedJSON, err := marshalExtracted(doc.Extracted)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
INSERT INTO documents (`+documentColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
`,
		doc.ID, doc.TenantID, doc.UploadedBy, doc.StorageKey, doc.Filename, string(doc.Status),
		doc.VendorName, doc.DocumentNumber, doc.TotalAmount, doc.Confidence, extractedJSON,
		doc.DuplicateFlag, doc.FraudFlag, doc.FraudScore, doc.TextHash, doc.ProcessingSeconds,
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document",
				fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) FirstByTenant(ctx context.Context, tenantID string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE tenant_id = $1
ORDER BY created_at
LIMIT 1
`, tenantID)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "first document of tenant",
				fmt.Errorf("tenant_id=%s", tenantID))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, updated_at = $3
WHERE id = $1
`, id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireRow(result, id)
}

// ApplySignals writes one pipeline run's full derived output atomically.
func (r *DocumentRepository) ApplySignals(ctx context.Context, id string, s domain.Signals) error {
	extractedJSON, err := marshalExtracted(s.Extracted)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET vendor_name = $2, document_number = $3, total_amount = $4, confidence_score = $5,
    extracted_json = $6, duplicate_flag = $7, fraud_flag = $8, fraud_score = $9,
    text_hash = $10, processing_seconds = $11, status = $12, updated_at = $13
WHERE id = $1
`,
		id, s.VendorName, s.DocumentNumber, s.TotalAmount, s.Confidence, extractedJSON,
		s.DuplicateFlag, s.FraudFlag, s.FraudScore, s.TextHash, s.ProcessingSeconds,
		string(s.Status), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("apply pipeline signals: %w", err)
	}
	return requireRow(result, id)
}

func (r *DocumentRepository) MarkFailed(ctx context.Context, id string, elapsedSeconds float64) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, processing_seconds = $3, updated_at = $4
WHERE id = $1
`, id, string(domain.StatusProcessingFailed), elapsedSeconds, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark document failed: %w", err)
	}
	return requireRow(result, id)
}

// ResetForReprocess clears derived residue and returns the document to
// processing. The approved guard lives in the statement itself so a racing
// approval can never be overwritten.
func (r *DocumentRepository) ResetForReprocess(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, vendor_name = '', document_number = '', total_amount = NULL,
    confidence_score = NULL, extracted_json = NULL, duplicate_flag = FALSE,
    fraud_flag = FALSE, fraud_score = NULL, text_hash = '', processing_seconds = NULL,
    updated_at = $3
WHERE id = $1 AND status <> $4
`, id, string(domain.StatusProcessing), time.Now().UTC(), string(domain.StatusApproved))
	if err != nil {
		return fmt.Errorf("reset document: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reset rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var status string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM documents WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WrapError(domain.ErrDocumentNotFound, "reset document", fmt.Errorf("id=%s", id))
	}
	if err != nil {
		return fmt.Errorf("reset status check: %w", err)
	}
	return domain.WrapError(domain.ErrConflict, "reset document",
		fmt.Errorf("document %s is %s", id, status))
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return requireRow(result, id)
}

func (r *DocumentRepository) ListByStatus(ctx context.Context, tenantID string, statuses []domain.DocumentStatus) ([]domain.Document, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]any, 0, len(statuses)+1)
	args = append(args, tenantID)
	for i, status := range statuses {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, string(status))
	}

	query := `
SELECT ` + documentColumns + `
FROM documents
WHERE tenant_id = $1 AND status IN (` + strings.Join(placeholders, ",") + `)
ORDER BY created_at
`
	return r.queryDocuments(ctx, query, args...)
}

// ListByIDs returns the tenant's documents among the given ids. Ids belonging
// to other tenants are silently absent from the result.
func (r *DocumentRepository) ListByIDs(ctx context.Context, tenantID string, ids []string) ([]domain.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, tenantID)
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}

	query := `
SELECT ` + documentColumns + `
FROM documents
WHERE tenant_id = $1 AND id IN (` + strings.Join(placeholders, ",") + `)
ORDER BY created_at
`
	return r.queryDocuments(ctx, query, args...)
}

func (r *DocumentRepository) ExistsWithTextHash(ctx context.Context, tenantID, textHash, excludeID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
SELECT EXISTS (
	SELECT 1 FROM documents
	WHERE tenant_id = $1 AND text_hash = $2 AND id <> $3
)
`, tenantID, textHash, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("text hash lookup: %w", err)
	}
	return exists, nil
}

func (r *DocumentRepository) ExistsWithTriplet(ctx context.Context, tenantID, vendor, number string, amount float64, excludeID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
SELECT EXISTS (
	SELECT 1 FROM documents
	WHERE tenant_id = $1 AND vendor_name = $2 AND document_number = $3
	  AND total_amount = $4 AND id <> $5
)
`, tenantID, vendor, number, amount, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("triplet lookup: %w", err)
	}
	return exists, nil
}

func (r *DocumentRepository) queryDocuments(ctx context.Context, query string, args ...any) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var status string
	var extractedRaw []byte

	err := row.Scan(
		&doc.ID, &doc.TenantID, &doc.UploadedBy, &doc.StorageKey, &doc.Filename, &status,
		&doc.VendorName, &doc.DocumentNumber, &doc.TotalAmount, &doc.Confidence, &extractedRaw,
		&doc.DuplicateFlag, &doc.FraudFlag, &doc.FraudScore, &doc.TextHash,
		&doc.ProcessingSeconds, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.Status = domain.DocumentStatus(status)
	if len(extractedRaw) > 0 {
		var record domain.ExtractedRecord
		if err := json.Unmarshal(extractedRaw, &record); err != nil {
			return nil, fmt.Errorf("unmarshal extracted record: %w", err)
		}
		doc.Extracted = &record
	}
	return &doc, nil
}

func marshalExtracted(record *domain.ExtractedRecord) (any, error) {
	if record == nil {
		return nil, nil
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal extracted record: %w", err)
	}
	return data, nil
}

func requireRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "update document", fmt.Errorf("id=%s", id))
	}
	return nil
}
