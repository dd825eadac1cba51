package ports

import (
	"context"
	"io"
	"time"

	"github.com/apiarylabs/ledgerpilot/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	CreateBatch(ctx context.Context, docs []*domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	// FirstByTenant returns the tenant's oldest document, used as the anchor
	// for tenant-level ledger entries.
	FirstByTenant(ctx context.Context, tenantID string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error
	// ApplySignals writes one pipeline run's derived fields and final status
	// in a single statement.
	ApplySignals(ctx context.Context, id string, s domain.Signals) error
	MarkFailed(ctx context.Context, id string, elapsedSeconds float64) error
	// ResetForReprocess clears derived fields and moves the document back to
	// processing. Approved documents are refused with a conflict error.
	ResetForReprocess(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	ListByStatus(ctx context.Context, tenantID string, statuses []domain.DocumentStatus) ([]domain.Document, error)
	ListByIDs(ctx context.Context, tenantID string, ids []string) ([]domain.Document, error)
	ExistsWithTextHash(ctx context.Context, tenantID, textHash, excludeID string) (bool, error)
	ExistsWithTriplet(ctx context.Context, tenantID, vendor, number string, amount float64, excludeID string) (bool, error)
}

// EventLedger appends to and reads the immutable audit trail.
type EventLedger interface {
	Append(ctx context.Context, event *domain.Event) error
	ListByDocument(ctx context.Context, documentID string) ([]domain.Event, error)
}

// PolicyRepository stores per-tenant approval policies.
type PolicyRepository interface {
	GetByTenant(ctx context.Context, tenantID string) (*domain.Policy, error)
	Upsert(ctx context.Context, policy *domain.Policy) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

type TaskKind string

const (
	TaskProcess TaskKind = "process"
	TaskAudit   TaskKind = "audit"
	TaskImport  TaskKind = "import"
)

// Task is one unit of background pipeline work.
type Task struct {
	Kind       TaskKind  `json:"kind"`
	DocumentID string    `json:"document_id"`
	ActorID    string    `json:"actor_id,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at,omitzero"`
}

// TaskQueue hands pipeline work from the API to the worker.
type TaskQueue interface {
	Publish(ctx context.Context, task Task) error
	Subscribe(ctx context.Context, handler func(context.Context, Task) error) error
}

// TextExtractor turns raw bytes into plain text. Unsupported formats yield
// an empty string, not an error.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, filename string) (string, error)
}

// TabularReader decodes spreadsheet bytes into header+data rows for the
// bulk-import path.
type TabularReader interface {
	Rows(data []byte, filename string) ([][]string, error)
}

// RecordStructurer turns extracted text into a tentative structured record.
// Parse failures come back as a record carrying an error marker so scoring
// can assign a zero score instead of crashing the run.
type RecordStructurer interface {
	Structure(ctx context.Context, text string) (*domain.ExtractedRecord, error)
}

type VerdictDecision string

const (
	VerdictApprove   VerdictDecision = "approve"
	VerdictReject    VerdictDecision = "reject"
	VerdictUncertain VerdictDecision = "uncertain"
)

type Verdict struct {
	Decision VerdictDecision `json:"decision"`
	Reason   string          `json:"reason"`
}

// AuditorJudge is the external reasoning service behind the autonomous
// auditor. Transport or parse failures must come back as uncertain.
type AuditorJudge interface {
	Judge(ctx context.Context, text string, record *domain.ExtractedRecord) (Verdict, error)
}

// Notifier delivers best-effort status notifications. Failures are logged
// by callers and never affect document state.
type Notifier interface {
	Notify(ctx context.Context, recipient, documentLabel string, status domain.DocumentStatus, vendor, reason string) error
}
