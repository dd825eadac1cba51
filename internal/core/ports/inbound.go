package ports

import (
	"context"
	"io"

	"github.com/apiarylabs/ledgerpilot/internal/core/domain"
)

// UploadInput carries one incoming document submission.
type UploadInput struct {
	TenantID   string
	UploaderID string
	Filename   string
	MimeType   string
	Body       io.Reader
}

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, in UploadInput) (*domain.Document, error)
}

// PipelineRunner executes background tasks dequeued by the worker.
type PipelineRunner interface {
	Run(ctx context.Context, task Task) error
}

// SweepService triggers tenant-wide batch passes.
type SweepService interface {
	// SweepRecoverable resets failed/uncertain documents (or an explicit id
	// list) and re-enqueues the full pipeline. Returns the number enqueued.
	SweepRecoverable(ctx context.Context, tenantID, actorID string, ids []string) (int, error)
	// SweepUnderReview enqueues an auditor-only pass for every document the
	// tenant has in review, without resetting status.
	SweepUnderReview(ctx context.Context, tenantID, actorID string) (int, error)
}

// PolicyAdmin reads and updates tenant policy.
type PolicyAdmin interface {
	Get(ctx context.Context, tenantID string) (*domain.Policy, error)
	Update(ctx context.Context, tenantID, actorID string, update domain.Policy) (*domain.Policy, error)
}

// DocumentActions are manual administrative state transitions.
type DocumentActions interface {
	Approve(ctx context.Context, tenantID, documentID, actorID string) (*domain.Document, error)
	Reject(ctx context.Context, tenantID, documentID, actorID, reason string) (*domain.Document, error)
	Reprocess(ctx context.Context, tenantID, documentID, actorID string) error
	Delete(ctx context.Context, tenantID, documentID, actorID string) error
}

// DocumentReader is the inbound read model for document state and history.
type DocumentReader interface {
	GetByID(ctx context.Context, tenantID, documentID string) (*domain.Document, error)
	Events(ctx context.Context, tenantID, documentID string) ([]domain.Event, error)
}
