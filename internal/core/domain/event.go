package domain

import "time"

// Event is one append-only ledger entry. Events are never mutated or
// deleted; they are the sole audit trail for status transitions.
type Event struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	ActorID    string    `json:"actor_id,omitempty"` // empty for system-initiated events
	Type       string    `json:"event_type"`
	Message    string    `json:"message,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	EventUploaded            = "UPLOADED"
	EventProcessingQueued    = "PROCESSING_QUEUED"
	EventProcessingStarted   = "PROCESSING_STARTED"
	EventProcessingCompleted = "PROCESSING_COMPLETED"
	EventProcessingFailed    = "PROCESSING_FAILED"
	EventDuplicateDetected   = "DUPLICATE_DETECTED"
	EventFraudSignal         = "FRAUD_SIGNAL"
	EventHighValueEscalation = "HIGH_VALUE_ESCALATION"
	EventAuditStarted        = "AUDIT_STARTED"
	EventAuditCompleted      = "AUDIT_COMPLETED"
	EventAutoApproved        = "AUTO_APPROVED"
	EventApproved            = "APPROVED"
	EventRejected            = "REJECTED"
	EventReprocessQueued     = "REPROCESS_QUEUED"
	EventSweepSkipped        = "SWEEP_SKIPPED"
	EventPolicyUpdated       = "POLICY_UPDATED"
)
