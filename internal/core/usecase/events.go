package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/apiarylabs/ledgerpilot/internal/core/domain"
	"github.com/apiarylabs/ledgerpilot/internal/core/ports"
)

// appendEvent writes one ledger entry. Ledger trouble is logged, not
// propagated: an audit-trail gap must not take down a run that is otherwise
// making progress.
func appendEvent(ctx context.Context, ledger ports.EventLedger, logger *slog.Logger, documentID, actorID, eventType, message string) {
	event := &domain.Event{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		ActorID:    actorID,
		Type:       eventType,
		Message:    message,
		CreatedAt:  time.Now().UTC(),
	}
	if err := ledger.Append(ctx, event); err != nil {
		logger.Error("ledger_append_failed", "document_id", documentID, "event_type", eventType, "error", err)
	}
}
