package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/apiarylabs/ledgerpilot/internal/core/domain"
)

// EventRepository is the append-only decision ledger. It deliberately has no
// update or delete statements.
type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Append(ctx context.Context, event *domain.Event) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO document_events (id, document_id, actor_id, event_type, message, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, event.ID, event.DocumentID, event.ActorID, event.Type, event.Message, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("append document event: %w", err)
	}
	return nil
}

func (r *EventRepository) ListByDocument(ctx context.Context, documentID string) ([]domain.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, document_id, actor_id, event_type, message, created_at
FROM document_events
WHERE document_id = $1
ORDER BY created_at, id
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document events: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Event, 0)
	for rows.Next() {
		var event domain.Event
		if err := rows.Scan(&event.ID, &event.DocumentID, &event.ActorID, &event.Type, &event.Message, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document event: %w", err)
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document events: %w", err)
	}
	return out, nil
}
