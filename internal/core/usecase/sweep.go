package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/apiarylabs/ledgerpilot/internal/core/domain"
	"github.com/apiarylabs/ledgerpilot/internal/core/ports"
)

// SweepUseCase implements the two administrative batch passes. Both iterate
// documents independently: one document failing to enqueue is recorded and
// skipped, never aborts the sweep.
type SweepUseCase struct {
	repo   ports.DocumentRepository
	ledger ports.EventLedger
	queue  ports.TaskQueue
	logger *slog.Logger
}

func NewSweepUseCase(
	repo ports.DocumentRepository,
	ledger ports.EventLedger,
	queue ports.TaskQueue,
	logger *slog.Logger,
) *SweepUseCase {
	return &SweepUseCase{repo: repo, ledger: ledger, queue: queue, logger: logger}
}

// SweepRecoverable resets failed and stuck-on-human documents back to
// processing (derived fields cleared) and re-enqueues the full pipeline.
// With an explicit id list only those documents are considered; approved
// documents are never reset, they are skipped with a ledger entry.
func (uc *SweepUseCase) SweepRecoverable(ctx context.Context, tenantID, actorID string, ids []string) (int, error) {
	var (
		docs []domain.Document
		err  error
	)
	if len(ids) > 0 {
		docs, err = uc.repo.ListByIDs(ctx, tenantID, ids)
	} else {
		docs, err = uc.repo.ListByStatus(ctx, tenantID, []domain.DocumentStatus{
			domain.StatusProcessingFailed,
			domain.StatusAdminPassNeeded,
		})
	}
	if err != nil {
		return 0, fmt.Errorf("select sweep candidates: %w", err)
	}

	enqueued := 0
	for _, doc := range docs {
		if doc.Status.Protected() {
			appendEvent(ctx, uc.ledger, uc.logger, doc.ID, actorID, domain.EventSweepSkipped,
				"approved documents cannot be reprocessed")
			continue
		}

		if err := uc.repo.ResetForReprocess(ctx, doc.ID); err != nil {
			uc.logger.Warn("sweep_reset_failed", "document_id", doc.ID, "error", err)
			appendEvent(ctx, uc.ledger, uc.logger, doc.ID, actorID, domain.EventSweepSkipped,
				fmt.Sprintf("reset failed: %v", err))
			continue
		}
		appendEvent(ctx, uc.ledger, uc.logger, doc.ID, actorID, domain.EventReprocessQueued,
			"batch sweep reset document for re-extraction")

		task := ports.Task{Kind: ports.TaskProcess, DocumentID: doc.ID, ActorID: actorID}
		if err := uc.queue.Publish(ctx, task); err != nil {
			uc.logger.Warn("sweep_enqueue_failed", "document_id", doc.ID, "error", err)
			appendEvent(ctx, uc.ledger, uc.logger, doc.ID, actorID, domain.EventSweepSkipped,
				fmt.Sprintf("enqueue failed: %v", err))
			continue
		}
		enqueued++
	}

	uc.logger.Info("recoverable_sweep_dispatched", "tenant_id", tenantID,
		"candidates", len(docs), "enqueued", enqueued)
	return enqueued, nil
}

// SweepUnderReview enqueues an auditor-only pass for every under-review
// document of the tenant, without resetting status first.
func (uc *SweepUseCase) SweepUnderReview(ctx context.Context, tenantID, actorID string) (int, error) {
	docs, err := uc.repo.ListByStatus(ctx, tenantID, []domain.DocumentStatus{domain.StatusUnderReview})
	if err != nil {
		return 0, fmt.Errorf("select under-review documents: %w", err)
	}

	enqueued := 0
	for _, doc := range docs {
		task := ports.Task{Kind: ports.TaskAudit, DocumentID: doc.ID, ActorID: actorID}
		if err := uc.queue.Publish(ctx, task); err != nil {
			uc.logger.Warn("sweep_enqueue_failed", "document_id", doc.ID, "error", err)
			appendEvent(ctx, uc.ledger, uc.logger, doc.ID, actorID, domain.EventSweepSkipped,
				fmt.Sprintf("auditor enqueue failed: %v", err))
			continue
		}
		enqueued++
	}

	uc.logger.Info("review_sweep_dispatched", "tenant_id", tenantID,
		"candidates", len(docs), "enqueued", enqueued)
	return enqueued, nil
}
