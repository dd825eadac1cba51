package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/apiarylabs/ledgerpilot/internal/core/domain"
	"github.com/apiarylabs/ledgerpilot/internal/core/ports"
)

// DocumentActionsUseCase covers the manual administrative transitions and
// tenant-scoped reads. A document from another tenant is reported as not
// found, never as a permission error, so ids cannot be probed across
// tenants.
type DocumentActionsUseCase struct {
	repo     ports.DocumentRepository
	ledger   ports.EventLedger
	storage  ports.ObjectStorage
	queue    ports.TaskQueue
	notifier ports.Notifier
	logger   *slog.Logger
}

func NewDocumentActionsUseCase(
	repo ports.DocumentRepository,
	ledger ports.EventLedger,
	storage ports.ObjectStorage,
	queue ports.TaskQueue,
	notifier ports.Notifier,
	logger *slog.Logger,
) *DocumentActionsUseCase {
	return &DocumentActionsUseCase{
		repo:     repo,
		ledger:   ledger,
		storage:  storage,
		queue:    queue,
		notifier: notifier,
		logger:   logger,
	}
}

func (uc *DocumentActionsUseCase) GetByID(ctx context.Context, tenantID, documentID string) (*domain.Document, error) {
	return uc.loadScoped(ctx, tenantID, documentID)
}

func (uc *DocumentActionsUseCase) Events(ctx context.Context, tenantID, documentID string) ([]domain.Event, error) {
	if _, err := uc.loadScoped(ctx, tenantID, documentID); err != nil {
		return nil, err
	}
	events, err := uc.ledger.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document events: %w", err)
	}
	return events, nil
}

func (uc *DocumentActionsUseCase) Approve(ctx context.Context, tenantID, documentID, actorID string) (*domain.Document, error) {
	doc, err := uc.loadScoped(ctx, tenantID, documentID)
	if err != nil {
		return nil, err
	}

	if err := uc.repo.UpdateStatus(ctx, doc.ID, domain.StatusApproved); err != nil {
		return nil, fmt.Errorf("approve document: %w", err)
	}
	doc.Status = domain.StatusApproved
	appendEvent(ctx, uc.ledger, uc.logger, doc.ID, actorID, domain.EventApproved, "document approved by admin")
	uc.notify(ctx, doc, domain.StatusApproved, "")
	return doc, nil
}

func (uc *DocumentActionsUseCase) Reject(ctx context.Context, tenantID, documentID, actorID, reason string) (*domain.Document, error) {
	doc, err := uc.loadScoped(ctx, tenantID, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status.Protected() {
		return nil, domain.WrapError(domain.ErrConflict, "reject document",
			fmt.Errorf("document %s is approved", documentID))
	}

	if err := uc.repo.UpdateStatus(ctx, doc.ID, domain.StatusRejected); err != nil {
		return nil, fmt.Errorf("reject document: %w", err)
	}
	doc.Status = domain.StatusRejected
	appendEvent(ctx, uc.ledger, uc.logger, doc.ID, actorID, domain.EventRejected, "document rejected: "+reason)
	uc.notify(ctx, doc, domain.StatusRejected, reason)
	return doc, nil
}

// Reprocess resets one document and re-enqueues the full pipeline. Approved
// documents report a conflict instead of being silently reset.
func (uc *DocumentActionsUseCase) Reprocess(ctx context.Context, tenantID, documentID, actorID string) error {
	doc, err := uc.loadScoped(ctx, tenantID, documentID)
	if err != nil {
		return err
	}
	if doc.Status.Protected() {
		return domain.WrapError(domain.ErrConflict, "reprocess document",
			fmt.Errorf("document %s is approved", documentID))
	}

	if err := uc.repo.ResetForReprocess(ctx, doc.ID); err != nil {
		return fmt.Errorf("reset document: %w", err)
	}
	appendEvent(ctx, uc.ledger, uc.logger, doc.ID, actorID, domain.EventReprocessQueued,
		"admin requested re-extraction")

	task := ports.Task{Kind: ports.TaskProcess, DocumentID: doc.ID, ActorID: actorID}
	if err := uc.queue.Publish(ctx, task); err != nil {
		return fmt.Errorf("publish reprocess task: %w", err)
	}
	return nil
}

func (uc *DocumentActionsUseCase) Delete(ctx context.Context, tenantID, documentID, actorID string) error {
	doc, err := uc.loadScoped(ctx, tenantID, documentID)
	if err != nil {
		return err
	}
	if doc.Status.Protected() {
		return domain.WrapError(domain.ErrConflict, "delete document",
			fmt.Errorf("document %s is approved", documentID))
	}

	if doc.StorageKey != "" {
		if err := uc.storage.Delete(ctx, doc.StorageKey); err != nil {
			// Orphaned bytes are preferable to an undeletable record.
			uc.logger.Warn("storage_delete_failed", "document_id", doc.ID, "error", err)
		}
	}
	if err := uc.repo.Delete(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	uc.logger.Info("document_deleted", "document_id", doc.ID, "tenant_id", tenantID, "actor_id", actorID)
	return nil
}

func (uc *DocumentActionsUseCase) loadScoped(ctx context.Context, tenantID, documentID string) (*domain.Document, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.TenantID != tenantID {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "load document",
			fmt.Errorf("document %s does not belong to tenant", documentID))
	}
	return doc, nil
}

func (uc *DocumentActionsUseCase) notify(ctx context.Context, doc *domain.Document, status domain.DocumentStatus, reason string) {
	if uc.notifier == nil || doc.UploadedBy == "" {
		return
	}
	if err := uc.notifier.Notify(ctx, doc.UploadedBy, doc.Filename, status, doc.VendorName, reason); err != nil {
		uc.logger.Warn("notify_failed", "document_id", doc.ID, "error", err)
	}
}
