package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/apiarylabs/ledgerpilot/internal/core/domain"
	"github.com/apiarylabs/ledgerpilot/internal/core/ports"
)

// AuditPassUseCase runs only the autonomous auditor step on a document that
// is already under review, without resetting it first. Used by single-shot
// admin triggers and the tenant-wide review sweep.
type AuditPassUseCase struct {
	repo      ports.DocumentRepository
	ledger    ports.EventLedger
	storage   ports.ObjectStorage
	extractor ports.TextExtractor
	auditor   *AuditUseCase
	notifier  ports.Notifier
	logger    *slog.Logger

	extractTimeout time.Duration
}

func NewAuditPassUseCase(
	repo ports.DocumentRepository,
	ledger ports.EventLedger,
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	auditor *AuditUseCase,
	notifier ports.Notifier,
	logger *slog.Logger,
	extractTimeout time.Duration,
) *AuditPassUseCase {
	if extractTimeout <= 0 {
		extractTimeout = 5 * time.Second
	}
	return &AuditPassUseCase{
		repo:           repo,
		ledger:         ledger,
		storage:        storage,
		extractor:      extractor,
		auditor:        auditor,
		notifier:       notifier,
		logger:         logger,
		extractTimeout: extractTimeout,
	}
}

func (uc *AuditPassUseCase) RunByID(ctx context.Context, documentID, actorID string) error {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}
	if doc.Status != domain.StatusUnderReview {
		uc.logger.Info("audit_pass_skipped", "document_id", documentID, "status", doc.Status)
		return nil
	}

	rawText := uc.refetchText(ctx, doc)

	uc.appendEvent(ctx, doc.ID, actorID, domain.EventAuditStarted, "explicitly triggered auditor pass")
	verdict := uc.auditor.Review(ctx, doc, rawText)

	if err := uc.repo.UpdateStatus(ctx, doc.ID, verdict.Status); err != nil {
		return fmt.Errorf("persist auditor verdict: %w", err)
	}

	switch verdict.Status {
	case domain.StatusApproved:
		uc.appendEvent(ctx, doc.ID, actorID, domain.EventAutoApproved, "auditor override: "+verdict.Reason)
	case domain.StatusRejected:
		uc.appendEvent(ctx, doc.ID, actorID, domain.EventRejected, verdict.Reason)
	default:
		uc.appendEvent(ctx, doc.ID, actorID, domain.EventAuditCompleted,
			verdict.Reason+", retained for human review")
	}

	if doc.UploadedBy != "" {
		switch verdict.Status {
		case domain.StatusApproved, domain.StatusRejected:
			if err := uc.notifier.Notify(ctx, doc.UploadedBy, doc.Filename, verdict.Status, doc.VendorName, verdict.Reason); err != nil {
				uc.logger.Warn("notify_failed", "document_id", doc.ID, "error", err)
			}
		}
	}
	return nil
}

// refetchText re-derives raw text from the stored bytes. Storage or
// extraction trouble degrades to sentinel text so the auditor can still
// assess the structured record.
func (uc *AuditPassUseCase) refetchText(ctx context.Context, doc *domain.Document) string {
	reader, err := uc.storage.Open(ctx, doc.StorageKey)
	if err != nil {
		uc.logger.Warn("audit_source_unavailable", "document_id", doc.ID, "error", err)
		return sentinelTextUnavailable
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		uc.logger.Warn("audit_source_unavailable", "document_id", doc.ID, "error", err)
		return sentinelTextUnavailable
	}

	return extractTextBounded(ctx, uc.extractor, data, doc.Filename, uc.extractTimeout, uc.logger, doc.ID)
}

func (uc *AuditPassUseCase) appendEvent(ctx context.Context, documentID, actorID, eventType, message string) {
	appendEvent(ctx, uc.ledger, uc.logger, documentID, actorID, eventType, message)
}
