package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/apiarylabs/ledgerpilot/internal/core/domain"
	"github.com/apiarylabs/ledgerpilot/internal/core/ports"
)

var acceptedExtensions = map[string]bool{
	".pdf": true, ".png": true, ".jpg": true, ".jpeg": true, ".txt": true,
	".csv": true, ".xlsx": true, ".xls": true,
}

var spreadsheetExtensions = map[string]bool{
	".csv": true, ".xlsx": true, ".xls": true,
}

// IngestDocumentUseCase accepts an upload, persists bytes and metadata, and
// hands the pipeline run to the queue. The caller gets a processing ticket
// back immediately; it never waits on the pipeline.
type IngestDocumentUseCase struct {
	repo    ports.DocumentRepository
	ledger  ports.EventLedger
	storage ports.ObjectStorage
	queue   ports.TaskQueue
	logger  *slog.Logger
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	ledger ports.EventLedger,
	storage ports.ObjectStorage,
	queue ports.TaskQueue,
	logger *slog.Logger,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:    repo,
		ledger:  ledger,
		storage: storage,
		queue:   queue,
		logger:  logger,
	}
}

func (uc *IngestDocumentUseCase) Upload(ctx context.Context, in ports.UploadInput) (*domain.Document, error) {
	if strings.TrimSpace(in.TenantID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", fmt.Errorf("tenant id is required"))
	}

	safeName := sanitizeFilename(in.Filename)
	ext := strings.ToLower(filepath.Ext(safeName))
	if !acceptedExtensions[ext] {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document",
			fmt.Errorf("unsupported file format %q, PDFs, images and spreadsheets only", ext))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("tenants/%s/%s_%s", in.TenantID, id, safeName)
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, in.Body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc := &domain.Document{
		ID:         id,
		TenantID:   in.TenantID,
		UploadedBy: in.UploaderID,
		StorageKey: storageKey,
		Filename:   safeName,
		Status:     domain.StatusProcessing,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}

	appendEvent(ctx, uc.ledger, uc.logger, doc.ID, in.UploaderID, domain.EventUploaded,
		fmt.Sprintf("document %s uploaded", safeName))

	kind := ports.TaskProcess
	queuedMsg := "extraction pipeline queued in background"
	if spreadsheetExtensions[ext] {
		kind = ports.TaskImport
		queuedMsg = "spreadsheet row import queued in background"
	}
	appendEvent(ctx, uc.ledger, uc.logger, doc.ID, in.UploaderID, domain.EventProcessingQueued, queuedMsg)

	if err := uc.queue.Publish(ctx, ports.Task{Kind: kind, DocumentID: doc.ID, ActorID: in.UploaderID}); err != nil {
		return nil, fmt.Errorf("publish pipeline task: %w", err)
	}
	return doc, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.pdf"
	}
	return base
}
