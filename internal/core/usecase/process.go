package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/apiarylabs/ledgerpilot/internal/core/domain"
	"github.com/apiarylabs/ledgerpilot/internal/core/ports"
)

// Sentinel texts substituted when extraction cannot produce usable output.
// The pipeline trades extraction quality for forward progress.
const (
	sentinelExtractionTimeout = "[extraction timed out, assess on structured data only]"
	sentinelBlankDocument     = "[blank document detected]"
	sentinelTextUnavailable   = "[raw text unavailable, assess on structured data only]"
)

// ProcessDocumentUseCase runs the full per-document decision pipeline:
// extract -> hash -> structure -> score -> intelligence -> policy ->
// optional auditor -> persist final status. Every run terminates in a
// defined status; unexpected failures land in processing_failed with the
// error on the ledger, never in a stuck processing state.
type ProcessDocumentUseCase struct {
	repo       ports.DocumentRepository
	ledger     ports.EventLedger
	policies   *PolicyService
	storage    ports.ObjectStorage
	extractor  ports.TextExtractor
	structurer ports.RecordStructurer
	auditor    *AuditUseCase
	notifier   ports.Notifier
	logger     *slog.Logger

	extractTimeout time.Duration
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	ledger ports.EventLedger,
	policies *PolicyService,
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	structurer ports.RecordStructurer,
	auditor *AuditUseCase,
	notifier ports.Notifier,
	logger *slog.Logger,
	extractTimeout time.Duration,
) *ProcessDocumentUseCase {
	if extractTimeout <= 0 {
		extractTimeout = 5 * time.Second
	}
	return &ProcessDocumentUseCase{
		repo:           repo,
		ledger:         ledger,
		policies:       policies,
		storage:        storage,
		extractor:      extractor,
		structurer:     structurer,
		auditor:        auditor,
		notifier:       notifier,
		logger:         logger,
		extractTimeout: extractTimeout,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID, actorID string) error {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}

	uc.appendEvent(ctx, doc.ID, actorID, domain.EventProcessingStarted, "starting extraction pipeline")
	start := time.Now()

	runErr := uc.runPipeline(ctx, doc, actorID, start)
	if runErr == nil {
		return nil
	}

	elapsed := time.Since(start).Seconds()
	if failErr := uc.repo.MarkFailed(ctx, doc.ID, elapsed); failErr != nil {
		return fmt.Errorf("%w; mark failed status: %v", runErr, failErr)
	}
	uc.appendEvent(ctx, doc.ID, actorID, domain.EventProcessingFailed,
		fmt.Sprintf("pipeline failed, manual check required: %v", runErr))
	return runErr
}

func (uc *ProcessDocumentUseCase) runPipeline(ctx context.Context, doc *domain.Document, actorID string, start time.Time) error {
	data, err := uc.readSource(ctx, doc.StorageKey)
	if err != nil {
		return err
	}

	rawText := uc.extractWithTimeout(ctx, data, doc.Filename, doc.ID)
	textHash := TextHash(rawText)

	record, err := uc.structurer.Structure(ctx, rawText)
	if err != nil {
		return fmt.Errorf("structure extracted text: %w", err)
	}

	confidence, defects := ValidateAndScore(record)

	vendor := record.VendorName
	number := record.DocumentNumber
	amount := record.Amount()

	policy, err := uc.policies.GetOrCreate(ctx, doc.TenantID)
	if err != nil {
		return err
	}

	isDuplicate, err := CheckDuplicate(ctx, uc.repo, doc.TenantID, textHash, vendor, number, amount, doc.ID)
	if err != nil {
		return err
	}
	isFraud, fraudScore, fraudReasons := FraudSignals(confidence, amount, policy.FraudAmountThreshold)

	flags := defects
	if isDuplicate {
		uc.appendEvent(ctx, doc.ID, actorID, domain.EventDuplicateDetected,
			"matched an existing record for this tenant")
		flags = append(flags, "matched an existing record for this tenant")
	}
	if isFraud {
		uc.appendEvent(ctx, doc.ID, actorID, domain.EventFraudSignal,
			"heuristics triggered: "+strings.Join(fraudReasons, "; "))
		flags = append(flags, fraudReasons...)
	}

	status, policyReasons, escalate := EvaluatePolicy(*policy, confidence, amount, isDuplicate, isFraud)
	flags = append(flags, policyReasons...)

	if escalate {
		uc.appendEvent(ctx, doc.ID, actorID, domain.EventHighValueEscalation,
			fmt.Sprintf("amount %.2f exceeds escalation threshold, senior review required", amount))
	}

	completion := "pipeline completed"
	auditReason := ""
	if status == domain.StatusUnderReview {
		completion += ", routed to review: " + strings.Join(flags, "; ")

		if policy.AuditorEnabled {
			uc.appendEvent(ctx, doc.ID, actorID, domain.EventAuditStarted, "autonomous auditor began secondary review")

			reviewed := *doc
			reviewed.Confidence = &confidence
			reviewed.DuplicateFlag = isDuplicate
			reviewed.FraudFlag = isFraud
			reviewed.Extracted = record

			verdict := uc.auditor.Review(ctx, &reviewed, rawText)
			status = verdict.Status
			auditReason = verdict.Reason
			uc.recordAuditOutcome(ctx, doc.ID, actorID, verdict)
		}
	} else {
		completion += ", policy conditions satisfied, auto-approved"
	}

	signals := domain.Signals{
		VendorName:        vendor,
		DocumentNumber:    number,
		TotalAmount:       amount,
		Confidence:        confidence,
		Extracted:         record,
		TextHash:          textHash,
		DuplicateFlag:     isDuplicate,
		FraudFlag:         isFraud,
		FraudScore:        fraudScore,
		ProcessingSeconds: time.Since(start).Seconds(),
		Status:            status,
	}
	if err := uc.repo.ApplySignals(ctx, doc.ID, signals); err != nil {
		return fmt.Errorf("persist pipeline output: %w", err)
	}

	uc.appendEvent(ctx, doc.ID, actorID, domain.EventProcessingCompleted, completion)
	uc.notify(ctx, doc, status, vendor, auditReason)
	return nil
}

func (uc *ProcessDocumentUseCase) readSource(ctx context.Context, storageKey string) ([]byte, error) {
	reader, err := uc.storage.Open(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read source document: %w", err)
	}
	return data, nil
}

func (uc *ProcessDocumentUseCase) extractWithTimeout(ctx context.Context, data []byte, filename, documentID string) string {
	return extractTextBounded(ctx, uc.extractor, data, filename, uc.extractTimeout, uc.logger, documentID)
}

// extractTextBounded bounds the extraction call with a hard timeout. Timeout
// and hard extraction failures both degrade to sentinel text: extraction
// quality is traded for forward progress, the run itself must not stall here.
func extractTextBounded(
	ctx context.Context,
	extractor ports.TextExtractor,
	data []byte,
	filename string,
	timeout time.Duration,
	logger *slog.Logger,
	documentID string,
) string {
	type extractResult struct {
		text string
		err  error
	}

	extractCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resultCh := make(chan extractResult, 1)
	go func() {
		text, err := extractor.Extract(extractCtx, data, filename)
		resultCh <- extractResult{text: text, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			logger.Warn("extraction_failed", "document_id", documentID, "error", res.err)
			return sentinelTextUnavailable
		}
		if strings.TrimSpace(res.text) == "" {
			return sentinelBlankDocument
		}
		return res.text
	case <-extractCtx.Done():
		logger.Warn("extraction_timeout", "document_id", documentID, "timeout", timeout)
		return sentinelExtractionTimeout
	}
}

func (uc *ProcessDocumentUseCase) recordAuditOutcome(ctx context.Context, documentID, actorID string, verdict AuditVerdict) {
	switch verdict.Status {
	case domain.StatusApproved:
		uc.appendEvent(ctx, documentID, actorID, domain.EventAutoApproved, "auditor override: "+verdict.Reason)
	case domain.StatusRejected:
		uc.appendEvent(ctx, documentID, actorID, domain.EventRejected, verdict.Reason)
	default:
		uc.appendEvent(ctx, documentID, actorID, domain.EventAuditCompleted,
			verdict.Reason+", retained for human review")
	}
}

func (uc *ProcessDocumentUseCase) notify(ctx context.Context, doc *domain.Document, status domain.DocumentStatus, vendor, reason string) {
	if uc.notifier == nil || doc.UploadedBy == "" {
		return
	}
	switch status {
	case domain.StatusAutoApproved, domain.StatusApproved, domain.StatusRejected:
		if err := uc.notifier.Notify(ctx, doc.UploadedBy, doc.Filename, status, vendor, reason); err != nil {
			uc.logger.Warn("notify_failed", "document_id", doc.ID, "error", err)
		}
	}
}

func (uc *ProcessDocumentUseCase) appendEvent(ctx context.Context, documentID, actorID, eventType, message string) {
	appendEvent(ctx, uc.ledger, uc.logger, documentID, actorID, eventType, message)
}
