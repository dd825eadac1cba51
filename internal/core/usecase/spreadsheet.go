package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/apiarylabs/ledgerpilot/internal/core/domain"
	"github.com/apiarylabs/ledgerpilot/internal/core/ports"
)

// maxImportRows caps one spreadsheet import batch.
const maxImportRows = 500

var (
	vendorHeaders = []string{"vendor_name", "vendor", "client_name", "company", "supplier"}
	amountHeaders = []string{"total", "amount", "total_amount", "price", "grand_total"}
	numberHeaders = []string{"invoice_number", "id", "ref", "invoice_id", "number"}
	dateHeaders   = []string{"date", "invoice_date", "created_at", "timestamp"}
)

// ImportSpreadsheetUseCase turns one uploaded spreadsheet into a batch of
// pre-validated documents. Rows skip scoring and policy entirely: batch
// imports are treated as already-verified ledger data, created directly as
// auto-approved. The tracker document becomes the batch summary.
type ImportSpreadsheetUseCase struct {
	repo    ports.DocumentRepository
	ledger  ports.EventLedger
	storage ports.ObjectStorage
	tabular ports.TabularReader
	logger  *slog.Logger
}

func NewImportSpreadsheetUseCase(
	repo ports.DocumentRepository,
	ledger ports.EventLedger,
	storage ports.ObjectStorage,
	tabular ports.TabularReader,
	logger *slog.Logger,
) *ImportSpreadsheetUseCase {
	return &ImportSpreadsheetUseCase{
		repo:    repo,
		ledger:  ledger,
		storage: storage,
		tabular: tabular,
		logger:  logger,
	}
}

func (uc *ImportSpreadsheetUseCase) ImportByID(ctx context.Context, documentID, actorID string) error {
	tracker, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch tracker document: %w", err)
	}

	appendEvent(ctx, uc.ledger, uc.logger, tracker.ID, actorID, domain.EventProcessingStarted,
		fmt.Sprintf("importing structured rows from %s", tracker.Filename))
	start := time.Now()

	count, total, importErr := uc.importRows(ctx, tracker, actorID, start)
	if importErr == nil {
		appendEvent(ctx, uc.ledger, uc.logger, tracker.ID, actorID, domain.EventProcessingCompleted,
			fmt.Sprintf("imported %d documents from spreadsheet, batch total %.2f", count, total))
		return nil
	}

	// A broken spreadsheet is a review case, not a pipeline fault: a human
	// decides whether the file is worth fixing.
	elapsed := time.Since(start).Seconds()
	signals := domain.Signals{
		VendorName:        "failed spreadsheet: " + tracker.Filename,
		Confidence:        0,
		ProcessingSeconds: elapsed,
		Status:            domain.StatusUnderReview,
	}
	if err := uc.repo.ApplySignals(ctx, tracker.ID, signals); err != nil {
		return fmt.Errorf("%w; persist import failure: %v", importErr, err)
	}
	appendEvent(ctx, uc.ledger, uc.logger, tracker.ID, actorID, domain.EventProcessingFailed,
		fmt.Sprintf("spreadsheet parsing failed: %v", importErr))
	return importErr
}

func (uc *ImportSpreadsheetUseCase) importRows(ctx context.Context, tracker *domain.Document, actorID string, start time.Time) (int, float64, error) {
	reader, err := uc.storage.Open(ctx, tracker.StorageKey)
	if err != nil {
		return 0, 0, fmt.Errorf("open spreadsheet source: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return 0, 0, fmt.Errorf("read spreadsheet source: %w", err)
	}

	rows, err := uc.tabular.Rows(data, tracker.Filename)
	if err != nil {
		return 0, 0, fmt.Errorf("decode spreadsheet: %w", err)
	}
	if len(rows) < 2 {
		return 0, 0, fmt.Errorf("spreadsheet has no data rows")
	}

	header := rows[0]
	dataRows := rows[1:]
	if len(dataRows) > maxImportRows {
		uc.logger.Warn("spreadsheet_truncated", "document_id", tracker.ID,
			"rows", len(dataRows), "limit", maxImportRows)
		dataRows = dataRows[:maxImportRows]
	}

	cols, err := mapColumns(header)
	if err != nil {
		return 0, 0, err
	}

	now := time.Now().UTC()
	fullConfidence := 1.0
	docs := make([]*domain.Document, 0, len(dataRows))
	batchTotal := 0.0

	for _, row := range dataRows {
		amount := parseRowAmount(cell(row, cols.amount))
		batchTotal += amount

		vendor := strings.TrimSpace(cell(row, cols.vendor))
		if vendor == "" {
			vendor = "batch import"
		}
		number := strings.TrimSpace(cell(row, cols.number))
		if number == "" {
			number = uuid.NewString()[:8]
		}

		rowAmount := amount
		record := &domain.ExtractedRecord{
			VendorName:     vendor,
			DocumentNumber: number,
			DocumentDate:   strings.TrimSpace(cell(row, cols.date)),
			GrandTotal:     &rowAmount,
		}

		docs = append(docs, &domain.Document{
			ID:             uuid.NewString(),
			TenantID:       tracker.TenantID,
			UploadedBy:     actorID,
			StorageKey:     tracker.StorageKey,
			Filename:       tracker.Filename,
			Status:         domain.StatusAutoApproved,
			VendorName:     vendor,
			DocumentNumber: number,
			TotalAmount:    &rowAmount,
			Confidence:     &fullConfidence,
			Extracted:      record,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	if err := uc.repo.CreateBatch(ctx, docs); err != nil {
		return 0, 0, fmt.Errorf("bulk insert imported rows: %w", err)
	}

	summary := domain.Signals{
		VendorName:        fmt.Sprintf("spreadsheet dataset (%d rows)", len(docs)),
		TotalAmount:       batchTotal,
		Confidence:        1.0,
		ProcessingSeconds: time.Since(start).Seconds(),
		Status:            domain.StatusAutoApproved,
	}
	if err := uc.repo.ApplySignals(ctx, tracker.ID, summary); err != nil {
		return 0, 0, fmt.Errorf("persist batch summary: %w", err)
	}
	return len(docs), batchTotal, nil
}

type columnMap struct {
	vendor int
	amount int
	number int
	date   int
}

// mapColumns matches spreadsheet headers against the known candidate names.
// An amount column is mandatory; vendor falls back to the first column.
func mapColumns(header []string) (columnMap, error) {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}

	find := func(candidates []string) int {
		for _, candidate := range candidates {
			for i, h := range normalized {
				if h == candidate {
					return i
				}
			}
		}
		return -1
	}

	cols := columnMap{
		vendor: find(vendorHeaders),
		amount: find(amountHeaders),
		number: find(numberHeaders),
		date:   find(dateHeaders),
	}
	if cols.amount < 0 {
		return columnMap{}, fmt.Errorf("no amount column found, headers: %s", strings.Join(header, ", "))
	}
	if cols.vendor < 0 {
		cols.vendor = 0
	}
	return cols, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseRowAmount(raw string) float64 {
	cleaned := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(raw, ",", ""), "$", ""))
	if cleaned == "" {
		return 0
	}
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return amount
}
