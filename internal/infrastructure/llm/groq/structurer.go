package groq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/apiarylabs/ledgerpilot/internal/core/domain"
)

// Structurer turns raw extracted text into a typed record via a JSON-mode
// completion. It never returns an error for bad model output: unparsable
// responses come back as an error-marker record that scores zero, and
// malformed numerics are read as zero with the field name recorded.
type Structurer struct {
	client *Client
	logger *slog.Logger
}

func NewStructurer(client *Client, logger *slog.Logger) *Structurer {
	return &Structurer{client: client, logger: logger}
}

func (s *Structurer) Structure(ctx context.Context, text string) (*domain.ExtractedRecord, error) {
	if strings.TrimSpace(text) == "" {
		return &domain.ExtractedRecord{}, nil
	}
	if !s.client.configured() {
		return fallbackRecord(text), nil
	}

	var raw string
	call := func(callCtx context.Context) error {
		var err error
		raw, err = s.client.chatJSON(callCtx, s.client.structureModel,
			structureSystemPrompt, buildStructurePrompt(text), 1024, "structure")
		return err
	}

	var err error
	if s.client.executor != nil {
		err = s.client.executor.Execute(ctx, "groq.structure", call, classifyGroqError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("groq structure call: %w", err)
	}

	record := decodeRecord(stripMarkdownFence(raw))
	if record.Err != "" {
		s.logger.Warn("structure_response_unparsable", "error", record.Err)
	}
	return record, nil
}

// fallbackRecord is the deterministic no-API-key mode: a clearly marked stub
// carrying the raw text preview, so the pipeline still runs end to end.
func fallbackRecord(text string) *domain.ExtractedRecord {
	preview := text
	if len(preview) > 500 {
		preview = preview[:500] + "..."
	}
	zero := 0.0
	one := 1.0
	return &domain.ExtractedRecord{
		VendorName:     "OCR Fallback Mode",
		DocumentNumber: "N/A",
		DocumentDate:   "N/A",
		Subtotal:       &zero,
		Tax:            &zero,
		GrandTotal:     &zero,
		LineItems: []domain.LineItem{
			{Description: "RAW OCR: " + preview, Quantity: &one, UnitPrice: &zero, LineTotal: &zero},
		},
	}
}

type wireLineItem struct {
	Description any `json:"description"`
	Qty         any `json:"qty"`
	UnitPrice   any `json:"unit_price"`
	LineTotal   any `json:"line_total"`
}

type wireRecord struct {
	VendorName    any            `json:"vendor_name"`
	InvoiceNumber any            `json:"invoice_number"`
	InvoiceDate   any            `json:"invoice_date"`
	Subtotal      any            `json:"subtotal"`
	Tax           any            `json:"tax"`
	GrandTotal    any            `json:"grand_total"`
	LineItems     []wireLineItem `json:"line_items"`
}

// decodeRecord maps the model's loosely-typed JSON onto the domain record.
// Numbers may arrive as strings with currency formatting; those parse
// tolerantly, and anything unparsable reads as zero with a malformed-field
// marker.
func decodeRecord(raw string) *domain.ExtractedRecord {
	var wire wireRecord
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return domain.FailedRecord("unparsable structuring response: "+err.Error(), []byte(raw))
	}

	record := &domain.ExtractedRecord{
		VendorName:     asString(wire.VendorName),
		DocumentNumber: asString(wire.InvoiceNumber),
		DocumentDate:   asString(wire.InvoiceDate),
		Raw:            json.RawMessage(raw),
	}

	record.Subtotal = numericField(wire.Subtotal, "subtotal", record)
	record.Tax = numericField(wire.Tax, "tax", record)
	record.GrandTotal = numericField(wire.GrandTotal, "grand_total", record)

	statedTotal := 0.0
	for i, item := range wire.LineItems {
		line := domain.LineItem{Description: asString(item.Description)}
		line.Quantity = numericField(item.Qty, fmt.Sprintf("line_items[%d].qty", i), record)
		line.UnitPrice = numericField(item.UnitPrice, fmt.Sprintf("line_items[%d].unit_price", i), record)
		line.LineTotal = numericField(item.LineTotal, fmt.Sprintf("line_items[%d].line_total", i), record)
		if line.LineTotal != nil {
			statedTotal += *line.LineTotal
		}
		record.LineItems = append(record.LineItems, line)
	}

	// Same failsafe the prompt demands of the model: a missing grand total
	// is computed from line totals instead of shipping a zero-value record.
	if record.GrandTotal == nil && statedTotal > 0 {
		rounded := math.Round(statedTotal*100) / 100
		record.GrandTotal = &rounded
	}

	return record
}

func numericField(v any, field string, record *domain.ExtractedRecord) *float64 {
	if v == nil {
		return nil
	}
	amount, ok := domain.ParseAmount(v)
	if !ok {
		record.MalformedFields = append(record.MalformedFields, field)
	}
	return &amount
}

func asString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}
