package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ExtractedRecord is the structuring adapter's output: a small set of typed
// optional fields that decision logic reads, plus the raw payload kept only
// for audit snapshots. Decision logic must never reach into Raw.
type ExtractedRecord struct {
	VendorName     string     `json:"vendor_name,omitempty"`
	DocumentNumber string     `json:"invoice_number,omitempty"`
	DocumentDate   string     `json:"invoice_date,omitempty"`
	Subtotal       *float64   `json:"subtotal,omitempty"`
	Tax            *float64   `json:"tax,omitempty"`
	GrandTotal     *float64   `json:"grand_total,omitempty"`
	LineItems      []LineItem `json:"line_items,omitempty"`

	// Err marks a failed upstream structuring pass. Scoring short-circuits
	// on it instead of crashing the pipeline.
	Err string `json:"error,omitempty"`

	// MalformedFields lists numeric fields the adapter could not parse.
	// Each one is read as zero and surfaces as a scoring defect.
	MalformedFields []string `json:"malformed_fields,omitempty"`

	Raw json.RawMessage `json:"raw,omitempty"`
}

type LineItem struct {
	Description string   `json:"description,omitempty"`
	Quantity    *float64 `json:"qty,omitempty"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
	LineTotal   *float64 `json:"line_total,omitempty"`
}

// FailedRecord builds the error-marker record for an unparsable upstream
// response.
func FailedRecord(reason string, raw []byte) *ExtractedRecord {
	return &ExtractedRecord{Err: reason, Raw: raw}
}

// Amount returns the stated grand total, treating absent or malformed
// values as zero.
func (r *ExtractedRecord) Amount() float64 {
	if r == nil || r.GrandTotal == nil {
		return 0
	}
	return *r.GrandTotal
}

// ParseAmount reads a numeric that upstream may emit as a number or a
// formatted string ("1,234.50", "$99"). Malformed input degrades to zero;
// the second return tells the caller to record a defect.
func ParseAmount(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, true
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		cleaned := strings.TrimSpace(strings.Map(func(r rune) rune {
			switch r {
			case '$', ',', ' ':
				return -1
			}
			return r
		}, n))
		if cleaned == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
