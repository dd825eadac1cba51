package usecase

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/apiarylabs/ledgerpilot/internal/core/domain"
)

// Score weights. Required fields and line-item arithmetic carry 30% each,
// grand-total arithmetic the remaining 40%.
const (
	fieldsWeight    = 0.30
	lineItemsWeight = 0.30
	totalsWeight    = 0.40

	arithmeticTolerance = 0.02
)

var requiredFields = []string{"vendor_name", "invoice_number", "invoice_date", "grand_total"}

// ValidateAndScore cross-checks a structured record's completeness and
// arithmetic. It returns a confidence score in [0,1] and an ordered defect
// list. It never fails: malformed upstream data degrades the score, it does
// not abort the pipeline.
func ValidateAndScore(record *domain.ExtractedRecord) (float64, []string) {
	if record == nil || record.Err != "" {
		return 0, []string{"missing or invalid structured record"}
	}

	score := 0.0
	defects := make([]string, 0, 4)

	for _, field := range record.MalformedFields {
		defects = append(defects, fmt.Sprintf("malformed numeric value for %s, read as 0", field))
	}

	score += scoreRequiredFields(record, &defects)
	lineItemsValid, statedSubtotal := scoreLineItems(record, &defects)
	if lineItemsValid {
		score += lineItemsWeight
	}
	if scoreTotals(record, statedSubtotal, &defects) {
		score += totalsWeight
	}

	return score, defects
}

func scoreRequiredFields(record *domain.ExtractedRecord, defects *[]string) float64 {
	present := map[string]bool{
		"vendor_name":    record.VendorName != "",
		"invoice_number": record.DocumentNumber != "",
		"invoice_date":   record.DocumentDate != "",
		"grand_total":    record.GrandTotal != nil,
	}

	count := 0
	missing := make([]string, 0, len(requiredFields))
	for _, field := range requiredFields {
		if present[field] {
			count++
		} else {
			missing = append(missing, field)
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		*defects = append(*defects, "missing essential fields: "+strings.Join(missing, ", "))
	}
	return fieldsWeight * float64(count) / float64(len(requiredFields))
}

// scoreLineItems checks qty*unit_price against each stated line total.
// The weight is all-or-nothing: one bad line withholds the full 30%.
// Returns whether the weight was earned and the sum of stated line totals.
func scoreLineItems(record *domain.ExtractedRecord, defects *[]string) (bool, float64) {
	if len(record.LineItems) == 0 {
		*defects = append(*defects, "no line items found")
		return false, 0
	}

	valid := true
	statedSubtotal := 0.0
	for _, item := range record.LineItems {
		qty := 1.0
		if item.Quantity != nil {
			qty = *item.Quantity
		}
		unitPrice := 0.0
		if item.UnitPrice != nil {
			unitPrice = *item.UnitPrice
		}
		lineTotal := 0.0
		if item.LineTotal != nil {
			lineTotal = *item.LineTotal
		}
		statedSubtotal += lineTotal

		expected := roundCents(qty * unitPrice)
		if math.Abs(expected-lineTotal) > arithmeticTolerance {
			valid = false
		}
	}

	if !valid {
		*defects = append(*defects, "line item arithmetic (qty * unit_price) mismatch")
	}
	return valid, statedSubtotal
}

func scoreTotals(record *domain.ExtractedRecord, statedSubtotal float64, defects *[]string) bool {
	subtotal := 0.0
	switch {
	case record.Subtotal != nil:
		subtotal = *record.Subtotal
	case len(record.LineItems) > 0:
		subtotal = statedSubtotal
	}

	tax := 0.0
	if record.Tax != nil {
		tax = *record.Tax
	}
	grandTotal := 0.0
	if record.GrandTotal != nil {
		grandTotal = *record.GrandTotal
	}

	expected := roundCents(subtotal + tax)
	if math.Abs(expected-grandTotal) <= arithmeticTolerance {
		return true
	}
	*defects = append(*defects, fmt.Sprintf(
		"totals mismatch: subtotal (%.2f) + tax (%.2f) != grand total (%.2f)",
		subtotal, tax, grandTotal,
	))
	return false
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
