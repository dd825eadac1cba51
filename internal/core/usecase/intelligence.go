package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/apiarylabs/ledgerpilot/internal/core/ports"
)

// Fraud heuristic weights. Deterministic and explainable on purpose;
// this is not a learned model.
const (
	fraudAmountPoints     = 40.0
	fraudConfidencePoints = 30.0
	fraudScoreCap         = 100.0
	fraudFlagThreshold    = 50.0

	lowConfidenceBound = 0.75
)

// TextHash fingerprints extracted text for exact-duplicate matching.
func TextHash(rawText string) string {
	sum := sha256.Sum256([]byte(rawText))
	return hex.EncodeToString(sum[:])
}

// CheckDuplicate scans the tenant's history for the same document. Either an
// exact text-hash match or a (vendor, number, amount) triplet match is
// sufficient on its own: OCR noise can change the hash while the logical
// fields stay identical.
func CheckDuplicate(
	ctx context.Context,
	repo ports.DocumentRepository,
	tenantID, textHash, vendor, number string,
	amount float64,
	excludeID string,
) (bool, error) {
	if textHash != "" {
		found, err := repo.ExistsWithTextHash(ctx, tenantID, textHash, excludeID)
		if err != nil {
			return false, fmt.Errorf("duplicate hash lookup: %w", err)
		}
		if found {
			return true, nil
		}
	}

	if vendor != "" && number != "" && amount != 0 {
		found, err := repo.ExistsWithTriplet(ctx, tenantID, vendor, number, amount, excludeID)
		if err != nil {
			return false, fmt.Errorf("duplicate triplet lookup: %w", err)
		}
		if found {
			return true, nil
		}
	}

	return false, nil
}

// FraudSignals evaluates the additive fraud heuristic. Each triggered rule
// contributes points and one human-readable reason; the document is flagged
// once the capped score reaches the flag threshold.
func FraudSignals(confidence, amount, amountThreshold float64) (bool, float64, []string) {
	score := 0.0
	reasons := make([]string, 0, 2)

	if amount > amountThreshold {
		score += fraudAmountPoints
		reasons = append(reasons, fmt.Sprintf("amount %.2f exceeds fraud threshold (%.2f)", amount, amountThreshold))
	}
	if confidence < lowConfidenceBound {
		score += fraudConfidencePoints
		reasons = append(reasons, fmt.Sprintf("suspiciously low extraction confidence (%.2f)", confidence))
	}

	if score > fraudScoreCap {
		score = fraudScoreCap
	}
	return score >= fraudFlagThreshold, score, reasons
}
