package domain

import "time"

// Policy holds one tenant's approval thresholds. Exactly one row per
// tenant, lazily created with defaults on first use; updates are
// last-write-wins.
type Policy struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`

	AutoApproveConfidence float64 `json:"auto_approve_confidence_threshold"`
	MaxAutoApproveAmount  float64 `json:"max_auto_approve_amount"`
	HighValueEscalation   float64 `json:"high_value_escalation_threshold"`
	ReviewOnDuplicate     bool    `json:"require_review_if_duplicate"`
	ReviewOnFraud         bool    `json:"require_review_if_fraud_flag"`
	AuditorEnabled        bool    `json:"auditor_enabled"`
	FraudAmountThreshold  float64 `json:"fraud_amount_threshold"`

	UpdatedAt time.Time `json:"updated_at"`
}

func DefaultPolicy(tenantID string) Policy {
	return Policy{
		TenantID:              tenantID,
		AutoApproveConfidence: 0.95,
		MaxAutoApproveAmount:  50000,
		HighValueEscalation:   100000,
		ReviewOnDuplicate:     true,
		ReviewOnFraud:         true,
		AuditorEnabled:        false,
		FraudAmountThreshold:  10000,
	}
}
