package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/apiarylabs/ledgerpilot/internal/core/domain"
)

type PolicyRepository struct {
	db *sql.DB
}

func NewPolicyRepository(db *sql.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

func (r *PolicyRepository) GetByTenant(ctx context.Context, tenantID string) (*domain.Policy, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, tenant_id, auto_approve_confidence_threshold, max_auto_approve_amount,
       high_value_escalation_threshold, require_review_if_duplicate,
       require_review_if_fraud_flag, auditor_enabled, fraud_amount_threshold, updated_at
FROM tenant_policies
WHERE tenant_id = $1
`, tenantID)

	var p domain.Policy
	err := row.Scan(
		&p.ID, &p.TenantID, &p.AutoApproveConfidence, &p.MaxAutoApproveAmount,
		&p.HighValueEscalation, &p.ReviewOnDuplicate, &p.ReviewOnFraud,
		&p.AuditorEnabled, &p.FraudAmountThreshold, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get tenant policy",
				fmt.Errorf("tenant=%s", tenantID))
		}
		return nil, fmt.Errorf("scan tenant policy: %w", err)
	}
	return &p, nil
}

// Upsert writes the whole policy row. Concurrent updates resolve
// last-write-wins on the tenant_id unique constraint.
func (r *PolicyRepository) Upsert(ctx context.Context, policy *domain.Policy) error {
	if _, err := r.db.ExecContext(ctx, `
INSERT INTO tenants (id) VALUES ($1) ON CONFLICT (id) DO NOTHING
`, policy.TenantID); err != nil {
		return fmt.Errorf("ensure tenant: %w", err)
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO tenant_policies (
	id, tenant_id, auto_approve_confidence_threshold, max_auto_approve_amount,
	high_value_escalation_threshold, require_review_if_duplicate,
	require_review_if_fraud_flag, auditor_enabled, fraud_amount_threshold, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (tenant_id) DO UPDATE SET
	auto_approve_confidence_threshold = EXCLUDED.auto_approve_confidence_threshold,
	max_auto_approve_amount = EXCLUDED.max_auto_approve_amount,
	high_value_escalation_threshold = EXCLUDED.high_value_escalation_threshold,
	require_review_if_duplicate = EXCLUDED.require_review_if_duplicate,
	require_review_if_fraud_flag = EXCLUDED.require_review_if_fraud_flag,
	auditor_enabled = EXCLUDED.auditor_enabled,
	fraud_amount_threshold = EXCLUDED.fraud_amount_threshold,
	updated_at = EXCLUDED.updated_at
`,
		policy.ID, policy.TenantID, policy.AutoApproveConfidence, policy.MaxAutoApproveAmount,
		policy.HighValueEscalation, policy.ReviewOnDuplicate, policy.ReviewOnFraud,
		policy.AuditorEnabled, policy.FraudAmountThreshold, policy.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert tenant policy: %w", err)
	}
	return nil
}
