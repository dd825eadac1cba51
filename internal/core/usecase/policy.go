package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/apiarylabs/ledgerpilot/internal/core/domain"
	"github.com/apiarylabs/ledgerpilot/internal/core/ports"
)

// EvaluatePolicy is the tenant-configurable decision function. All rules are
// evaluated independently and every applicable reason is reported; any
// reason at all routes the document to review. Identical inputs always yield
// identical output, which keeps replays and tests safe.
func EvaluatePolicy(
	policy domain.Policy,
	confidence, amount float64,
	isDuplicate, isFraud bool,
) (domain.DocumentStatus, []string, bool) {
	reasons := make([]string, 0, 5)
	escalate := false

	if confidence < policy.AutoApproveConfidence {
		reasons = append(reasons, fmt.Sprintf(
			"confidence %.1f%% below policy threshold (%.1f%%)",
			confidence*100, policy.AutoApproveConfidence*100,
		))
	}
	if amount > policy.MaxAutoApproveAmount {
		reasons = append(reasons, fmt.Sprintf(
			"amount %.2f exceeds auto-approve limit (%.2f)",
			amount, policy.MaxAutoApproveAmount,
		))
	}
	if isDuplicate && policy.ReviewOnDuplicate {
		reasons = append(reasons, "duplicate detection policy requires manual review")
	}
	if isFraud && policy.ReviewOnFraud {
		reasons = append(reasons, "fraud signal policy requires manual review")
	}
	if amount > policy.HighValueEscalation {
		escalate = true
		reasons = append(reasons, fmt.Sprintf(
			"high-value escalation: amount %.2f exceeds escalation threshold (%.2f)",
			amount, policy.HighValueEscalation,
		))
	}

	if len(reasons) > 0 {
		return domain.StatusUnderReview, reasons, escalate
	}
	return domain.StatusAutoApproved, reasons, escalate
}

// PolicyService owns per-tenant policy lifecycle: lazy default creation and
// last-write-wins admin updates. Updates are recorded on the ledger against
// the tenant's oldest document, since ledger entries are document-anchored.
type PolicyService struct {
	policies ports.PolicyRepository
	repo     ports.DocumentRepository
	ledger   ports.EventLedger
	logger   *slog.Logger
}

func NewPolicyService(
	policies ports.PolicyRepository,
	repo ports.DocumentRepository,
	ledger ports.EventLedger,
	logger *slog.Logger,
) *PolicyService {
	return &PolicyService{policies: policies, repo: repo, ledger: ledger, logger: logger}
}

// GetOrCreate returns the tenant's policy, creating one with defaults on
// first access. A reader never observes a tenant without a policy.
func (s *PolicyService) GetOrCreate(ctx context.Context, tenantID string) (*domain.Policy, error) {
	policy, err := s.policies.GetByTenant(ctx, tenantID)
	if err == nil {
		return policy, nil
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		return nil, fmt.Errorf("load tenant policy: %w", err)
	}

	created := domain.DefaultPolicy(tenantID)
	created.ID = uuid.NewString()
	created.UpdatedAt = time.Now().UTC()
	if err := s.policies.Upsert(ctx, &created); err != nil {
		return nil, fmt.Errorf("create default policy: %w", err)
	}
	s.logger.Info("policy_defaults_created", "tenant_id", tenantID)
	return &created, nil
}

func (s *PolicyService) Get(ctx context.Context, tenantID string) (*domain.Policy, error) {
	return s.GetOrCreate(ctx, tenantID)
}

// Update applies an admin edit over the tenant's current policy. Races
// between concurrent updates resolve last-write-wins, no merge.
func (s *PolicyService) Update(ctx context.Context, tenantID, actorID string, update domain.Policy) (*domain.Policy, error) {
	if err := validatePolicy(update); err != nil {
		return nil, err
	}

	current, err := s.GetOrCreate(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	changed := changedPolicyFields(*current, update)
	current.AutoApproveConfidence = update.AutoApproveConfidence
	current.MaxAutoApproveAmount = update.MaxAutoApproveAmount
	current.HighValueEscalation = update.HighValueEscalation
	current.ReviewOnDuplicate = update.ReviewOnDuplicate
	current.ReviewOnFraud = update.ReviewOnFraud
	current.AuditorEnabled = update.AuditorEnabled
	current.FraudAmountThreshold = update.FraudAmountThreshold
	current.UpdatedAt = time.Now().UTC()

	if err := s.policies.Upsert(ctx, current); err != nil {
		return nil, fmt.Errorf("update tenant policy: %w", err)
	}
	s.recordUpdate(ctx, tenantID, actorID, changed)
	s.logger.Info("policy_updated", "tenant_id", tenantID, "actor_id", actorID, "changed", changed)
	return current, nil
}

// recordUpdate anchors a POLICY_UPDATED entry on the tenant's oldest
// document. A tenant with no documents yet gets no ledger entry; the
// structured log above still records the change.
func (s *PolicyService) recordUpdate(ctx context.Context, tenantID, actorID string, changed []string) {
	anchor, err := s.repo.FirstByTenant(ctx, tenantID)
	if err != nil {
		if !domain.IsKind(err, domain.ErrDocumentNotFound) {
			s.logger.Warn("policy_event_anchor_lookup_failed", "tenant_id", tenantID, "error", err)
		}
		return
	}
	message := "approval policy updated"
	if len(changed) > 0 {
		message += ", changed: " + strings.Join(changed, ", ")
	}
	appendEvent(ctx, s.ledger, s.logger, anchor.ID, actorID, domain.EventPolicyUpdated, message)
}

func changedPolicyFields(current, update domain.Policy) []string {
	changed := make([]string, 0, 7)
	if current.AutoApproveConfidence != update.AutoApproveConfidence {
		changed = append(changed, "auto_approve_confidence_threshold")
	}
	if current.MaxAutoApproveAmount != update.MaxAutoApproveAmount {
		changed = append(changed, "max_auto_approve_amount")
	}
	if current.HighValueEscalation != update.HighValueEscalation {
		changed = append(changed, "high_value_escalation_threshold")
	}
	if current.ReviewOnDuplicate != update.ReviewOnDuplicate {
		changed = append(changed, "require_review_if_duplicate")
	}
	if current.ReviewOnFraud != update.ReviewOnFraud {
		changed = append(changed, "require_review_if_fraud_flag")
	}
	if current.AuditorEnabled != update.AuditorEnabled {
		changed = append(changed, "auditor_enabled")
	}
	if current.FraudAmountThreshold != update.FraudAmountThreshold {
		changed = append(changed, "fraud_amount_threshold")
	}
	return changed
}

func validatePolicy(p domain.Policy) error {
	if p.AutoApproveConfidence < 0 || p.AutoApproveConfidence > 1 {
		return domain.WrapError(domain.ErrInvalidInput, "validate policy",
			fmt.Errorf("confidence threshold %v outside [0,1]", p.AutoApproveConfidence))
	}
	if p.MaxAutoApproveAmount < 0 || p.HighValueEscalation < 0 || p.FraudAmountThreshold < 0 {
		return domain.WrapError(domain.ErrInvalidInput, "validate policy",
			fmt.Errorf("amount thresholds must be non-negative"))
	}
	return nil
}
