package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/apiarylabs/ledgerpilot/internal/core/domain"
)

func TestEvaluatePolicyCleanDocumentAutoApproves(t *testing.T) {
	policy := domain.DefaultPolicy("t-1")
	status, reasons, escalate := EvaluatePolicy(policy, 0.97, 1200, false, false)
	if status != domain.StatusAutoApproved {
		t.Fatalf("status = %s, want auto_approved", status)
	}
	if len(reasons) != 0 || escalate {
		t.Fatalf("unexpected reasons %v escalate %v", reasons, escalate)
	}
}

func TestEvaluatePolicyCollectsEveryApplicableReason(t *testing.T) {
	policy := domain.DefaultPolicy("t-1")
	status, reasons, escalate := EvaluatePolicy(policy, 0.80, 150000, true, true)
	if status != domain.StatusUnderReview {
		t.Fatalf("status = %s, want under_review", status)
	}
	if len(reasons) != 5 {
		t.Fatalf("expected all 5 reasons, got %v", reasons)
	}
	if !escalate {
		t.Fatalf("expected high-value escalation")
	}
}

func TestEvaluatePolicyEscalationAlwaysRoutesToReview(t *testing.T) {
	policy := domain.DefaultPolicy("t-1")
	policy.MaxAutoApproveAmount = 500000
	status, _, escalate := EvaluatePolicy(policy, 0.99, 120000, false, false)
	if status != domain.StatusUnderReview || !escalate {
		t.Fatalf("got status=%s escalate=%v, want under_review with escalation", status, escalate)
	}
}

func TestEvaluatePolicyFlagsIgnoredWhenRulesDisabled(t *testing.T) {
	policy := domain.DefaultPolicy("t-1")
	policy.ReviewOnDuplicate = false
	policy.ReviewOnFraud = false
	status, reasons, _ := EvaluatePolicy(policy, 0.97, 1200, true, true)
	if status != domain.StatusAutoApproved {
		t.Fatalf("status = %s, reasons %v, want auto_approved", status, reasons)
	}
}

func TestGetOrCreateLazilyCreatesDefaults(t *testing.T) {
	repo := &policyRepoFake{getErr: domain.WrapError(domain.ErrDocumentNotFound, "policy", domain.ErrDocumentNotFound)}
	svc := NewPolicyService(repo, &repoFake{}, &ledgerFake{}, testLogger())

	policy, err := svc.GetOrCreate(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if policy.AutoApproveConfidence != 0.95 || policy.MaxAutoApproveAmount != 50000 {
		t.Fatalf("unexpected defaults: %+v", policy)
	}
	if policy.ID == "" {
		t.Fatalf("created policy has no id")
	}
	if len(repo.upserts) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(repo.upserts))
	}
}

func TestUpdateOverwritesAllThresholds(t *testing.T) {
	existing := domain.DefaultPolicy("t-1")
	existing.ID = "pol-1"
	repo := &policyRepoFake{policy: &existing}
	svc := NewPolicyService(repo, &repoFake{}, &ledgerFake{}, testLogger())

	update := domain.Policy{
		AutoApproveConfidence: 0.80,
		MaxAutoApproveAmount:  500,
		HighValueEscalation:   90000,
		AuditorEnabled:        true,
		FraudAmountThreshold:  2000,
	}
	got, err := svc.Update(context.Background(), "t-1", "admin-1", update)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.ID != "pol-1" || got.AutoApproveConfidence != 0.80 || got.MaxAutoApproveAmount != 500 {
		t.Fatalf("unexpected updated policy: %+v", got)
	}
	if got.ReviewOnDuplicate || got.ReviewOnFraud {
		t.Fatalf("cleared booleans must overwrite, got %+v", got)
	}

	// the updated thresholds now route a previously clean document to review
	status, _, _ := EvaluatePolicy(*got, 0.85, 1200, false, false)
	if status != domain.StatusUnderReview {
		t.Fatalf("status = %s, want under_review after threshold update", status)
	}
}

func TestUpdateRecordsLedgerEntryOnOldestDocument(t *testing.T) {
	existing := domain.DefaultPolicy("t-1")
	existing.ID = "pol-1"
	repo := &policyRepoFake{policy: &existing}
	docs := &repoFake{firstDoc: &domain.Document{ID: "doc-oldest", TenantID: "t-1"}}
	ledger := &ledgerFake{}
	svc := NewPolicyService(repo, docs, ledger, testLogger())

	update := existing
	update.AutoApproveConfidence = 0.80
	update.AuditorEnabled = true
	if _, err := svc.Update(context.Background(), "t-1", "admin-1", update); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !ledger.hasType(domain.EventPolicyUpdated) {
		t.Fatalf("expected POLICY_UPDATED on the ledger, got %v", ledger.types())
	}
	event := ledger.events[0]
	if event.DocumentID != "doc-oldest" || event.ActorID != "admin-1" {
		t.Fatalf("unexpected event anchor: %+v", event)
	}
	if !strings.Contains(event.Message, "auto_approve_confidence_threshold") ||
		!strings.Contains(event.Message, "auditor_enabled") {
		t.Fatalf("message must name changed fields, got %q", event.Message)
	}
}

func TestUpdateWithoutDocumentsSkipsLedgerEntry(t *testing.T) {
	existing := domain.DefaultPolicy("t-1")
	repo := &policyRepoFake{policy: &existing}
	ledger := &ledgerFake{}
	svc := NewPolicyService(repo, &repoFake{}, ledger, testLogger())

	update := existing
	update.MaxAutoApproveAmount = 100
	if _, err := svc.Update(context.Background(), "t-1", "admin-1", update); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(ledger.events) != 0 {
		t.Fatalf("tenant with no documents must not get a ledger entry, got %v", ledger.types())
	}
	if len(repo.upserts) != 1 {
		t.Fatalf("update must still persist, got %d upserts", len(repo.upserts))
	}
}

func TestUpdateRejectsOutOfRangeConfidence(t *testing.T) {
	repo := &policyRepoFake{policy: &domain.Policy{}}
	svc := NewPolicyService(repo, &repoFake{}, &ledgerFake{}, testLogger())

	_, err := svc.Update(context.Background(), "t-1", "admin-1", domain.Policy{AutoApproveConfidence: 1.5})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
	if len(repo.upserts) != 0 {
		t.Fatalf("invalid update must not be persisted")
	}
}
