package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/apiarylabs/ledgerpilot/internal/core/domain"
	"github.com/apiarylabs/ledgerpilot/internal/core/ports"
)

func newAuditPassFixture(doc *domain.Document, judge *judgeFake) (*AuditPassUseCase, *repoFake, *ledgerFake, *storageFake, *notifierFake) {
	repo := &repoFake{doc: doc}
	ledger := &ledgerFake{}
	storage := &storageFake{data: []byte("raw bytes")}
	notifier := &notifierFake{}
	logger := testLogger()
	uc := NewAuditPassUseCase(repo, ledger, storage, &extractorFake{text: "INVOICE"},
		NewAuditUseCase(judge, logger), notifier, logger, 200*time.Millisecond)
	return uc, repo, ledger, storage, notifier
}

func TestRunByIDSkipsDocumentsNotUnderReview(t *testing.T) {
	doc := reviewDoc()
	doc.Status = domain.StatusAutoApproved
	uc, repo, ledger, _, _ := newAuditPassFixture(doc, &judgeFake{})

	if err := uc.RunByID(context.Background(), "doc-1", "admin-1"); err != nil {
		t.Fatalf("RunByID() error = %v", err)
	}
	if len(repo.statusCalls) != 0 || len(ledger.events) != 0 {
		t.Fatalf("skipped run must not touch state")
	}
}

func TestRunByIDAppliesAuditorVerdict(t *testing.T) {
	doc := reviewDoc()
	doc.Confidence = floatPtr(0.30)
	judge := &judgeFake{verdict: ports.Verdict{Decision: ports.VerdictReject, Reason: "inconsistent totals"}}
	uc, repo, ledger, _, notifier := newAuditPassFixture(doc, judge)

	if err := uc.RunByID(context.Background(), "doc-1", "admin-1"); err != nil {
		t.Fatalf("RunByID() error = %v", err)
	}
	if len(repo.statusCalls) != 1 || repo.statusCalls[0] != domain.StatusRejected {
		t.Fatalf("unexpected status writes: %v", repo.statusCalls)
	}
	if !ledger.hasType(domain.EventAuditStarted) || !ledger.hasType(domain.EventRejected) {
		t.Fatalf("missing audit events: %v", ledger.types())
	}
	if len(notifier.sent) != 1 || notifier.sent[0].status != domain.StatusRejected {
		t.Fatalf("expected rejection notification, got %+v", notifier.sent)
	}
}

func TestRunByIDStorageTroubleStillAudits(t *testing.T) {
	doc := reviewDoc()
	doc.Confidence = floatPtr(0.30)
	judge := &judgeFake{verdict: ports.Verdict{Decision: ports.VerdictUncertain, Reason: "no raw text"}}
	uc, repo, _, storage, _ := newAuditPassFixture(doc, judge)
	storage.openErr = errors.New("object missing")

	if err := uc.RunByID(context.Background(), "doc-1", "admin-1"); err != nil {
		t.Fatalf("RunByID() error = %v", err)
	}
	if judge.calls != 1 {
		t.Fatalf("judge must still run on sentinel text, calls = %d", judge.calls)
	}
	if len(repo.statusCalls) != 1 || repo.statusCalls[0] != domain.StatusAdminPassNeeded {
		t.Fatalf("unexpected status writes: %v", repo.statusCalls)
	}
}
