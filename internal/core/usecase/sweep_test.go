package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/apiarylabs/ledgerpilot/internal/core/domain"
	"github.com/apiarylabs/ledgerpilot/internal/core/ports"
)

func TestSweepRecoverableResetsAndEnqueues(t *testing.T) {
	repo := &repoFake{listed: []domain.Document{
		{ID: "d1", Status: domain.StatusProcessingFailed},
		{ID: "d2", Status: domain.StatusAdminPassNeeded},
	}}
	ledger := &ledgerFake{}
	queue := &queueFake{}
	uc := NewSweepUseCase(repo, ledger, queue, testLogger())

	n, err := uc.SweepRecoverable(context.Background(), "t-1", "admin-1", nil)
	if err != nil {
		t.Fatalf("SweepRecoverable() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("enqueued = %d, want 2", n)
	}
	if len(repo.resetIDs) != 2 {
		t.Fatalf("resets = %v, want both documents", repo.resetIDs)
	}
	for _, task := range queue.published {
		if task.Kind != ports.TaskProcess {
			t.Fatalf("unexpected task kind %s", task.Kind)
		}
	}
}

func TestSweepRecoverableSkipsApprovedWithLedgerEntry(t *testing.T) {
	repo := &repoFake{listed: []domain.Document{
		{ID: "d1", Status: domain.StatusApproved},
		{ID: "d2", Status: domain.StatusProcessingFailed},
	}}
	ledger := &ledgerFake{}
	queue := &queueFake{}
	uc := NewSweepUseCase(repo, ledger, queue, testLogger())

	n, err := uc.SweepRecoverable(context.Background(), "t-1", "admin-1", []string{"d1", "d2"})
	if err != nil {
		t.Fatalf("SweepRecoverable() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("enqueued = %d, want 1", n)
	}
	if len(repo.resetIDs) != 1 || repo.resetIDs[0] != "d2" {
		t.Fatalf("approved document must never be reset: %v", repo.resetIDs)
	}
	if !ledger.hasType(domain.EventSweepSkipped) {
		t.Fatalf("missing skip event, got %v", ledger.types())
	}
}

func TestSweepRecoverableEnqueueFailureIsolated(t *testing.T) {
	repo := &repoFake{listed: []domain.Document{
		{ID: "d1", Status: domain.StatusProcessingFailed},
	}}
	ledger := &ledgerFake{}
	queue := &queueFake{publishErr: errors.New("broker down")}
	uc := NewSweepUseCase(repo, ledger, queue, testLogger())

	n, err := uc.SweepRecoverable(context.Background(), "t-1", "admin-1", nil)
	if err != nil {
		t.Fatalf("per-document failure must not abort the sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("enqueued = %d, want 0", n)
	}
	if !ledger.hasType(domain.EventSweepSkipped) {
		t.Fatalf("missing skip event, got %v", ledger.types())
	}
}

func TestSweepUnderReviewEnqueuesAuditTasks(t *testing.T) {
	repo := &repoFake{listed: []domain.Document{
		{ID: "d1", Status: domain.StatusUnderReview},
		{ID: "d2", Status: domain.StatusUnderReview},
	}}
	queue := &queueFake{}
	uc := NewSweepUseCase(repo, &ledgerFake{}, queue, testLogger())

	n, err := uc.SweepUnderReview(context.Background(), "t-1", "admin-1")
	if err != nil {
		t.Fatalf("SweepUnderReview() error = %v", err)
	}
	if n != 2 || len(queue.published) != 2 {
		t.Fatalf("enqueued = %d tasks = %d, want 2 each", n, len(queue.published))
	}
	if queue.published[0].Kind != ports.TaskAudit {
		t.Fatalf("unexpected task kind %s", queue.published[0].Kind)
	}
	if len(repo.resetIDs) != 0 {
		t.Fatalf("review sweep must not reset documents")
	}
}
