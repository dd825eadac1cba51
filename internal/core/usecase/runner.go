package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/apiarylabs/ledgerpilot/internal/core/ports"
)

// TaskRunner dispatches dequeued tasks to the matching pipeline stage. Each
// task executes in its own failure-isolated scope: a panic is converted to a
// failed run for that one document and never reaches the subscriber loop.
type TaskRunner struct {
	process *ProcessDocumentUseCase
	audit   *AuditPassUseCase
	imports *ImportSpreadsheetUseCase
	repo    ports.DocumentRepository
	logger  *slog.Logger
}

func NewTaskRunner(
	process *ProcessDocumentUseCase,
	audit *AuditPassUseCase,
	imports *ImportSpreadsheetUseCase,
	repo ports.DocumentRepository,
	logger *slog.Logger,
) *TaskRunner {
	return &TaskRunner{
		process: process,
		audit:   audit,
		imports: imports,
		repo:    repo,
		logger:  logger,
	}
}

func (r *TaskRunner) Run(ctx context.Context, task ports.Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("task_panic", "kind", task.Kind, "document_id", task.DocumentID,
				"panic", rec, "stack", string(debug.Stack()))
			if failErr := r.repo.MarkFailed(ctx, task.DocumentID, 0); failErr != nil {
				r.logger.Error("mark_failed_after_panic", "document_id", task.DocumentID, "error", failErr)
			}
			err = fmt.Errorf("task panicked: %v", rec)
		}
	}()

	start := time.Now()
	switch task.Kind {
	case ports.TaskProcess:
		err = r.process.ProcessByID(ctx, task.DocumentID, task.ActorID)
	case ports.TaskAudit:
		err = r.audit.RunByID(ctx, task.DocumentID, task.ActorID)
	case ports.TaskImport:
		err = r.imports.ImportByID(ctx, task.DocumentID, task.ActorID)
	default:
		err = fmt.Errorf("unknown task kind %q", task.Kind)
	}

	if err != nil {
		r.logger.Error("task_failed", "kind", task.Kind, "document_id", task.DocumentID,
			"duration_ms", time.Since(start).Milliseconds(), "error", err)
		return err
	}
	r.logger.Info("task_completed", "kind", task.Kind, "document_id", task.DocumentID,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
