package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/apiarylabs/ledgerpilot/internal/config"
	"github.com/apiarylabs/ledgerpilot/internal/core/ports"
	"github.com/apiarylabs/ledgerpilot/internal/core/usecase"
	"github.com/apiarylabs/ledgerpilot/internal/infrastructure/extractor/doctext"
	"github.com/apiarylabs/ledgerpilot/internal/infrastructure/llm/groq"
	"github.com/apiarylabs/ledgerpilot/internal/infrastructure/notify/smtp"
	"github.com/apiarylabs/ledgerpilot/internal/infrastructure/queue/nats"
	"github.com/apiarylabs/ledgerpilot/internal/infrastructure/repository/postgres"
	"github.com/apiarylabs/ledgerpilot/internal/infrastructure/resilience"
	"github.com/apiarylabs/ledgerpilot/internal/infrastructure/storage/localfs"
	"github.com/apiarylabs/ledgerpilot/internal/observability/logging"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue  ports.TaskQueue
	Runner ports.PipelineRunner

	IngestUC  ports.DocumentIngestor
	ActionsUC *usecase.DocumentActionsUseCase
	PolicyUC  *usecase.PolicyService
	SweepUC   *usecase.SweepUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	logger := logging.NewJSONLogger(service, cfg.LogLevel)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	docRepo := postgres.NewDocumentRepository(db)
	if err := docRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	eventRepo := postgres.NewEventRepository(db)
	policyRepo := postgres.NewPolicyRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init task queue: %w", err)
	}

	groqClient := groq.New(cfg.GroqAPIKey, groq.Options{
		BaseURL:        cfg.GroqBaseURL,
		StructureModel: cfg.GroqStructureModel,
		AuditModel:     cfg.GroqAuditModel,
		Executor:       executor,
	})
	structurer := groq.NewStructurer(groqClient, logger)
	judge := groq.NewAuditor(groqClient, logger)

	extractor := doctext.NewExtractor()
	tabular := doctext.NewTabularReader()
	notifier := smtp.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, logger)

	extractTimeout := time.Duration(cfg.ExtractionTimeoutSeconds) * time.Second

	policyUC := usecase.NewPolicyService(policyRepo, docRepo, eventRepo, logger)
	auditUC := usecase.NewAuditUseCase(judge, logger)
	processUC := usecase.NewProcessDocumentUseCase(
		docRepo, eventRepo, policyUC, storage, extractor, structurer,
		auditUC, notifier, logger, extractTimeout,
	)
	auditPassUC := usecase.NewAuditPassUseCase(
		docRepo, eventRepo, storage, extractor, auditUC, notifier, logger, extractTimeout,
	)
	importUC := usecase.NewImportSpreadsheetUseCase(docRepo, eventRepo, storage, tabular, logger)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:  queue,
		Runner: usecase.NewTaskRunner(processUC, auditPassUC, importUC, docRepo, logger),

		IngestUC:  usecase.NewIngestDocumentUseCase(docRepo, eventRepo, storage, queue, logger),
		ActionsUC: usecase.NewDocumentActionsUseCase(docRepo, eventRepo, storage, queue, notifier, logger),
		PolicyUC:  policyUC,
		SweepUC:   usecase.NewSweepUseCase(docRepo, eventRepo, queue, logger),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
