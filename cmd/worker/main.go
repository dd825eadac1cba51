package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apiarylabs/ledgerpilot/internal/bootstrap"
	"github.com/apiarylabs/ledgerpilot/internal/config"
	"github.com/apiarylabs/ledgerpilot/internal/core/ports"
	"github.com/apiarylabs/ledgerpilot/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "worker")
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", workerMetrics.Handler())
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsMux,
	}
	go func() {
		app.Logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("worker metrics server error: %v", err)
		}
	}()

	taskTimeout := time.Duration(cfg.TaskTimeoutSeconds) * time.Second

	app.Logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.Subscribe(ctx, func(handlerCtx context.Context, task ports.Task) error {
		taskCtx, cancel := context.WithTimeout(handlerCtx, taskTimeout)
		defer cancel()

		if !task.EnqueuedAt.IsZero() {
			workerMetrics.ObserveQueueLag("worker", time.Since(task.EnqueuedAt))
		}

		workerMetrics.StartTask()
		start := time.Now()
		runErr := app.Runner.Run(taskCtx, task)
		workerMetrics.FinishTask("worker", string(task.Kind), time.Since(start), runErr)
		return runErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
