package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/facturier/facturier/internal/app"
	"github.com/facturier/facturier/internal/ledger"
	"github.com/facturier/facturier/internal/observability"
	"github.com/facturier/facturier/internal/seed"
	"github.com/facturier/facturier/internal/storage"
	"github.com/facturier/facturier/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))
	if cfg.StoreDriver == app.DriverMemory {
		logger.Warn("memory store selected, jobs only see the seed data")
	}

	data, err := seed.Load(cfg.SeedFile)
	if err != nil {
		logger.Error("load seed", slog.Any("error", err))
		os.Exit(1)
	}
	store, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		logger.Error("open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	// The API process owns the ledger; every run reloads it from the store.
	source := func(ctx context.Context) (ledger.Snapshot, error) {
		l, err := ledger.Open(ctx, store, data,
			ledger.WithLogger(logger),
			ledger.WithKeys(storage.NewKeys(cfg.StoreKeyPrefix)),
		)
		if err != nil {
			return ledger.Snapshot{}, err
		}
		return l.Snapshot(), nil
	}

	metrics := observability.NewMetrics()
	snapshotJob := jobs.NewSnapshotJob(source, cfg.BackupDir, logger, metrics)
	lowStockJob := jobs.NewLowStockScanJob(source, cfg.LowStockThreshold, logger, metrics)

	snapshotTask, err := jobs.NewSnapshotTask(time.Now())
	if err != nil {
		logger.Error("build snapshot task", slog.Any("error", err))
		os.Exit(1)
	}
	lowStockTask, err := jobs.NewLowStockScanTask(0)
	if err != nil {
		logger.Error("build low stock task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLedgerSnapshot, Handler: snapshotJob.Handle},
			{Type: jobs.TaskLowStockScan, Handler: lowStockJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: jobs.SnapshotSchedule, Task: snapshotTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: jobs.LowStockSchedule, Task: lowStockTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsRouter := chi.NewRouter()
	metricsRouter.Method(http.MethodGet, "/metrics", metrics.Handler())
	metricsServer := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           metricsRouter,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
