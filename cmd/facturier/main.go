package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/facturier/facturier/cmd/facturier/cli"
	"github.com/facturier/facturier/internal/app"
	ledgerhttp "github.com/facturier/facturier/internal/ledger/http"
	"github.com/facturier/facturier/internal/observability"
	"github.com/facturier/facturier/internal/report"
	"github.com/facturier/facturier/internal/view"
	"github.com/facturier/facturier/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		if err := runJobs(ctx, cfg, os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		return
	}

	if err := serve(ctx, stop, cfg, logger); err != nil {
		logger.Error("serve", slog.Any("error", err))
		os.Exit(1)
	}
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) error {
	jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
	defer func() { _ = jobsCLI.Close() }()
	return cli.RunJobs(ctx, jobsCLI, args, cli.JobsOptions{Stdout: os.Stdout})
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()

	l, closeStore, err := app.OpenLedger(ctx, cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer closeStore()

	templates, err := view.NewEngine()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	renderer, err := report.NewRenderer()
	if err != nil {
		return fmt.Errorf("parse report templates: %w", err)
	}

	gotenberg := report.NewClient(cfg.GotenbergURL, nil)
	pingCtx, cancelPing := context.WithTimeout(ctx, 3*time.Second)
	if err := gotenberg.Ping(pingCtx); err != nil {
		logger.Warn("gotenberg unreachable, pdf export will fail until it is up", slog.Any("error", err))
	}
	cancelPing()
	pdfExporter := report.NewPDFExporter(renderer, gotenberg)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() { _ = inspector.Close() }()

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		LedgerHandler: ledgerhttp.NewHandler(logger, l, templates, renderer, pdfExporter, cfg.Seller()),
		JobHandler:    jobs.NewHandler(inspector, logger),
		Metrics:       metrics,
		AccessLog:     !cfg.IsProduction(),
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
