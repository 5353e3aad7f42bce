package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/facturier/facturier/internal/billing"
)

// LowStockScanJob logs products whose stock is below Threshold and publishes
// their count.
type LowStockScanJob struct {
	Source    SnapshotSource
	Threshold int
	Logger    *slog.Logger
	Recorder  Recorder
}

// NewLowStockScanJob initialises the scan handler. A non-positive threshold
// falls back to billing.LowStockThreshold.
func NewLowStockScanJob(source SnapshotSource, threshold int, logger *slog.Logger, recorder Recorder) *LowStockScanJob {
	if threshold <= 0 {
		threshold = billing.LowStockThreshold
	}
	return &LowStockScanJob{Source: source, Threshold: threshold, Logger: logger, Recorder: recorder}
}

// Handle executes one scan.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Source == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := decodePayload(t, &payload); err != nil {
		return err
	}
	threshold := j.Threshold
	if payload.Threshold > 0 {
		threshold = payload.Threshold
	}
	rec := recorderOrNop(j.Recorder)
	defer func() { rec.ObserveJob(TaskLowStockScan, err) }()

	logger := jobLogger(j.Logger, TaskLowStockScan).With(slog.Int("threshold", threshold))
	low, err := j.Scan(ctx, threshold)
	if err != nil {
		logger.Error("scan failed", slog.Any("error", err))
		return err
	}
	for _, p := range low {
		logger.Warn("product running low",
			slog.String("product_id", p.ID),
			slog.String("name", p.Name),
			slog.Int("stock", p.Stock),
		)
	}
	rec.SetLowStock(len(low))
	logger.Info("completed low stock scan", slog.Int("low", len(low)))
	return nil
}

// Scan returns the products whose stock is below threshold.
func (j *LowStockScanJob) Scan(ctx context.Context, threshold int) ([]billing.Product, error) {
	snap, err := j.Source(ctx)
	if err != nil {
		return nil, fmt.Errorf("low stock scan: load ledger: %w", err)
	}
	low := make([]billing.Product, 0)
	for _, p := range snap.Products {
		if p.Stock < threshold {
			low = append(low, p)
		}
	}
	return low, nil
}
