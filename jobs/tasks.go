package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerSnapshot writes a JSON backup of the whole ledger.
	TaskLedgerSnapshot = "ledger:snapshot"
	// TaskLowStockScan counts products running out of stock.
	TaskLowStockScan = "ledger:low_stock_scan"
)

// Cron schedules, evaluated in UTC.
const (
	SnapshotSchedule = "0 2 * * *"
	LowStockSchedule = "0 * * * *"
)

// SnapshotPayload carries scheduling metadata for a backup run.
type SnapshotPayload struct {
	RequestedAt time.Time `json:"requested_at"`
}

// LowStockScanPayload overrides the configured threshold when positive.
type LowStockScanPayload struct {
	Threshold int `json:"threshold,omitempty"`
}

// NewSnapshotTask constructs a ledger snapshot task.
func NewSnapshotTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(SnapshotPayload{RequestedAt: at.UTC()})
	if err != nil {
		return nil, fmt.Errorf("jobs: encode snapshot payload: %w", err)
	}
	return asynq.NewTask(TaskLedgerSnapshot, body, asynq.Queue(QueueDefault)), nil
}

// NewLowStockScanTask constructs a low-stock scan task. A zero threshold
// defers to the worker configuration.
func NewLowStockScanTask(threshold int) (*asynq.Task, error) {
	if threshold < 0 {
		return nil, fmt.Errorf("jobs: negative threshold %d", threshold)
	}
	body, err := json.Marshal(LowStockScanPayload{Threshold: threshold})
	if err != nil {
		return nil, fmt.Errorf("jobs: encode low stock payload: %w", err)
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault)), nil
}

func decodePayload[T any](t *asynq.Task, dest *T) error {
	if len(t.Payload()) == 0 {
		return nil
	}
	if err := json.Unmarshal(t.Payload(), dest); err != nil {
		return fmt.Errorf("%s: decode payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return nil
}
