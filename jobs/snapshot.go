package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"

	"github.com/facturier/facturier/internal/ledger"
)

// SnapshotSource returns a fresh copy of the ledger collections.
type SnapshotSource func(ctx context.Context) (ledger.Snapshot, error)

// Recorder receives job outcomes. observability.Metrics implements it.
type Recorder interface {
	ObserveJob(task string, err error)
	SetLowStock(count int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveJob(string, error) {}
func (nopRecorder) SetLowStock(int)          {}

// SnapshotJob writes the ledger to Dir as ledger-<timestamp>.json.
type SnapshotJob struct {
	Source   SnapshotSource
	Dir      string
	Logger   *slog.Logger
	Recorder Recorder
	clock    func() time.Time
}

// NewSnapshotJob initialises the snapshot handler.
func NewSnapshotJob(source SnapshotSource, dir string, logger *slog.Logger, recorder Recorder) *SnapshotJob {
	return &SnapshotJob{
		Source:   source,
		Dir:      dir,
		Logger:   logger,
		Recorder: recorder,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one backup.
func (j *SnapshotJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Source == nil {
		return errors.New("snapshot: handler not configured")
	}
	var payload SnapshotPayload
	if err := decodePayload(t, &payload); err != nil {
		return err
	}
	defer func() { recorderOrNop(j.Recorder).ObserveJob(TaskLedgerSnapshot, err) }()

	logger := jobLogger(j.Logger, TaskLedgerSnapshot)
	path, err := j.Write(ctx)
	if err != nil {
		logger.Error("snapshot failed", slog.Any("error", err))
		return err
	}
	logger.Info("snapshot written", slog.String("path", path))
	return nil
}

// Write stores one snapshot and returns its path.
func (j *SnapshotJob) Write(ctx context.Context) (string, error) {
	snap, err := j.Source(ctx)
	if err != nil {
		return "", fmt.Errorf("snapshot: load ledger: %w", err)
	}
	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("snapshot: encode: %w", err)
	}
	dir := j.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("snapshot: create dir: %w", err)
	}

	name := fmt.Sprintf("ledger-%s.json", j.now().Format("20060102T150405Z"))
	path := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("snapshot: create temp: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("snapshot: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("snapshot: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("snapshot: rename: %w", err)
	}
	return path, nil
}

func (j *SnapshotJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func jobLogger(logger *slog.Logger, task string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("job", task))
}

func recorderOrNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}
