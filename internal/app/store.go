package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/facturier/facturier/internal/ledger"
	"github.com/facturier/facturier/internal/observability"
	"github.com/facturier/facturier/internal/platform/cache"
	"github.com/facturier/facturier/internal/platform/db"
	"github.com/facturier/facturier/internal/seed"
	"github.com/facturier/facturier/internal/storage"
)

// OpenStore connects the storage backend selected by STORE_DRIVER. The
// returned close function releases the underlying connection.
func OpenStore(ctx context.Context, cfg *Config) (storage.Store, func(), error) {
	switch cfg.StoreDriver {
	case DriverMemory:
		return storage.NewMemoryStore(), func() {}, nil
	case DriverSQLite:
		store, err := storage.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case DriverPostgres:
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, err
		}
		store, err := storage.NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	case DriverRedis:
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewRedisStore(client), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// OpenLedger loads the seed, opens the store and builds the ledger on top of
// it. Callers must invoke the returned close function on shutdown.
func OpenLedger(ctx context.Context, cfg *Config, logger *slog.Logger, metrics *observability.Metrics) (*ledger.Ledger, func(), error) {
	data, err := seed.Load(cfg.SeedFile)
	if err != nil {
		return nil, nil, err
	}
	store, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	opts := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithKeys(storage.NewKeys(cfg.StoreKeyPrefix)),
	}
	if metrics != nil {
		opts = append(opts, ledger.WithRecorder(metrics))
	}
	l, err := ledger.Open(ctx, store, data, opts...)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	logger.Info("ledger opened", slog.String("driver", cfg.StoreDriver))
	return l, closeStore, nil
}
