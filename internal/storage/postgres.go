package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/facturier/facturier/internal/platform/db"
)

// PgConn is the subset of *pgxpool.Pool used by PostgresStore.
type PgConn interface {
	db.TxStarter
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps documents as JSONB rows.
type PostgresStore struct {
	conn PgConn
}

// NewPostgresStore wraps conn and creates the schema.
func NewPostgresStore(ctx context.Context, conn PgConn) (*PostgresStore, error) {
	const ddl = `
	CREATE TABLE IF NOT EXISTS ledger_documents (
		key TEXT PRIMARY KEY,
		body JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	if _, err := conn.Exec(ctx, ddl); err != nil {
		return nil, fmt.Errorf("storage/postgres: migrate: %w", err)
	}
	return &PostgresStore{conn: conn}, nil
}

// Load implements Store.
func (s *PostgresStore) Load(ctx context.Context, key string) ([]byte, error) {
	var body []byte
	err := s.conn.QueryRow(ctx, `SELECT body FROM ledger_documents WHERE key = $1`, key).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage/postgres: load %s: %w", key, err)
	}
	return body, nil
}

// Save implements Store.
func (s *PostgresStore) Save(ctx context.Context, docs ...Document) error {
	const upsert = `
	INSERT INTO ledger_documents (key, body, updated_at) VALUES ($1, $2, now())
	ON CONFLICT (key) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`
	err := db.WithTx(ctx, s.conn, func(tx pgx.Tx) error {
		for _, doc := range docs {
			if _, err := tx.Exec(ctx, upsert, doc.Key, string(doc.Body)); err != nil {
				return fmt.Errorf("storage/postgres: save %s: %w", doc.Key, err)
			}
		}
		return nil
	})
	return err
}
