package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	body []byte
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = append([]byte(nil), r.body...)
	return nil
}

type fakeTx struct {
	pgx.Tx
	conn       *fakePg
	staged     map[string][]byte
	committed  bool
	rolledBack bool
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	key := args[0].(string)
	if key == tx.conn.failKey {
		return pgconn.CommandTag{}, errors.New("deadlock detected")
	}
	tx.staged[key] = []byte(args[1].(string))
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	for k, v := range tx.staged {
		tx.conn.rows[k] = v
	}
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	if !tx.committed {
		tx.rolledBack = true
	}
	return nil
}

type fakePg struct {
	rows    map[string][]byte
	ddl     []string
	failKey string
	txs     []*fakeTx
}

func newFakePg() *fakePg {
	return &fakePg{rows: make(map[string][]byte)}
}

func (f *fakePg) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	tx := &fakeTx{conn: f, staged: make(map[string][]byte)}
	f.txs = append(f.txs, tx)
	return tx, nil
}

func (f *fakePg) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.ddl = append(f.ddl, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (f *fakePg) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	body, ok := f.rows[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{body: body}
}

func TestPostgresStore(t *testing.T) {
	conn := newFakePg()
	store, err := NewPostgresStore(context.Background(), conn)
	require.NoError(t, err)
	require.Len(t, conn.ddl, 1)
	assert.Contains(t, conn.ddl[0], "ledger_documents")

	exerciseStore(t, store)
}

func TestPostgresStoreSaveIsAtomic(t *testing.T) {
	conn := newFakePg()
	store, err := NewPostgresStore(context.Background(), conn)
	require.NoError(t, err)
	conn.failKey = "inv_products"

	err = store.Save(context.Background(),
		Document{Key: "inv_invoices", Body: []byte(`[{"id":"i1"}]`)},
		Document{Key: "inv_products", Body: []byte(`[]`)},
	)
	require.Error(t, err)
	require.Len(t, conn.txs, 1)
	assert.True(t, conn.txs[0].rolledBack)

	_, err = store.Load(context.Background(), "inv_invoices")
	require.ErrorIs(t, err, ErrNotFound)
}
