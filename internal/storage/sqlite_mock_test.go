package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreRollsBackOnFailedWrite(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS documents").WillReturnResult(sqlmock.NewResult(0, 0))
	store, err := NewSQLiteStore(context.Background(), db)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO documents").
		WithArgs("inv_invoices", `[]`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO documents").
		WithArgs("inv_products", `[]`, sqlmock.AnyArg()).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err = store.Save(context.Background(),
		Document{Key: "inv_invoices", Body: []byte(`[]`)},
		Document{Key: "inv_products", Body: []byte(`[]`)},
	)
	require.Error(t, err)
	require.Contains(t, err.Error(), "storage/sqlite: save inv_products")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStoreMigrationFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("readonly database"))
	_, err = NewSQLiteStore(context.Background(), db)
	require.Error(t, err)
	require.Contains(t, err.Error(), "migrate")
}

func TestSQLiteStoreLoadError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	store, err := NewSQLiteStore(context.Background(), db)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT body FROM documents").WithArgs("inv_clients").WillReturnError(errors.New("locked"))
	_, err = store.Load(context.Background(), "inv_clients")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}
