package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ogulcanaydogan/bullfrog/pkg/storage"
)

func newMockStore(t *testing.T) (*storage.SQLite, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return storage.NewSQLiteFromDB(db), mock
}

func TestSQLite_ObserveAlert_StoreError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(1\) FROM alerts`).
		WithArgs("fp-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO alerts`).
		WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	_, _, err := store.ObserveAlert(context.Background(), observation("fp-1", time.Now()))
	require.Error(t, err)

	var storeErr *storage.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "observe alert", storeErr.Op)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLite_ObserveAlert_BeginError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	_, _, err := store.ObserveAlert(context.Background(), observation("fp-1", time.Now()))
	var storeErr *storage.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "begin observe", storeErr.Op)
}

func TestSQLite_MarkAlertSent_StoreError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE alerts SET last_sent_at`).
		WillReturnError(errors.New("disk I/O error"))

	err := store.MarkAlertSent(context.Background(), "fp-1", time.Now())
	var storeErr *storage.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLite_LatestSnapshots_StoreError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT batch_id FROM license_snapshots`).
		WillReturnError(errors.New("no such table: license_snapshots"))

	_, _, err := store.LatestSnapshots(context.Background())
	var storeErr *storage.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.NotErrorIs(t, err, storage.ErrNoSnapshots)
}
