package db

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockExecutor(t *testing.T) (*Executor, sqlmock.Sqlmock, func()) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	exec := NewExecutor(mockDB, zap.NewNop().Sugar())
	return exec, mock, func() { mockDB.Close() }
}

func TestQueryReturnsRows(t *testing.T) {
	exec, mock, done := newMockExecutor(t)
	defer done()

	mock.ExpectQuery("SELECT triggered_at FROM conveyor_triggers").
		WillReturnRows(sqlmock.NewRows([]string{"triggered_at"}).
			AddRow("2025-03-01 09:00:00"))

	rows, err := exec.Query(context.Background(), "SELECT triggered_at FROM conveyor_triggers")
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var ts string
	require.NoError(t, rows.Scan(&ts))
	assert.Equal(t, "2025-03-01 09:00:00", ts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryWrapsError(t *testing.T) {
	exec, mock, done := newMockExecutor(t)
	defer done()

	mock.ExpectQuery("SELECT").WillReturnError(sql.ErrConnDone)

	_, err := exec.Query(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestUpdateFailureIsReportedNotPanicked(t *testing.T) {
	exec, mock, done := newMockExecutor(t)
	defer done()

	mock.ExpectExec("UPDATE reconcile_state").WillReturnError(sql.ErrConnDone)

	err := exec.Update(context.Background(), "UPDATE reconcile_state SET last_processed_time = ?", "x")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchEmptyIsNoop(t *testing.T) {
	exec, _, done := newMockExecutor(t)
	defer done()

	require.NoError(t, exec.Batch(context.Background(), "INSERT INTO t VALUES (?)", nil))
}

func TestBatchCommitsAllRows(t *testing.T) {
	exec, mock, done := newMockExecutor(t)
	defer done()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO combined_records")
	prep.ExpectExec().WithArgs("a").WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("b").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := exec.Batch(context.Background(), "INSERT INTO combined_records (scan_ts) VALUES (?)",
		[][]interface{}{{"a"}, {"b"}})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRollsBackOnRowError(t *testing.T) {
	exec, mock, done := newMockExecutor(t)
	defer done()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO combined_records")
	prep.ExpectExec().WithArgs("a").WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("b").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := exec.Batch(context.Background(), "INSERT INTO combined_records (scan_ts) VALUES (?)",
		[][]interface{}{{"a"}, {"b"}})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackOnError(t *testing.T) {
	exec, mock, done := newMockExecutor(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := exec.WithTx(context.Background(), func(tx *sql.Tx) error {
		return sql.ErrTxDone
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
