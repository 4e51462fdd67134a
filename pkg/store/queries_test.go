package store

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "postgres")
	return &Store{DB: sqlxDB}, mock
}

func TestInsertTargetReturnsIDAndCreatedAt(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO targets`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), now))

	target := &Target{Name: "X", URL: "http://h/ok", IntervalSeconds: 60, TimeoutSeconds: 8}
	got, err := s.InsertTarget(target)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, now, got.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertTargetDuplicateURL(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO targets`).
		WillReturnError(&pq.Error{Code: "23505"})

	target := &Target{Name: "X", URL: "http://h/ok", IntervalSeconds: 60, TimeoutSeconds: 8}
	_, err := s.InsertTarget(target)
	assert.ErrorIs(t, err, ErrDuplicateURL)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTargetNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM targets`).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeleteTarget(42)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTargetSuccess(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM targets`).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.DeleteTarget(42)
	assert.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTargetByIDNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM targets WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(targetColumns()))

	_, err := s.GetTargetByID(99)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectHistoryOrdersNewestFirst(t *testing.T) {
	s, mock := newMockStore(t)
	t1 := time.Now().UTC()
	t2 := t1.Add(time.Minute)

	rows := sqlmock.NewRows(checkColumns()).
		AddRow(int64(2), int64(1), t2, int64(200), int64(40), true, nil, nil).
		AddRow(int64(1), int64(1), t1, int64(200), int64(41), true, nil, nil)

	mock.ExpectQuery(`SELECT \* FROM checks WHERE target_id = \$1 ORDER BY checked_at DESC`).
		WithArgs(int64(1), 100).
		WillReturnRows(rows)

	checks, err := s.SelectHistory(1, 100)
	require.NoError(t, err)
	require.Len(t, checks, 2)
	assert.Equal(t, int64(2), checks[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockTargetExecutesAdvisoryLock(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tx, err := s.BeginTx()
	require.NoError(t, err)
	require.NoError(t, LockTarget(tx, 5))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func targetColumns() []string {
	return []string{
		"id", "name", "url", "interval_seconds", "timeout_seconds",
		"expected_substring", "expected_json_keys", "max_latency_ms", "created_at",
	}
}

func checkColumns() []string {
	return []string{
		"id", "target_id", "checked_at", "status_code", "latency_ms",
		"is_up", "reason_code", "error_message",
	}
}
