package scheduler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ferreiragah-dev/gentrack/pkg/clock"
	"github.com/ferreiragah-dev/gentrack/pkg/incident"
	"github.com/ferreiragah-dev/gentrack/pkg/prober"
	"github.com/ferreiragah-dev/gentrack/pkg/store"
)

func newTestScheduler(t *testing.T) (*Scheduler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := &store.Store{DB: sqlx.NewDb(db, "postgres")}
	p := prober.New(clock.Real{})
	eng := incident.New()

	sch := New(s, p, eng, clock.Real{}, nil, zerolog.Nop(), time.Second)
	return sch, mock
}

func incidentColumns() []string {
	return []string{
		"id", "target_id", "started_at", "ended_at", "duration_seconds",
		"is_resolved", "reason_code", "reason_message", "start_check_id", "recovery_check_id",
	}
}

func checkColumns() []string {
	return []string{
		"id", "target_id", "checked_at", "status_code", "latency_ms",
		"is_up", "reason_code", "error_message",
	}
}

func TestCheckTargetRecordsUpCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	sch, mock := newTestScheduler(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM checks WHERE target_id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(checkColumns()))
	mock.ExpectQuery(`INSERT INTO checks`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(`SELECT \* FROM incidents WHERE target_id = \$1 AND is_resolved = false`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(incidentColumns()))
	mock.ExpectCommit()

	target := &store.Target{ID: 1, URL: srv.URL, TimeoutSeconds: 5}
	check, err := sch.CheckTarget(context.Background(), target)
	require.NoError(t, err)
	require.NotNil(t, check)
	require.True(t, check.IsUp)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStartIsIdempotent(t *testing.T) {
	sch, _ := newTestScheduler(t)
	sch.pollInterval = time.Hour

	sch.started.Store(true)
	sch.Start()
	require.True(t, sch.started.Load())
}
