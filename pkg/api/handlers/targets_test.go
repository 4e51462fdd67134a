package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferreiragah-dev/gentrack/pkg/clock"
	"github.com/ferreiragah-dev/gentrack/pkg/incident"
	"github.com/ferreiragah-dev/gentrack/pkg/prober"
	"github.com/ferreiragah-dev/gentrack/pkg/scheduler"
	"github.com/ferreiragah-dev/gentrack/pkg/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestHandler(t *testing.T) (*TargetHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := &store.Store{DB: sqlx.NewDb(db, "postgres")}
	sch := scheduler.New(s, prober.New(clock.Real{}), incident.New(), clock.Real{}, nil, zerolog.Nop(), time.Second)
	return NewTargetHandler(s, sch), mock
}

func TestCreateTargetRejectsInvalidURL(t *testing.T) {
	h, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	body := bytes.NewBufferString(`{"name":"X","url":"not-a-url","interval_seconds":60,"timeout_seconds":8}`)
	ctx.Request = httptest.NewRequest(http.MethodPost, "/api/targets", body)
	ctx.Request.Header.Set("Content-Type", "application/json")

	h.Create(ctx)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteTargetNotFoundReturns404(t *testing.T) {
	h, mock := newTestHandler(t)
	mock.ExpectExec(`DELETE FROM targets`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Params = gin.Params{{Key: "id", Value: "5"}}

	h.Delete(ctx)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHistoryRejectsOutOfRangeLimit(t *testing.T) {
	h, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Params = gin.Params{{Key: "id", Value: "1"}}
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/targets/1/history?limit=9999", nil)

	h.History(ctx)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
