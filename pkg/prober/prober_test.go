package prober

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferreiragah-dev/gentrack/pkg/clock"
)

func TestProbeSuccessCapturesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GenTrack/1.0", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	p := New(clock.Real{})
	outcome := p.Probe(context.Background(), Target{URL: srv.URL, TimeoutSeconds: 5})

	assert.Equal(t, KindHTTPStatus, outcome.Kind)
	assert.Equal(t, http.StatusOK, outcome.StatusCode)
	assert.Equal(t, "hello", string(outcome.BodyBytes))
	assert.GreaterOrEqual(t, outcome.LatencyMs, int64(0))
}

func TestProbeTimeoutClassifiesAsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(1500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(clock.Real{})
	outcome := p.Probe(context.Background(), Target{URL: srv.URL, TimeoutSeconds: 1})

	assert.Equal(t, KindTimeout, outcome.Kind)
}

func TestProbeConnectionRefusedClassifiesAsConnection(t *testing.T) {
	p := New(clock.Real{})
	outcome := p.Probe(context.Background(), Target{URL: "http://127.0.0.1:1", TimeoutSeconds: 2})

	assert.Equal(t, KindConnection, outcome.Kind)
}

func TestProbeBodyCappedAtMaxBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chunk := make([]byte, 64*1024)
		for written := 0; written < MaxBodyBytes+64*1024; written += len(chunk) {
			_, _ = w.Write(chunk)
		}
	}))
	defer srv.Close()

	p := New(clock.Real{})
	outcome := p.Probe(context.Background(), Target{URL: srv.URL, TimeoutSeconds: 5})

	require.Equal(t, KindHTTPStatus, outcome.Kind)
	assert.LessOrEqual(t, len(outcome.BodyBytes), MaxBodyBytes)
}
