package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/programme-lv/judge/internal/health"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(context.Context) error { return f.err }

func probe(t *testing.T, store, queue health.Pinger, inFlight int) *httptest.ResponseRecorder {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := health.NewServer(":0", store, queue, func() int { return inFlight }, log)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthyReport(t *testing.T) {
	rec := probe(t, fakePinger{}, fakePinger{}, 3)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "ok", body["store"])
	require.Equal(t, "ok", body["queue"])
	require.Equal(t, float64(3), body["in_flight"])
}

func TestDegradedWhenStoreDown(t *testing.T) {
	rec := probe(t, fakePinger{err: errors.New("connection refused")}, fakePinger{}, 0)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "degraded", body["status"])
	require.Contains(t, body["store"], "connection refused")
	require.Equal(t, "ok", body["queue"])
}

func TestDegradedWhenQueueDown(t *testing.T) {
	rec := probe(t, fakePinger{}, fakePinger{err: errors.New("timeout")}, 0)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWrongMethodRejected(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := health.NewServer(":0", fakePinger{}, fakePinger{}, func() int { return 0 }, log)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
