package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/isastore/backend/internal/health"
)

func ok(context.Context) error { return nil }

func TestLive(t *testing.T) {
	rec := httptest.NewRecorder()
	health.Handler{}.Live(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadyReportsEachCheck(t *testing.T) {
	h := health.Handler{Checks: []health.Check{
		{Name: "postgres", Probe: ok},
		{Name: "redis", Probe: func(context.Context) error { return errors.New("connection refused") }},
		{Name: "slow", Timeout: 10 * time.Millisecond, Probe: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}},
	}}
	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "degraded", body.Status)
	require.Equal(t, "ok", body.Checks["postgres"])
	require.Equal(t, "connection refused", body.Checks["redis"])
	require.Contains(t, body.Checks["slow"], "deadline exceeded")
}

func TestReadinessAfterShutdown(t *testing.T) {
	h := health.Handler{Checks: []health.Check{{Name: "postgres", Probe: ok}}}
	t.Cleanup(func() { health.SetReady(true) })

	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	health.SetReady(false)
	rec = httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
