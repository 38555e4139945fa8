package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReporter struct {
	state State
	at    time.Time
	err   error
}

func (s stubReporter) State() State                  { return s.state }
func (s stubReporter) LastCycle() (time.Time, error) { return s.at, s.err }

func getHealth(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, healthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestHealthServer_Liveness(t *testing.T) {
	server := NewHealthServer(":0", slog.New(slog.DiscardHandler), nil)

	rec, resp := getHealth(t, server.Handler(), "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ok", resp.Status)
}

func TestHealthServer_Readiness_NotReady(t *testing.T) {
	server := NewHealthServer(":0", slog.New(slog.DiscardHandler), nil)

	rec, resp := getHealth(t, server.Handler(), "/health/ready")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not ready", resp.Status)
}

func TestHealthServer_Readiness_Ready(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	server := NewHealthServer(":0", slog.New(slog.DiscardHandler), stubReporter{
		state: StateIdle,
		at:    at,
		err:   errors.New("feed contains no items"),
	})
	server.SetReady(true)

	rec, resp := getHealth(t, server.Handler(), "/health/ready")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "idle", resp.State)
	require.NotNil(t, resp.LastCycle)
	assert.True(t, resp.LastCycle.Equal(at))
	assert.Equal(t, "feed contains no items", resp.LastError)
}

func TestHealthServer_Readiness_NoCycleYet(t *testing.T) {
	server := NewHealthServer(":0", slog.New(slog.DiscardHandler), stubReporter{state: StatePolling})
	server.SetReady(true)

	_, resp := getHealth(t, server.Handler(), "/health/ready")

	assert.Equal(t, "polling", resp.State)
	assert.Nil(t, resp.LastCycle)
	assert.Empty(t, resp.LastError)
}

func TestHealthServer_StartAndShutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	server := NewHealthServer(addr, slog.New(slog.DiscardHandler), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Start(ctx) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		r, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		resp = r
		return true
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(6 * time.Second):
		t.Fatal("health server did not shut down")
	}
}
