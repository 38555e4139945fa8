package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"blog-tweeter/internal/observability/tracing"
)

// StatusReporter exposes the scheduler status shown by /health/ready.
// *Scheduler implements it.
type StatusReporter interface {
	State() State
	LastCycle() (time.Time, error)
}

// HealthServer provides HTTP endpoints for health checks:
//   - /health: Liveness probe (always 200 OK)
//   - /health/ready: Readiness probe (200 once the session is verified and the loop started, 503 before)
//
// The server shuts down gracefully when the context passed to Start is cancelled.
type HealthServer struct {
	addr     string
	logger   *slog.Logger
	isReady  *atomic.Bool
	reporter StatusReporter
	server   *http.Server
}

type healthResponse struct {
	Status    string     `json:"status"`
	State     string     `json:"state,omitempty"`
	LastCycle *time.Time `json:"last_cycle,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// NewHealthServer creates a health server listening on addr. reporter may be nil.
func NewHealthServer(addr string, logger *slog.Logger, reporter StatusReporter) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthServer{
		addr:     addr,
		logger:   logger,
		isReady:  &atomic.Bool{},
		reporter: reporter,
	}
}

// Handler returns the traced HTTP handler serving both endpoints.
func (h *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleLiveness)
	mux.HandleFunc("GET /health/ready", h.handleReadiness)
	return tracing.Middleware("health", mux)
}

// Start serves until ctx is cancelled, then shuts down with a 5 second grace
// period. It returns http.ErrServerClosed after a graceful shutdown.
func (h *HealthServer) Start(ctx context.Context) error {
	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      h.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		h.logger.Info("health server starting", slog.String("addr", h.addr))
		if err := h.server.ListenAndServe(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		h.logger.Info("health server shutting down")
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			h.logger.Error("health server shutdown failed", slog.Any("error", err))
			return err
		}
		h.logger.Info("health server stopped")
		return http.ErrServerClosed

	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("health server failed", slog.Any("error", err))
		}
		return err
	}
}

// SetReady sets the readiness reported by /health/ready.
func (h *HealthServer) SetReady(ready bool) {
	h.isReady.Store(ready)
	h.logger.Info("health server readiness changed", slog.Bool("ready", ready))
}

func (h *HealthServer) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *HealthServer) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	if !h.isReady.Load() {
		h.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "not ready"})
		return
	}

	resp := healthResponse{Status: "ok"}
	if h.reporter != nil {
		resp.State = string(h.reporter.State())
		if at, err := h.reporter.LastCycle(); !at.IsZero() {
			resp.LastCycle = &at
			if err != nil {
				resp.LastError = err.Error()
			}
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *HealthServer) writeJSON(w http.ResponseWriter, status int, body healthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode health response", slog.Any("error", err))
	}
}
