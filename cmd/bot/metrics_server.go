package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"blog-tweeter/internal/observability/tracing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthResponse represents a simple health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// newMetricsServer builds the Prometheus metrics server.
//
// Endpoints:
//   - GET /metrics - Prometheus metrics from gatherer
//   - GET /health - Simple liveness probe (always returns 200 OK)
func newMetricsServer(addr string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /health", healthHandler)

	return &http.Server{
		Addr:         addr,
		Handler:      tracing.Middleware("metrics", mux),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// serveHTTP serves until ctx is cancelled, then shuts the server down within
// 5 seconds. It returns http.ErrServerClosed after a graceful shutdown.
func serveHTTP(ctx context.Context, server *http.Server, name string, logger *slog.Logger) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info(name+" server starting", slog.String("addr", server.Addr))
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info(name + " server shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error(name+" server shutdown error", slog.Any("error", err))
			return err
		}
		logger.Info(name + " server stopped")
		return http.ErrServerClosed

	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error(name+" server error", slog.Any("error", err))
		}
		return err
	}
}

// healthHandler handles GET /health requests (liveness probe).
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(HealthResponse{Status: "healthy"})
}
