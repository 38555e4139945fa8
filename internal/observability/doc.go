// Package observability groups the bot's logging, metrics and tracing.
//
// Subpackages:
//   - logging: slog construction, context propagation and secret redaction
//   - metrics: Prometheus collectors for announce cycles and remote calls
//   - tracing: OpenTelemetry spans for cycles and ops HTTP handlers
//
// Example usage:
//
//	import (
//	    "blog-tweeter/internal/observability/logging"
//	    "blog-tweeter/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.New(logging.Options{Level: "info", Format: "json"}, os.Stdout)
//	    logger.Info("bot started")
//
//	    metrics.RecordFeedPoll("success", 120*time.Millisecond)
//	}
package observability
