// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with helper functions
// for common logging patterns used throughout the bot.
//
// Key features:
//   - JSON and text output formats
//   - Cycle ID propagation
//   - Context-aware logging
//   - Configurable log levels
//   - Redaction of credential values from messages and attributes
//
// Example usage:
//
//	import "blog-tweeter/internal/observability/logging"
//
//	func main() {
//	    logger := logging.New(logging.Options{Level: "debug", Format: "text"}, os.Stdout)
//	    logger = logging.Redacting(logger, creds.Secrets())
//	    slog.SetDefault(logger)
//	}
//
//	func runCycle(ctx context.Context) {
//	    logger := logging.WithCycleID(ctx, slog.Default())
//	    logger.Info("cycle started")
//	}
package logging
