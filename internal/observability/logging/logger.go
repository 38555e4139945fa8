package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Options selects the handler and level of a logger.
type Options struct {
	// Level is one of debug, info, warn, error. Anything else means info.
	Level string
	// Format is json (default) or text.
	Format string
}

// ParseLevel maps a LOG_LEVEL value to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a structured logger writing to w.
// Source locations are attached when running at debug level.
func New(opts Options, w io.Writer) *slog.Logger {
	level := ParseLevel(opts.Level)
	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(opts.Format, "text") {
		handler = slog.NewTextHandler(w, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(w, handlerOpts)
	}

	return slog.New(handler)
}

// WithCycleID returns a new logger that includes the cycle ID from the context.
func WithCycleID(ctx context.Context, logger *slog.Logger) *slog.Logger {
	id := CycleIDFromContext(ctx)
	if id == "" {
		return logger
	}
	return logger.With(slog.String("cycle_id", id))
}

// ContextWithCycleID stores the cycle ID used to correlate log records.
func ContextWithCycleID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, cycleIDContextKey, id)
}

// CycleIDFromContext returns the cycle ID, or "" when none is set.
func CycleIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(cycleIDContextKey).(string)
	return id
}

// FromContext retrieves the logger from the context, or returns the default logger if not found.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

type contextKey string

const (
	loggerContextKey  contextKey = "logger"
	cycleIDContextKey contextKey = "cycle_id"
)
