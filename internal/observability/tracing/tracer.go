package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every span the bot creates.
const TracerName = "blog-tweeter"

// Tracer returns the bot's tracer from the global provider.
// It is looked up on every call so tests can swap the provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// RecordError marks the span as failed.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
