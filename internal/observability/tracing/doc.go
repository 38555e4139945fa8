// Package tracing provides OpenTelemetry tracing integration.
//
// Every announce cycle opens a root span with child spans for the feed poll,
// the timeline read and the publish call. The ops HTTP server wraps its
// handlers with Middleware so scrapes and probes show up as server spans.
//
// No exporter is configured here: the process uses whichever TracerProvider
// is installed with otel.SetTracerProvider, which is a no-op by default.
//
// Example usage:
//
//	ctx, span := tracing.Tracer().Start(ctx, "announce.cycle")
//	defer span.End()
//	if err != nil {
//	    tracing.RecordError(span, err)
//	}
package tracing
