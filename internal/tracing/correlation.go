package tracing

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// TraceFields extracts the active span's trace and span IDs for inclusion
// in structured log records, so a log line and an exported span can be
// joined by an operator. Returns empty strings when ctx carries no
// recording span.
func TraceFields(ctx context.Context) (traceID, spanID string) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", ""
	}
	return sc.TraceID().String(), sc.SpanID().String()
}
