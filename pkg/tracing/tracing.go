// Package tracing is a thin wrapper around the OpenTelemetry tracer so
// callers can start spans without caring whether tracing is configured.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

var tracer trace.Tracer

// SetTracer installs the tracer used by StartSpan. When no tracer is set,
// StartSpan returns the context untouched with a no-op span.
func SetTracer(t trace.Tracer) {
	tracer = t
}

// StartSpan starts a new span with the given name.
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, spanName)
}

// GetTraceID returns the active trace id, or "" when there is no valid span.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return ""
	}
	return span.SpanContext().TraceID().String()
}
