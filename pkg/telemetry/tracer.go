package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for the application
const TracerName = "github.com/verustcode/reportviewer"

// Tracer returns the global tracer for the application
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartSpan starts a new span. The caller must End it.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// SetSpanError records an error on the span and marks it failed
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanOK sets the span status to OK
func SetSpanOK(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// EndSpan finishes a span, recording err when non-nil
func EndSpan(span trace.Span, err error) {
	if err != nil {
		SetSpanError(span, err)
	} else {
		SetSpanOK(span)
	}
	span.End()
}

// Common attribute keys
var (
	AttrOperation  = attribute.Key("report.operation")
	AttrReportPath = attribute.Key("report.path")
	AttrReportName = attribute.Key("report.name")
	AttrCacheID    = attribute.Key("cache.id")
	AttrStatus     = attribute.Key("document.status")
	AttrRequestID  = attribute.Key("request.id")
)

// WithServiceCallAttributes returns span options describing a service call
func WithServiceCallAttributes(operation, cacheID string) trace.SpanStartOption {
	attrs := []attribute.KeyValue{AttrOperation.String(operation)}
	if cacheID != "" {
		attrs = append(attrs, AttrCacheID.String(cacheID))
	}
	return trace.WithAttributes(attrs...)
}
