package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/verustcode/reportviewer/pkg/logger"
)

// MeterName is the default meter name for the application
const MeterName = "github.com/verustcode/reportviewer"

// Metrics holds all application metrics.
// A nil instrument is skipped, so a zero Metrics value is safe to use.
type Metrics struct {
	// Reporting service client
	ServiceRequestsTotal   metric.Int64Counter
	ServiceRequestDuration metric.Float64Histogram

	// Document sessions
	StatusTransitions metric.Int64Counter
	ActiveSessions    metric.Int64UpDownCounter

	// Parameter editor
	ParameterErrors metric.Int64Counter

	// Mock service
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// GetMetrics returns the global metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		var err error
		globalMetrics, err = initMetrics()
		if err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			globalMetrics = &Metrics{}
		}
	})
	return globalMetrics
}

func initMetrics() (*Metrics, error) {
	meter := otel.Meter(MeterName)
	m := &Metrics{}
	var err error

	if m.ServiceRequestsTotal, err = meter.Int64Counter(
		"reportviewer_service_requests_total",
		metric.WithDescription("Total number of reporting service requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}

	if m.ServiceRequestDuration, err = meter.Float64Histogram(
		"reportviewer_service_request_duration_seconds",
		metric.WithDescription("Duration of reporting service requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	); err != nil {
		return nil, err
	}

	if m.StatusTransitions, err = meter.Int64Counter(
		"reportviewer_status_transitions_total",
		metric.WithDescription("Document execution status transitions"),
		metric.WithUnit("{transition}"),
	); err != nil {
		return nil, err
	}

	if m.ActiveSessions, err = meter.Int64UpDownCounter(
		"reportviewer_active_sessions",
		metric.WithDescription("Document sessions holding a server cache"),
		metric.WithUnit("{session}"),
	); err != nil {
		return nil, err
	}

	if m.ParameterErrors, err = meter.Int64Counter(
		"reportviewer_parameter_errors_total",
		metric.WithDescription("Parameter validation errors reported to the user"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"reportviewer_mock_http_requests_total",
		metric.WithDescription("Total number of HTTP requests served by the mock service"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}

	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"reportviewer_mock_http_request_duration_seconds",
		metric.WithDescription("Duration of mock service HTTP requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1),
	); err != nil {
		return nil, err
	}

	logger.Debug("Metrics initialized")
	return m, nil
}

// RecordServiceRequest records one call to the reporting service
func (m *Metrics) RecordServiceRequest(ctx context.Context, operation string, statusCode int, durationSeconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Int("status_code", statusCode),
	)
	if m.ServiceRequestsTotal != nil {
		m.ServiceRequestsTotal.Add(ctx, 1, attrs)
	}
	if m.ServiceRequestDuration != nil {
		m.ServiceRequestDuration.Record(ctx, durationSeconds,
			metric.WithAttributes(attribute.String("operation", operation)),
		)
	}
}

// RecordStatusTransition records a document status change
func (m *Metrics) RecordStatusTransition(ctx context.Context, from, to string) {
	if m.StatusTransitions == nil {
		return
	}
	m.StatusTransitions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("from", from),
			attribute.String("to", to),
		),
	)
}

// RecordSessionOpened increments the active session gauge
func (m *Metrics) RecordSessionOpened(ctx context.Context) {
	if m.ActiveSessions != nil {
		m.ActiveSessions.Add(ctx, 1)
	}
}

// RecordSessionDisposed decrements the active session gauge
func (m *Metrics) RecordSessionDisposed(ctx context.Context) {
	if m.ActiveSessions != nil {
		m.ActiveSessions.Add(ctx, -1)
	}
}

// RecordParameterErrors records validation errors for a parameter data type
func (m *Metrics) RecordParameterErrors(ctx context.Context, dataType string, count int64) {
	if m.ParameterErrors == nil || count == 0 {
		return
	}
	m.ParameterErrors.Add(ctx, count,
		metric.WithAttributes(attribute.String("data_type", dataType)),
	)
}

// RecordHTTPRequest records a request served by the mock service
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, durationSeconds float64) {
	if m.HTTPRequestsTotal != nil {
		m.HTTPRequestsTotal.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("method", method),
				attribute.String("path", path),
				attribute.Int("status_code", statusCode),
			),
		)
	}
	if m.HTTPRequestDuration != nil {
		m.HTTPRequestDuration.Record(ctx, durationSeconds,
			metric.WithAttributes(
				attribute.String("method", method),
				attribute.String("path", path),
			),
		)
	}
}
