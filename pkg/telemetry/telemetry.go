// Package telemetry provides OpenTelemetry integration for the application.
// Traces go to an OTLP collector; metrics are exposed for Prometheus scraping.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"

	"github.com/verustcode/reportviewer/consts"
	"github.com/verustcode/reportviewer/pkg/logger"
)

// Default configuration values
const (
	defaultContextTimeout = 10 * time.Second
	defaultHTTPTimeout    = 10 * time.Second
	defaultPrometheusPort = 9464
)

// Config holds the telemetry configuration
type Config struct {
	// Enabled enables/disables telemetry
	Enabled bool `yaml:"enabled"`
	// ServiceName is reported as the OpenTelemetry service.name
	ServiceName string `yaml:"service_name"`
	// SampleRatio is the fraction of traces to keep (0 or unset keeps all)
	SampleRatio float64 `yaml:"sample_ratio"`
	// OTLP configuration for trace export
	OTLP OTLPConfig `yaml:"otlp"`
	// Prometheus configuration for metrics export
	Prometheus PrometheusConfig `yaml:"prometheus"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	// Enabled turns on trace export
	Enabled bool `yaml:"enabled"`
	// Endpoint is the collector gRPC address, e.g. localhost:4317
	Endpoint string `yaml:"endpoint"`
	// Insecure disables TLS towards the collector
	Insecure bool `yaml:"insecure"`
}

// PrometheusConfig holds Prometheus metrics configuration
type PrometheusConfig struct {
	// Enabled serves /metrics for scraping
	Enabled bool `yaml:"enabled"`
	// Port is the metrics listen port. Only the first reportviewer process
	// on a host gets it; later ones run without a scrape endpoint.
	Port int `yaml:"port"`
}

// Telemetry manages OpenTelemetry providers and exporters
type Telemetry struct {
	config         Config
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metricsServer  *http.Server
	metricsAddr    string
}

// New creates a new Telemetry instance. A disabled config yields a no-op
// instance whose Shutdown does nothing.
func New(cfg Config) (*Telemetry, error) {
	if !cfg.Enabled {
		logger.Debug("Telemetry is disabled")
		return &Telemetry{config: cfg}, nil
	}

	// Fill in defaults
	if cfg.ServiceName == "" {
		cfg.ServiceName = consts.ServiceName
	}
	if cfg.Prometheus.Port == 0 {
		cfg.Prometheus.Port = defaultPrometheusPort
	}

	t := &Telemetry{config: cfg}

	// resource.New instead of resource.Merge with the default resource:
	// the SDK default carries its own semconv schema URL
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(consts.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if err := t.initTracerProvider(res); err != nil {
		return nil, fmt.Errorf("failed to initialize tracer provider: %w", err)
	}
	if err := t.initMeterProvider(res); err != nil {
		return nil, fmt.Errorf("failed to initialize meter provider: %w", err)
	}

	// W3C trace context lets the reporting service join client traces
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("Telemetry initialized",
		zap.String("service_name", cfg.ServiceName),
		zap.Bool("otlp_enabled", cfg.OTLP.Enabled),
		zap.Bool("prometheus_enabled", cfg.Prometheus.Enabled),
	)

	return t, nil
}

// initTracerProvider installs the global tracer provider, exporting over
// OTLP when a collector is configured
func (t *Telemetry) initTracerProvider(res *resource.Resource) error {
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	if ratio := t.config.SampleRatio; ratio > 0 && ratio < 1 {
		opts = append(opts, sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))))
	}

	// Without an exporter spans are still created, so trace ids reach the
	// service in request headers
	if t.config.OTLP.Enabled && t.config.OTLP.Endpoint != "" {
		ctx, cancel := context.WithTimeout(context.Background(), defaultContextTimeout)
		defer cancel()

		exporterOpts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(t.config.OTLP.Endpoint),
		}
		if t.config.OTLP.Insecure {
			exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
		}

		exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
		if err != nil {
			return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
		logger.Info("OTLP trace exporter initialized", zap.String("endpoint", t.config.OTLP.Endpoint))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	t.tracerProvider = tp
	return nil
}

// initMeterProvider installs the global meter provider. With Prometheus
// enabled it also serves /metrics.
func (t *Telemetry) initMeterProvider(res *resource.Resource) error {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if t.config.Prometheus.Enabled {
		// A registry per instance keeps repeated New calls from registering
		// collectors twice on the default registry
		reg := promclient.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
		if err != nil {
			return fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(exporter))
		t.startMetricsServer(reg)
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	t.meterProvider = mp
	return nil
}

// startMetricsServer binds the metrics port before returning. A port held
// by another process is logged and metrics are still recorded in memory.
func (t *Telemetry) startMetricsServer(reg *promclient.Registry) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", t.config.Prometheus.Port))
	if err != nil {
		logger.Warn("Metrics port unavailable, continuing without scrape endpoint",
			zap.Int("port", t.config.Prometheus.Port),
			zap.Error(err),
		)
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	t.metricsServer = &http.Server{
		Handler:      mux,
		ReadTimeout:  defaultHTTPTimeout,
		WriteTimeout: defaultHTTPTimeout,
	}
	t.metricsAddr = ln.Addr().String()

	logger.Info("Starting Prometheus metrics server", zap.String("addr", t.metricsAddr))
	go func() {
		if err := t.metricsServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error("Prometheus metrics server error", zap.Error(err))
		}
	}()
}

// MetricsAddr is the address /metrics is served on, empty when not serving
func (t *Telemetry) MetricsAddr() string {
	return t.metricsAddr
}

// Shutdown flushes spans and stops the providers and the metrics server.
// Every step runs even when an earlier one fails; the failures are joined.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if !t.config.Enabled {
		return nil
	}

	logger.Debug("Shutting down telemetry")

	var errs []error
	if t.tracerProvider != nil {
		// Flushes batched spans to the collector
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	if t.metricsServer != nil {
		if err := t.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server: %w", err))
		}
	}
	return errors.Join(errs...)
}

// IsEnabled returns whether telemetry is enabled
func (t *Telemetry) IsEnabled() bool {
	return t.config.Enabled
}
