package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNew_Disabled(t *testing.T) {
	tel, err := New(Config{Enabled: false})
	require.NoError(t, err)
	assert.False(t, tel.IsEnabled())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, tel.Shutdown(ctx))
}

func TestNew_EnabledWithoutExporters(t *testing.T) {
	tel, err := New(Config{Enabled: true, SampleRatio: 0.5})
	require.NoError(t, err)
	assert.True(t, tel.IsEnabled())
	assert.NotNil(t, tel.tracerProvider)
	assert.NotNil(t, tel.meterProvider)
	assert.Nil(t, tel.metricsServer)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, tel.Shutdown(ctx))
}

// freePort returns a TCP port that was free a moment ago
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestNew_PrometheusServesMetrics(t *testing.T) {
	port := freePort(t)
	tel, err := New(Config{Enabled: true, Prometheus: PrometheusConfig{Enabled: true, Port: port}})
	require.NoError(t, err)
	t.Cleanup(func() { tel.Shutdown(context.Background()) })
	require.NotEmpty(t, tel.MetricsAddr())

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", port))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNew_PrometheusPortTaken(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	tel, err := New(Config{Enabled: true, Prometheus: PrometheusConfig{Enabled: true, Port: port}})
	require.NoError(t, err)
	assert.Empty(t, tel.MetricsAddr())
	assert.Nil(t, tel.metricsServer)
	assert.NotNil(t, tel.meterProvider)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, tel.Shutdown(ctx))
}

func TestMetrics_NilSafe(t *testing.T) {
	ctx := context.Background()
	m := &Metrics{}

	m.RecordServiceRequest(ctx, "load", 200, 0.1)
	m.RecordStatusTransition(ctx, "Loaded", "Rendering")
	m.RecordSessionOpened(ctx)
	m.RecordSessionDisposed(ctx)
	m.RecordParameterErrors(ctx, "Integer", 2)
	m.RecordHTTPRequest(ctx, "GET", "/api/reports", 200, 0.01)
}

func TestGetMetrics_Singleton(t *testing.T) {
	m := GetMetrics()
	require.NotNil(t, m)
	assert.Same(t, m, GetMetrics())

	m.RecordServiceRequest(context.Background(), "render", 200, 0.2)
}

func TestEndSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	_, okSpan := tracer.Start(context.Background(), "ok", WithServiceCallAttributes("render", "abc"))
	EndSpan(okSpan, nil)
	_, failSpan := tracer.Start(context.Background(), "fail", WithServiceCallAttributes("load", ""))
	EndSpan(failSpan, errors.New("boom"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), AttrCacheID.String("abc"))
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, []attribute.KeyValue{AttrOperation.String("load")}, spans[1].Attributes())
}
