package infrastructure

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"leadpulse/internal/config"
)

func TestInitializeOTel_MetricsExposed(t *testing.T) {
	providers, err := InitializeOTel(config.TelemetryConfig{
		EnableMetrics: true,
		TraceExporter: "none",
		SampleRatio:   1,
		Environment:   "test",
	}, NewLogger(io.Discard, "error"))
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	require.NotNil(t, providers.PrometheusHTTP)
	require.NotNil(t, providers.MeterProvider)
	assert.Nil(t, providers.TracerProvider)

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.LeadsIngested.Add(ctx, 3)
	metrics.ExportsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("format", "csv")))

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "leadpulse_leads_ingested_total")
	assert.Contains(t, body, `format="csv"`)
}

func TestInitializeOTel_SecondInstanceDoesNotCollide(t *testing.T) {
	cfg := config.TelemetryConfig{EnableMetrics: true, Environment: "test"}

	first, err := InitializeOTel(cfg, NewLogger(io.Discard, "error"))
	require.NoError(t, err)
	defer first.Shutdown(context.Background())

	second, err := InitializeOTel(cfg, NewLogger(io.Discard, "error"))
	require.NoError(t, err)
	defer second.Shutdown(context.Background())
}

func TestInitializeOTel_UnsupportedExporter(t *testing.T) {
	_, err := InitializeOTel(config.TelemetryConfig{
		EnableTracing: true,
		TraceExporter: "jaeger",
	}, NewLogger(io.Discard, "error"))
	assert.Error(t, err)
}

func TestNoopProviders(t *testing.T) {
	providers := NoopProviders(nil)
	require.NotNil(t, providers.Tracer)
	require.NotNil(t, providers.Meter)
	assert.Nil(t, providers.PrometheusHTTP)

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.ReportsTotal.Add(context.Background(), 1)

	ctx, span := providers.Tracer.Start(context.Background(), "op")
	RecordError(ctx, assert.AnError)
	RecordError(ctx, nil)
	span.End()

	assert.NoError(t, providers.Shutdown(context.Background()))
}
