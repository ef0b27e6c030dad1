package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"employcli/internal/config"
)

func testTelemetryConfig() config.TelemetryConfig {
	cfg := config.Default().Telemetry
	cfg.ServiceName = "employment-analysis-test"
	return cfg
}

func TestInitializeOTel_PrometheusMetrics(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tel, err := InitializeOTel(testTelemetryConfig(), logger)
	require.NoError(t, err)
	defer tel.Shutdown(context.Background())

	require.NotNil(t, tel.MetricsHandler)
	require.NotNil(t, tel.Metrics)
	assert.NotNil(t, tel.Tracer)

	ctx := context.Background()
	tel.Metrics.RecordRun(ctx, 250*time.Millisecond, nil)
	tel.Metrics.RecordRun(ctx, time.Second, errors.New("boom"))
	tel.Metrics.RecordClean(ctx, 10, map[string]int{"excluded_sector": 4})
	tel.Metrics.RecordRequest(ctx, http.MethodGet, "/api/v1/growth", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	tel.MetricsHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "pipeline_runs_total")
	assert.Contains(t, body, `status="failure"`)
	assert.Contains(t, body, "pipeline_rows_cleaned_total")
	assert.Contains(t, body, `reason="excluded_sector"`)
	assert.Contains(t, body, "pipeline_run_duration_seconds")
	assert.Contains(t, body, "http_requests_total")
}

func TestInitializeOTel_RepeatedInitialization(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	for i := 0; i < 2; i++ {
		tel, err := InitializeOTel(testTelemetryConfig(), logger)
		require.NoError(t, err)
		require.NoError(t, tel.Shutdown(context.Background()))
	}
}

func TestInitializeOTel_Disabled(t *testing.T) {
	cfg := testTelemetryConfig()
	cfg.EnableMetrics = false
	cfg.EnableTracing = false

	tel, err := InitializeOTel(cfg, nil)
	require.NoError(t, err)

	assert.Nil(t, tel.MetricsHandler)
	assert.Nil(t, tel.TracerProvider)
	require.NotNil(t, tel.Metrics)

	// no-op instruments accept recordings
	tel.Metrics.RecordRun(context.Background(), time.Second, nil)
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestInitializeOTel_UnsupportedExporter(t *testing.T) {
	cfg := testTelemetryConfig()
	cfg.EnableTracing = true
	cfg.TraceExporter = "jaeger"

	_, err := InitializeOTel(cfg, nil)
	assert.ErrorContains(t, err, "unsupported trace exporter")
}

func TestTracing_RecordsSpans(t *testing.T) {
	cfg := testTelemetryConfig()
	cfg.EnableTracing = true
	cfg.EnableMetrics = false
	cfg.TraceExporter = "stdout"

	tel, err := InitializeOTel(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer tel.Shutdown(context.Background())

	ctx, span := tel.Tracer.Start(context.Background(), "pipeline.clean")
	defer span.End()

	assert.True(t, span.IsRecording())
	assert.Equal(t, span.SpanContext().TraceID().String(), TraceIDFromContext(ctx))
	RecordError(ctx, errors.New("bad row"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *PipelineMetrics
	assert.NotPanics(t, func() {
		m.RecordRun(context.Background(), time.Second, nil)
		m.RecordClean(context.Background(), 1, nil)
		m.RecordRequest(context.Background(), "GET", "/", 200, time.Second)
	})
	assert.Empty(t, TraceIDFromContext(context.Background()))
}
