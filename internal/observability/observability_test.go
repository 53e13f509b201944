package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"ecommerce-dashboard/internal/config"
	"ecommerce-dashboard/internal/models"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]string{
		"debug":   "DEBUG",
		"WARN":    "WARN",
		"warning": "WARN",
		"error":   "ERROR",
		"info":    "INFO",
		"bogus":   "INFO",
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in).String(), in)
	}
}

func TestLoggerAddsCorrelationIDs(t *testing.T) {
	shutdown, err := InitTracing(config.ObservabilityConfig{ServiceName: "test", TraceExporter: "none"}, NewLoggerTo(io.Discard, config.LoggerConfig{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggerConfig{Level: "info", Format: "json"})

	ctx := WithRequestID(context.Background(), "req-1")
	ctx, span := otel.Tracer(TracerName).Start(ctx, "test")
	logger.InfoContext(ctx, "hello", "answer", 42)
	span.End()

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "req-1", record["request_id"])
	assert.Equal(t, span.SpanContext().TraceID().String(), record["trace_id"])
	assert.EqualValues(t, 42, record["answer"])
}

func TestLoggerWithoutContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggerConfig{Level: "warn", Format: "text"})

	logger.Info("dropped")
	logger.With("component", "pipeline").Warn("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "component=pipeline")
	assert.NotContains(t, out, "request_id")
}

func TestInitTracing_UnsupportedExporter(t *testing.T) {
	_, err := InitTracing(config.ObservabilityConfig{ServiceName: "test", TraceExporter: "jaeger"}, NewLoggerTo(io.Discard, config.LoggerConfig{}))
	assert.Error(t, err)
}

func TestMetrics_ObserveRequest(t *testing.T) {
	m := NewMetrics()

	m.ObserveRequest("GET /api/kpi", http.MethodGet, http.StatusOK, 5*time.Millisecond)
	m.ObserveRequest("GET /api/kpi", http.MethodGet, http.StatusOK, 5*time.Millisecond)
	m.ObserveRequest("", http.MethodGet, http.StatusNotFound, time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET /api/kpi", "GET", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.httpRequests.WithLabelValues("unmatched", "GET", "404")), 0)
}

func TestMetrics_Pipeline(t *testing.T) {
	m := NewMetrics()

	m.ObservePipelineRun(time.Millisecond, nil)
	m.ObservePipelineRun(time.Millisecond, errors.New("boom"))
	m.ObserveSnapshotHit()

	assert.InDelta(t, 1, testutil.ToFloat64(m.pipelineRuns.WithLabelValues("success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.pipelineRuns.WithLabelValues("error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.snapshotHits), 0)

	count, err := testutil.GatherAndCount(m.Registry(), "dashboard_pipeline_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	drops := models.DropReport{}
	drops.Add("transactions", "null Quantity", 3)
	m.ObserveDrops(drops)
	assert.InDelta(t, 3, testutil.ToFloat64(m.droppedRows.WithLabelValues("transactions", "null Quantity")), 0)

	// A later clean run clears the previous tallies.
	m.ObserveDrops(models.DropReport{})
	assert.Equal(t, 0, testutil.CollectAndCount(m.droppedRows))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.ObservePipelineRun(time.Millisecond, nil)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `dashboard_pipeline_runs_total{result="success"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}
