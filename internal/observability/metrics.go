package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ecommerce-dashboard/internal/models"
)

const metricsNamespace = "dashboard"

// Metrics owns a dedicated registry so tests can create as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	pipelineRuns     *prometheus.CounterVec
	pipelineDuration prometheus.Histogram
	droppedRows      *prometheus.GaugeVec
	snapshotHits     prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		pipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by result.",
		}, []string{"result"}),
		pipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Wall time of a full load-to-trend pipeline run.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		droppedRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "dropped_rows",
			Help:      "Rows dropped by the most recent pipeline run.",
		}, []string{"source", "reason"}),
		snapshotHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "snapshot_cache_hits_total",
			Help:      "Requests served from the memoized snapshot.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.pipelineRuns,
		m.pipelineDuration,
		m.droppedRows,
		m.snapshotHits,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObservePipelineRun(elapsed time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.pipelineRuns.WithLabelValues(result).Inc()
	m.pipelineDuration.Observe(elapsed.Seconds())
}

// ObserveDrops replaces the dropped-row gauges with the latest report.
func (m *Metrics) ObserveDrops(drops models.DropReport) {
	m.droppedRows.Reset()
	for source, reasons := range drops {
		for reason, n := range reasons {
			m.droppedRows.WithLabelValues(source, reason).Set(float64(n))
		}
	}
}

func (m *Metrics) ObserveSnapshotHit() {
	m.snapshotHits.Inc()
}
