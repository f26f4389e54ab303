package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcome labels
const (
	RunOK      = "ok"
	RunEmpty   = "empty"
	RunFlagged = "flagged"
	RunError   = "error"
)

// Metrics holds all Prometheus metrics on a private registry
type Metrics struct {
	registry *prometheus.Registry

	// Ingestion metrics
	FilesParsed     *prometheus.CounterVec
	ParseErrors     *prometheus.CounterVec
	ParseDuration   *prometheus.HistogramVec
	IntervalsParsed prometheus.Counter

	// Analysis metrics
	RunsAnalyzed *prometheus.CounterVec
	RunDuration  prometheus.Histogram
	Processes    prometheus.Gauge

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	startTime time.Time

	// Snapshot for the JSON health endpoint
	snapshot MetricsSnapshot
	mu       sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	FilesParsed   int64   `json:"files_parsed"`
	ParseErrors   int64   `json:"parse_errors"`
	RunsAnalyzed  int64   `json:"runs_analyzed"`
	TotalRequests int64   `json:"total_requests"`
	TotalErrors   int64   `json:"total_errors"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// NewMetrics creates a metrics collector with its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		FilesParsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracestat_files_parsed_total",
				Help: "Total number of log files parsed",
			},
			[]string{"kind"},
		),
		ParseErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracestat_parse_errors_total",
				Help: "Total number of log files rejected by the parser",
			},
			[]string{"kind"},
		),
		ParseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tracestat_parse_duration_seconds",
				Help:    "Time spent parsing one log file",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"kind"},
		),
		IntervalsParsed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tracestat_intervals_parsed_total",
				Help: "Total number of intervals read from interval logs",
			},
		),

		RunsAnalyzed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracestat_runs_analyzed_total",
				Help: "Total number of run directories analyzed",
			},
			[]string{"status"},
		),
		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tracestat_run_duration_seconds",
				Help:    "Time spent analyzing one run directory",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		Processes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tracestat_last_run_processes",
				Help: "Number of processes in the most recently analyzed run",
			},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracestat_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tracestat_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tracestat_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "tracestat_uptime_seconds",
			Help: "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry for the node exporter textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// RecordParse records one parsed file. A nil receiver is a no-op.
func (m *Metrics) RecordParse(kind string, duration time.Duration, intervals int, err error) {
	if m == nil {
		return
	}
	m.ParseDuration.WithLabelValues(kind).Observe(duration.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.ParseErrors.WithLabelValues(kind).Inc()
		m.snapshot.ParseErrors++
		return
	}
	m.FilesParsed.WithLabelValues(kind).Inc()
	m.IntervalsParsed.Add(float64(intervals))
	m.snapshot.FilesParsed++
}

// RecordRun records one analyzed run
func (m *Metrics) RecordRun(status string, processes int, duration time.Duration) {
	if m == nil {
		return
	}
	m.RunsAnalyzed.WithLabelValues(status).Inc()
	m.RunDuration.Observe(duration.Seconds())
	m.Processes.Set(float64(processes))

	m.mu.Lock()
	m.snapshot.RunsAnalyzed++
	m.mu.Unlock()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, respSize int64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// Snapshot returns a copy of the current counters
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := m.snapshot
	snap.UptimeSeconds = time.Since(m.startTime).Seconds()
	return snap
}
