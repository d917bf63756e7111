// Package metrics provides Prometheus metrics for the tutor service
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// HTTP request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Completion gateway metrics
	CompletionsTotal   *prometheus.CounterVec
	CompletionDuration *prometheus.HistogramVec

	// Hint metrics
	HintLevelsTotal *prometheus.CounterVec

	// Hint store metrics
	StoreOperationsTotal *prometheus.CounterVec
	StoreCorruptRecords  prometheus.Counter
}

// NewMetrics creates all metrics and registers them with reg
// (prometheus.DefaultRegisterer when reg is nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	m := &Metrics{}

	m.HTTPRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorpy_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	m.HTTPRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tutorpy_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	m.CompletionsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorpy_completions_total",
			Help: "Total number of LLM completion calls",
		},
		[]string{"engine", "status"},
	)

	m.CompletionDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tutorpy_completion_duration_seconds",
			Help:    "Duration of LLM completion calls in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"engine"},
	)

	m.HintLevelsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorpy_hint_levels_total",
			Help: "Resolved hint levels by flow (chat or editor)",
		},
		[]string{"flow", "level"},
	)

	m.StoreOperationsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorpy_hint_store_operations_total",
			Help: "Total number of hint store operations",
		},
		[]string{"operation", "status"},
	)

	m.StoreCorruptRecords = f.NewCounter(
		prometheus.CounterOpts{
			Name: "tutorpy_hint_store_corrupt_records_total",
			Help: "Stored hint records that failed to decode and were replaced by an empty record",
		},
	)

	return m
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordHTTPRequest records an HTTP request with its status code.
func (m *Metrics) RecordHTTPRequest(route, method string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordCompletion records one call to a completion engine.
func (m *Metrics) RecordCompletion(engine string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.CompletionsTotal.WithLabelValues(engine, statusLabel(err)).Inc()
	m.CompletionDuration.WithLabelValues(engine).Observe(duration.Seconds())
}

func (m *Metrics) RecordHintLevel(flow string, level int) {
	if m == nil {
		return
	}
	m.HintLevelsTotal.WithLabelValues(flow, strconv.Itoa(level)).Inc()
}

func (m *Metrics) RecordStoreOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.StoreOperationsTotal.WithLabelValues(operation, statusLabel(err)).Inc()
}

func (m *Metrics) RecordCorruptRecord() {
	if m == nil {
		return
	}
	m.StoreCorruptRecords.Inc()
}
