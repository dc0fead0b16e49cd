// Package metric exposes Prometheus metrics for table loading and conversion.
//
// A nil *Metrics is valid: every Record method is a no-op, so callers can
// run without metrics.
package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rows"

// Metrics contains the service metrics and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RowsTotal       *prometheus.CounterVec
	ColumnsDetected *prometheus.CounterVec
	WidenedColumns  prometheus.Counter
	BytesRead       prometheus.Counter
	Duration        *prometheus.HistogramVec
	SlotsInUse      prometheus.Gauge
}

// New creates the metrics and registers them, together with the Go runtime
// and process collectors, in a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "requests",
				Name:      "total",
				Help:      "Total number of conversion requests",
			},
			[]string{"operation", "status"},
		),

		RowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rows",
				Name:      "total",
				Help:      "Total number of data rows read",
			},
			[]string{"operation", "outcome"}, // outcome: loaded, failed
		),

		ColumnsDetected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "columns",
				Name:      "detected_total",
				Help:      "Total number of columns by resolved type",
			},
			[]string{"type"},
		),

		WidenedColumns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "columns",
				Name:      "widened_total",
				Help:      "Total number of columns recast to text while loading",
			},
		),

		BytesRead: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "input",
				Name:      "bytes_total",
				Help:      "Total number of input bytes read",
			},
		),

		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "processing",
				Name:      "duration_seconds",
				Help:      "Request processing duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"operation"},
		),

		SlotsInUse: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "limiter",
				Name:      "slots_in_use",
				Help:      "Conversion slots currently held",
			},
		),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RowsTotal,
		m.ColumnsDetected,
		m.WidenedColumns,
		m.BytesRead,
		m.Duration,
		m.SlotsInUse,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// RecordRequest counts a finished request.
func (m *Metrics) RecordRequest(operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(operation, status).Inc()
	m.Duration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordRows counts loaded and failed rows.
func (m *Metrics) RecordRows(operation string, loaded, failed int) {
	if m == nil {
		return
	}
	m.RowsTotal.WithLabelValues(operation, "loaded").Add(float64(loaded))
	m.RowsTotal.WithLabelValues(operation, "failed").Add(float64(failed))
}

// RecordColumns counts resolved column types and widened columns.
func (m *Metrics) RecordColumns(types []string, widened int) {
	if m == nil {
		return
	}
	for _, t := range types {
		m.ColumnsDetected.WithLabelValues(t).Inc()
	}
	m.WidenedColumns.Add(float64(widened))
}

// RecordBytes counts input bytes.
func (m *Metrics) RecordBytes(n int64) {
	if m == nil {
		return
	}
	m.BytesRead.Add(float64(n))
}

// SlotAcquired and SlotReleased track the limiter.
func (m *Metrics) SlotAcquired() {
	if m != nil {
		m.SlotsInUse.Inc()
	}
}

func (m *Metrics) SlotReleased() {
	if m != nil {
		m.SlotsInUse.Dec()
	}
}
