// Package metrics provides Prometheus metrics for ingestion and forecasting runs.
//
// Runs are batch jobs, so the registry is not scraped over HTTP; instead it is
// written to a node-exporter textfile at the end of each run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Option applies a configuration option to the Recorder.
type Option func(*Recorder)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		if namespace != "" {
			r.namespace = namespace
		}
	}
}

// WithRegistry sets a custom Prometheus registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(r *Recorder) {
		if registry != nil {
			r.registry = registry
		}
	}
}

// Recorder holds the pipeline metrics. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	namespace string
	registry  *prometheus.Registry

	sheets        *prometheus.CounterVec
	workbooks     *prometheus.CounterVec
	rowsIngested  prometheus.Counter
	nullTimes     prometheus.Counter
	forecasts     *prometheus.CounterVec
	buildDuration prometheus.Histogram
	lastRunUnix   prometheus.Gauge
}

// New creates a Recorder on its own registry.
func New(opts ...Option) *Recorder {
	r := &Recorder{
		namespace: "gugs",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(r)
	}

	auto := promauto.With(r.registry)

	r.sheets = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "ingest",
		Name:      "sheets_total",
		Help:      "Worksheets inspected, by outcome",
	}, []string{"outcome"})

	r.workbooks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "ingest",
		Name:      "workbooks_total",
		Help:      "Workbooks opened, by status",
	}, []string{"status"})

	r.rowsIngested = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "ingest",
		Name:      "rows_total",
		Help:      "Canonical result rows produced",
	})

	r.nullTimes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "ingest",
		Name:      "null_times_total",
		Help:      "Result rows whose time could not be recovered",
	})

	r.forecasts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "forecast",
		Name:      "groups_total",
		Help:      "Forecast distance groups, by outcome",
	}, []string{"outcome"})

	r.buildDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Subsystem: "ingest",
		Name:      "build_duration_seconds",
		Help:      "Time spent building one result table",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	r.lastRunUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Subsystem: "ingest",
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time of the last completed ingestion",
	})

	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// SheetOutcome counts one inspected worksheet.
func (r *Recorder) SheetOutcome(outcome string) {
	if r == nil {
		return
	}
	r.sheets.WithLabelValues(outcome).Inc()
}

// WorkbookStatus counts one workbook by status ("opened", "failed").
func (r *Recorder) WorkbookStatus(status string) {
	if r == nil {
		return
	}
	r.workbooks.WithLabelValues(status).Inc()
}

// RowsIngested adds n produced rows, nulls of which had no usable time.
func (r *Recorder) RowsIngested(n, nulls int) {
	if r == nil {
		return
	}
	r.rowsIngested.Add(float64(n))
	r.nullTimes.Add(float64(nulls))
}

// ForecastOutcome counts one forecast group.
func (r *Recorder) ForecastOutcome(outcome string) {
	if r == nil {
		return
	}
	r.forecasts.WithLabelValues(outcome).Inc()
}

// ObserveBuild records the duration of a completed build.
func (r *Recorder) ObserveBuild(d time.Duration) {
	if r == nil {
		return
	}
	r.buildDuration.Observe(d.Seconds())
	r.lastRunUnix.SetToCurrentTime()
}

// WriteTextfile writes all metrics in the text exposition format to path,
// for pickup by the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
