package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the sync run.
type Metrics struct {
	Registry       *prometheus.Registry
	LoansExtracted prometheus.Counter
	EventsChanged  *prometheus.CounterVec
	ApplyErrors    *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	LastSuccess    prometheus.Gauge
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	loans := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "due_dates_loans_extracted_total",
			Help: "Total loan records extracted from the patron account.",
		},
	)
	changed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "due_dates_events_changed_total",
			Help: "Calendar events inserted or deleted.",
		},
		[]string{"action"},
	)
	applyErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "due_dates_apply_errors_total",
			Help: "Calendar calls that failed while applying a plan.",
		},
		[]string{"action"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "due_dates_run_duration_seconds",
			Help:    "Wall time of a sync run.",
			Buckets: prometheus.DefBuckets,
		},
	)
	lastSuccess := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "due_dates_last_success_timestamp_seconds",
			Help: "Unix time of the last run that completed without errors.",
		},
	)

	registry.MustRegister(loans, changed, applyErrors, duration, lastSuccess)

	return &Metrics{
		Registry:       registry,
		LoansExtracted: loans,
		EventsChanged:  changed,
		ApplyErrors:    applyErrors,
		RunDuration:    duration,
		LastSuccess:    lastSuccess,
	}
}

// AddLoans counts extracted loan records.
func (m *Metrics) AddLoans(n int) {
	if m == nil {
		return
	}
	m.LoansExtracted.Add(float64(n))
}

// IncEvent counts one applied insert or delete.
func (m *Metrics) IncEvent(action string) {
	if m == nil {
		return
	}
	m.EventsChanged.WithLabelValues(action).Inc()
}

// IncApplyError counts one failed insert or delete.
func (m *Metrics) IncApplyError(action string) {
	if m == nil {
		return
	}
	m.ApplyErrors.WithLabelValues(action).Inc()
}

// ObserveRun records the run duration.
func (m *Metrics) ObserveRun(d time.Duration) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(d.Seconds())
}

// MarkSuccess stamps the last successful run.
func (m *Metrics) MarkSuccess(at time.Time) {
	if m == nil {
		return
	}
	m.LastSuccess.Set(float64(at.Unix()))
}

// WriteTextfile writes the registry in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
