package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ccollicutt/tsmerge/pkg/merge"
	"github.com/ccollicutt/tsmerge/pkg/series"
)

const namespace = "tsmerge"

// Merge outcomes recorded on MergesTotal.
const (
	OutcomeMerged   = "merged"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Metrics holds the Prometheus counters and histograms for merges. It
// implements merge.Observer.
type Metrics struct {
	MergesTotal        *prometheus.CounterVec   // labels: mode, outcome={merged,rejected,failed}
	ValidationWarnings *prometheus.CounterVec   // labels: mode
	IndexAlignments    prometheus.Counter
	GapRowsInserted    prometheus.Counter
	ResultRows         prometheus.Histogram
	MergeDuration      *prometheus.HistogramVec // labels: mode
}

func newMetrics() *Metrics {
	return &Metrics{
		MergesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merges_total",
			Help:      "Merge requests by mode and outcome.",
		}, []string{"mode", "outcome"}),
		ValidationWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_warnings_total",
			Help:      "Advisory validation messages by mode.",
		}, []string{"mode"}),
		IndexAlignments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_alignments_total",
			Help:      "Stack merges that fell back to positional alignment.",
		}),
		GapRowsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gap_rows_inserted_total",
			Help:      "Zero-valued rows inserted by gap filling.",
		}),
		ResultRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "result_rows",
			Help:      "Rows per merged result.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}),
		MergeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "merge_duration_seconds",
			Help:      "Duration of a merge request including validation.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"mode"}),
	}
}

// NewMetrics creates all merge metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.MergesTotal,
		m.ValidationWarnings,
		m.IndexAlignments,
		m.GapRowsInserted,
		m.ResultRows,
		m.MergeDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics on a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewMetrics(reg), reg
}

// Observe implements merge.Observer.
func (m *Metrics) Observe(e merge.Event) {
	mode := string(e.Mode)
	switch e.Kind {
	case merge.EventValidationCompleted:
		if e.Outcome == nil {
			return
		}
		if n := len(e.Outcome.Warnings); n > 0 {
			m.ValidationWarnings.WithLabelValues(mode).Add(float64(n))
		}
		if !e.Outcome.IsValid() {
			m.MergesTotal.WithLabelValues(mode, OutcomeRejected).Inc()
		}

	case merge.EventIndexAlignment:
		m.IndexAlignments.Inc()

	case merge.EventGapsFilled:
		m.GapRowsInserted.Add(float64(e.Count))

	case merge.EventMergeCompleted:
		m.MergesTotal.WithLabelValues(mode, OutcomeMerged).Inc()
		m.ResultRows.Observe(float64(e.Count))
	}
}

// MergeFailed records a merge that errored after validation passed.
func (m *Metrics) MergeFailed(mode series.Mode) {
	m.MergesTotal.WithLabelValues(string(mode), OutcomeFailed).Inc()
}

// ObserveDuration records how long a merge request took.
func (m *Metrics) ObserveDuration(mode series.Mode, d time.Duration) {
	m.MergeDuration.WithLabelValues(string(mode)).Observe(d.Seconds())
}
