package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccollicutt/tsmerge/pkg/merge"
	"github.com/ccollicutt/tsmerge/pkg/series"
	"github.com/ccollicutt/tsmerge/pkg/validator"
)

// value returns the counter or histogram-count value of the metric whose
// labels match, or -1 if it is absent.
func value(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			if h := m.GetHistogram(); h != nil {
				return float64(h.GetSampleCount())
			}
			return m.GetCounter().GetValue()
		}
	}
	return -1
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("warn", "json", &buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "tsmerge", rec["service"])
	assert.Equal(t, "v", rec["k"])
}

func TestNewLogger_TextDefault(t *testing.T) {
	var buf bytes.Buffer
	NewLogger("bogus", "", &buf).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	obs := NewLogObserver(NewLogger("debug", "text", &buf))

	obs.Observe(merge.Event{
		Kind: merge.EventValidationCompleted,
		Mode: series.ModeStackParameters,
		Outcome: &validator.Outcome{
			Valid:    true,
			Warnings: []string{"only 3 common time point(s) across files"},
		},
	})
	obs.Observe(merge.Event{
		Kind:      merge.EventIndexAlignment,
		Mode:      series.ModeStackParameters,
		Count:     24,
		Intervals: map[string]time.Duration{"a.csv": time.Hour},
	})
	obs.Observe(merge.Event{Kind: merge.EventGapsFilled, Group: "North_Reef", Count: 2, Interval: time.Hour})
	obs.Observe(merge.Event{Kind: merge.EventMergeCompleted, Mode: series.ModeStdMerge, Count: 7})

	out := buf.String()
	assert.Contains(t, out, "validation warning")
	assert.Contains(t, out, "only 3 common time point(s)")
	assert.Contains(t, out, "validation passed")
	assert.Contains(t, out, "aligning rows by position")
	assert.Contains(t, out, "interval.a.csv=1h0m0s")
	assert.Contains(t, out, "station=North_Reef")
	assert.Contains(t, out, "rows=7")
}

func TestLogOutcome_Rejected(t *testing.T) {
	var buf bytes.Buffer
	LogOutcome(NewLogger("info", "text", &buf), series.ModeSequential, &validator.Outcome{
		Valid:  false,
		Errors: []string{"at least two files are required to merge (got 1)"},
	})
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "validation failed")
}

func TestMetrics_Observe(t *testing.T) {
	m, reg := NewMetricsForTesting()

	m.Observe(merge.Event{
		Kind:    merge.EventValidationCompleted,
		Mode:    series.ModeSequential,
		Outcome: &validator.Outcome{Valid: false, Errors: []string{"x"}, Warnings: []string{"a", "b"}},
	})
	m.Observe(merge.Event{Kind: merge.EventIndexAlignment, Mode: series.ModeStackParameters})
	m.Observe(merge.Event{Kind: merge.EventGapsFilled, Count: 5})
	m.Observe(merge.Event{Kind: merge.EventGapsFilled, Count: 2})
	m.Observe(merge.Event{Kind: merge.EventMergeCompleted, Mode: series.ModeStdMerge, Count: 40})
	m.MergeFailed(series.ModeStackParameters)
	m.ObserveDuration(series.ModeStdMerge, 20*time.Millisecond)

	assert.Equal(t, 1.0, value(t, reg, "tsmerge_merges_total", map[string]string{"mode": "sequential", "outcome": OutcomeRejected}))
	assert.Equal(t, 1.0, value(t, reg, "tsmerge_merges_total", map[string]string{"mode": "std-merge", "outcome": OutcomeMerged}))
	assert.Equal(t, 1.0, value(t, reg, "tsmerge_merges_total", map[string]string{"mode": "stack-parameters", "outcome": OutcomeFailed}))
	assert.Equal(t, 2.0, value(t, reg, "tsmerge_validation_warnings_total", map[string]string{"mode": "sequential"}))
	assert.Equal(t, 1.0, value(t, reg, "tsmerge_index_alignments_total", nil))
	assert.Equal(t, 7.0, value(t, reg, "tsmerge_gap_rows_inserted_total", nil))
	assert.Equal(t, 1.0, value(t, reg, "tsmerge_result_rows", nil))
	assert.Equal(t, 1.0, value(t, reg, "tsmerge_merge_duration_seconds", map[string]string{"mode": "std-merge"}))
}

func TestMetrics_FromEngine(t *testing.T) {
	m, reg := NewMetricsForTesting()
	files := []series.ParsedFile{
		{Label: "a.csv", Columns: []string{"t", "x"}, Rows: []series.Record{{"t": 0, "x": 1}}},
		{Label: "b.csv", Columns: []string{"t", "x"}, Rows: []series.Record{{"t": 60, "x": 2}}},
	}

	_, _, err := merge.Run(files, series.ModeSequential, merge.WithObserver(m))
	require.NoError(t, err)
	assert.Equal(t, 1.0, value(t, reg, "tsmerge_merges_total", map[string]string{"mode": "sequential", "outcome": OutcomeMerged}))
}
