// Package output provides formatting and output generation for merge results.
package output

import (
	"time"

	"github.com/ccollicutt/tsmerge/pkg/series"
	"github.com/ccollicutt/tsmerge/pkg/validator"
)

// Report is the complete output of a merge run.
type Report struct {
	// Summary provides aggregate statistics.
	Summary Summary `json:"summary"`

	// Validation is the validator outcome. Always set.
	Validation *validator.Outcome `json:"validation"`

	// Result is the merged data. Nil when validation rejected the input.
	Result *series.MergedResult `json:"result,omitempty"`

	// Metadata provides context about the run.
	Metadata Metadata `json:"metadata"`
}

// Summary provides aggregate statistics.
type Summary struct {
	// Merged is false when validation rejected the input.
	Merged bool `json:"merged"`

	// Files is the number of input files.
	Files int `json:"files"`

	// Rows and Columns describe the merged result.
	Rows    int `json:"rows"`
	Columns int `json:"columns"`

	// Errors and Warnings count the validator messages.
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

// Metadata provides context about the merge run.
type Metadata struct {
	// ConfigFile is the path to the configuration file used, if any.
	ConfigFile string `json:"config_file,omitempty"`

	// Mode is the merge mode requested.
	Mode series.Mode `json:"mode"`

	// Sources lists the input file labels.
	Sources []string `json:"sources"`

	// TimeRange spans the merged rows, if any.
	TimeRange *TimeRange `json:"time_range,omitempty"`

	// MergedAt is when the merge was performed.
	MergedAt time.Time `json:"merged_at"`

	// Duration is how long validation and merging took.
	Duration time.Duration `json:"duration_ns"`

	// Fingerprint identifies the merged content. Equal results share a fingerprint.
	Fingerprint string `json:"fingerprint,omitempty"`
}

// TimeRange represents the first and last instant of a result.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewReport creates a Report from a validator outcome and, when the merge ran,
// its result. The caller fills in run-specific metadata such as MergedAt.
func NewReport(mode series.Mode, sources []string, outcome *validator.Outcome, result *series.MergedResult) *Report {
	if outcome == nil {
		outcome = &validator.Outcome{Errors: []string{}, Warnings: []string{}}
	}

	report := &Report{
		Validation: outcome,
		Result:     result,
		Metadata: Metadata{
			Mode:    mode,
			Sources: sources,
		},
		Summary: Summary{
			Merged:   result != nil,
			Files:    len(sources),
			Errors:   len(outcome.Errors),
			Warnings: len(outcome.Warnings),
		},
	}

	if result != nil {
		report.Summary.Rows = len(result.Rows)
		report.Summary.Columns = len(result.Columns)
		report.Metadata.Fingerprint = Fingerprint(result)
		if n := len(result.Rows); n > 0 {
			report.Metadata.TimeRange = &TimeRange{
				Start: result.Instant(0),
				End:   result.Instant(n - 1),
			}
		}
	}

	return report
}

// HasWarnings returns true if validation produced any messages.
func (r *Report) HasWarnings() bool {
	return r.Summary.Warnings > 0 || r.Summary.Errors > 0
}

// Rejected returns true if validation blocked the merge.
func (r *Report) Rejected() bool {
	return !r.Summary.Merged
}
