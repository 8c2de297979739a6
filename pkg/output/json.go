package output

import (
	"context"
	"encoding/json"
	"io"

	"github.com/ccollicutt/tsmerge/pkg/validator"
)

// JSONFormatter formats reports as JSON.
type JSONFormatter struct {
	opts FormatOptions
}

// quietReport is the JSON shape of quiet output: counts plus the messages
// behind them, without rows.
type quietReport struct {
	Summary    Summary            `json:"summary"`
	Validation *validator.Outcome `json:"validation"`
	Mode       string             `json:"mode"`
}

// NewJSONFormatter creates a new JSON formatter with the given options.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Format renders the report as JSON. Quiet output drops the merged rows and
// metadata but keeps the validation messages.
func (f *JSONFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if f.opts.Quiet {
		return encoder.Encode(quietReport{
			Summary:    report.Summary,
			Validation: report.Validation,
			Mode:       string(report.Metadata.Mode),
		})
	}

	return encoder.Encode(report)
}
