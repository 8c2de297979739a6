package output

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrNoResult is returned by formatters that only write merged data when the
// report has none.
var ErrNoResult = errors.New("report has no merged result")

// Formatter renders merge reports in a specific format.
type Formatter interface {
	// Format renders the report to the given writer.
	Format(ctx context.Context, report *Report, w io.Writer) error

	// Name returns the format name (text, json, csv).
	Name() string
}

// FormatOptions controls formatter behavior.
type FormatOptions struct {
	// Verbose enables detailed output including a preview of merged rows.
	Verbose bool

	// Quiet enables minimal summary-only output.
	Quiet bool

	// PreviewRows caps the rows shown by verbose text output (default 10).
	PreviewRows int
}

// NewFormatter returns the formatter registered under name.
func NewFormatter(name string, opts FormatOptions) (Formatter, error) {
	switch name {
	case "", "text":
		return NewTextFormatter(opts), nil
	case "json":
		return NewJSONFormatter(opts), nil
	case "csv":
		return NewCSVFormatter(opts), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (must be text, json, or csv)", name)
	}
}
