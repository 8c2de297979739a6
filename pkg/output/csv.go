package output

import (
	"context"
	"encoding/csv"
	"io"
)

// CSVFormatter writes the merged rows as delimited text. The header is the
// result's column list; missing values are empty cells.
type CSVFormatter struct {
	opts FormatOptions
}

// NewCSVFormatter creates a new CSV formatter with the given options.
func NewCSVFormatter(opts FormatOptions) *CSVFormatter {
	return &CSVFormatter{opts: opts}
}

// Name returns the format name.
func (f *CSVFormatter) Name() string {
	return "csv"
}

// Format renders the merged result as CSV. It fails with ErrNoResult when the
// merge was rejected.
func (f *CSVFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	r := report.Result
	if r == nil {
		return ErrNoResult
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(r.Columns); err != nil {
		return err
	}

	record := make([]string, len(r.Columns))
	for _, row := range r.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i, c := range r.Columns {
			record[i] = FormatValue(row[c])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
