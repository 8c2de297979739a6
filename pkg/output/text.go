package output

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

const defaultPreviewRows = 10

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = defaultPreviewRows
	}
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	s := report.Summary
	if report.Rejected() {
		_, err := fmt.Fprintf(w, "tsmerge: %s merge of %d files rejected, %d error(s), %d warning(s)\n",
			report.Metadata.Mode, s.Files, s.Errors, s.Warnings)
		return err
	}
	_, err := fmt.Fprintf(w, "tsmerge: %s merge of %d files, %d rows x %d columns, %d warning(s)\n",
		report.Metadata.Mode, s.Files, s.Rows, s.Columns, s.Warnings)
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	fmt.Fprintln(w, "=== tsmerge Merge Report ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Mode: %s\n", report.Metadata.Mode)
	fmt.Fprintf(w, "Sources: %s\n", strings.Join(report.Metadata.Sources, ", "))
	fmt.Fprintln(w)

	f.formatValidation(report, w)

	if report.Result != nil {
		if err := f.formatResult(report, w); err != nil {
			return err
		}
	}

	s := report.Summary
	fmt.Fprintln(w, "---")
	if report.Rejected() {
		fmt.Fprintf(w, "Summary: merge rejected, %d error(s), %d warning(s)\n", s.Errors, s.Warnings)
	} else {
		fmt.Fprintf(w, "Summary: %d files merged into %d rows x %d columns, %d warning(s)\n",
			s.Files, s.Rows, s.Columns, s.Warnings)
	}

	if f.opts.Verbose {
		fmt.Fprintf(w, "Merged at: %s\n", report.Metadata.MergedAt.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(time.Millisecond))
	}

	return nil
}

func (f *TextFormatter) formatValidation(report *Report, w io.Writer) {
	out := report.Validation
	fmt.Fprintln(w, "[VALIDATION]")

	if len(out.Errors) == 0 && len(out.Warnings) == 0 {
		fmt.Fprintln(w, "  No issues detected")
		fmt.Fprintln(w)
		return
	}

	for _, e := range out.Errors {
		fmt.Fprintf(w, "  - error: %s\n", e)
	}
	for _, warn := range out.Warnings {
		fmt.Fprintf(w, "  - warning: %s\n", warn)
	}
	fmt.Fprintln(w)
}

func (f *TextFormatter) formatResult(report *Report, w io.Writer) error {
	r := report.Result
	fmt.Fprintln(w, "[RESULT]")
	fmt.Fprintf(w, "  Rows: %d\n", len(r.Rows))
	fmt.Fprintf(w, "  Columns: %s\n", strings.Join(r.Columns, ", "))
	if tr := report.Metadata.TimeRange; tr != nil {
		fmt.Fprintf(w, "  Time range: %s to %s\n", tr.Start.Format(time.RFC3339), tr.End.Format(time.RFC3339))
	}
	if report.Metadata.Fingerprint != "" {
		fmt.Fprintf(w, "  Fingerprint: %s\n", report.Metadata.Fingerprint)
	}
	fmt.Fprintln(w)

	if !f.opts.Verbose || len(r.Rows) == 0 {
		return nil
	}

	n := min(len(r.Rows), f.opts.PreviewRows)
	fmt.Fprintf(w, "  First %d row(s):\n", n)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  %s\n", strings.Join(r.Columns, "\t"))
	cells := make([]string, len(r.Columns))
	for _, row := range r.Rows[:n] {
		for i, c := range r.Columns {
			cells[i] = FormatValue(row[c])
			if row[c] == nil {
				cells[i] = "-"
			}
		}
		fmt.Fprintf(tw, "  %s\n", strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}
