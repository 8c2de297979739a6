package output

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ccollicutt/tsmerge/pkg/series"
	"github.com/ccollicutt/tsmerge/pkg/validator"
)

var base = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func createTestResult() *series.MergedResult {
	return &series.MergedResult{
		Columns:    []string{"t", "x [A]", "x [B]"},
		TimeColumn: "t",
		Rows: []series.Record{
			{"t": base, "x [A]": 1.5, "x [B]": nil},
			{"t": base.Add(time.Hour), "x [A]": 2.0, "x [B]": 7.0},
			{"t": base.Add(2 * time.Hour), "x [B]": "n/a"},
		},
		SourceFiles: []string{"A.csv", "B.csv"},
	}
}

func createTestReport() *Report {
	outcome := &validator.Outcome{
		Valid:    true,
		Errors:   []string{},
		Warnings: []string{"low time overlap between A.csv and B.csv"},
	}
	report := NewReport(series.ModeSequential, []string{"A.csv", "B.csv"}, outcome, createTestResult())
	report.Metadata.MergedAt = base
	report.Metadata.Duration = 1500 * time.Millisecond
	return report
}

func createRejectedReport() *Report {
	outcome := &validator.Outcome{
		Valid:    false,
		Errors:   []string{"time column mismatch: A.csv has \"t\", B.csv has \"time\""},
		Warnings: []string{},
	}
	return NewReport(series.ModeStackParameters, []string{"A.csv", "B.csv"}, outcome, nil)
}

func TestNewTextFormatter(t *testing.T) {
	f := NewTextFormatter(FormatOptions{})
	if f == nil {
		t.Fatal("NewTextFormatter() returned nil")
	}
	if f.Name() != "text" {
		t.Errorf("Name() = %q, want %q", f.Name(), "text")
	}
	if f.opts.PreviewRows != defaultPreviewRows {
		t.Errorf("PreviewRows = %d, want %d", f.opts.PreviewRows, defaultPreviewRows)
	}
}

func TestTextFormatter_Format_NoIssues(t *testing.T) {
	f := NewTextFormatter(FormatOptions{})
	report := NewReport(series.ModeSequential, []string{"A.csv", "B.csv"}, &validator.Outcome{Valid: true}, createTestResult())

	var buf bytes.Buffer
	if err := f.Format(context.Background(), report, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"=== tsmerge Merge Report ===",
		"Mode: sequential",
		"Sources: A.csv, B.csv",
		"No issues detected",
		"Rows: 3",
		"Columns: t, x [A], x [B]",
		"Time range: 2024-06-01T00:00:00Z to 2024-06-01T02:00:00Z",
		"Summary: 2 files merged into 3 rows x 3 columns, 0 warning(s)",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q\n%s", want, output)
		}
	}
	if strings.Contains(output, "First 3 row(s)") {
		t.Error("non-verbose output should not include a row preview")
	}
}

func TestTextFormatter_Format_WithWarnings(t *testing.T) {
	f := NewTextFormatter(FormatOptions{})

	var buf bytes.Buffer
	if err := f.Format(context.Background(), createTestReport(), &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "- warning: low time overlap between A.csv and B.csv") {
		t.Error("output missing warning line")
	}
	if !strings.Contains(output, "1 warning(s)") {
		t.Error("output missing warning count")
	}
}

func TestTextFormatter_Format_Rejected(t *testing.T) {
	f := NewTextFormatter(FormatOptions{})

	var buf bytes.Buffer
	if err := f.Format(context.Background(), createRejectedReport(), &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "- error: time column mismatch") {
		t.Error("output missing error line")
	}
	if strings.Contains(output, "[RESULT]") {
		t.Error("rejected report should not have a result section")
	}
	if !strings.Contains(output, "Summary: merge rejected, 1 error(s), 0 warning(s)") {
		t.Errorf("output missing rejected summary\n%s", output)
	}
}

func TestTextFormatter_Format_Verbose(t *testing.T) {
	f := NewTextFormatter(FormatOptions{Verbose: true, PreviewRows: 2})

	var buf bytes.Buffer
	if err := f.Format(context.Background(), createTestReport(), &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "First 2 row(s):") {
		t.Errorf("verbose output missing preview header\n%s", output)
	}
	if !strings.Contains(output, "1.5") {
		t.Error("verbose output missing cell value")
	}
	if strings.Contains(output, "n/a") {
		t.Error("preview should stop at PreviewRows")
	}
	if !strings.Contains(output, "Duration: 1.5s") {
		t.Error("verbose output missing duration")
	}
	if !strings.Contains(output, "Fingerprint: ") {
		t.Error("verbose output missing fingerprint")
	}
}

func TestTextFormatter_Format_Quiet(t *testing.T) {
	tests := []struct {
		name   string
		report *Report
		want   string
	}{
		{
			name:   "merged",
			report: createTestReport(),
			want:   "tsmerge: sequential merge of 2 files, 3 rows x 3 columns, 1 warning(s)\n",
		},
		{
			name:   "rejected",
			report: createRejectedReport(),
			want:   "tsmerge: stack_parameters merge of 2 files rejected, 1 error(s), 0 warning(s)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewTextFormatter(FormatOptions{Quiet: true})

			var buf bytes.Buffer
			if err := f.Format(context.Background(), tt.report, &buf); err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewReport(t *testing.T) {
	report := createTestReport()

	if !report.Summary.Merged {
		t.Error("Merged = false, want true")
	}
	if report.Summary.Rows != 3 || report.Summary.Columns != 3 {
		t.Errorf("Rows x Columns = %d x %d, want 3 x 3", report.Summary.Rows, report.Summary.Columns)
	}
	if !report.HasWarnings() {
		t.Error("HasWarnings() = false, want true")
	}
	if report.Rejected() {
		t.Error("Rejected() = true, want false")
	}
	if report.Metadata.TimeRange == nil || !report.Metadata.TimeRange.End.Equal(base.Add(2*time.Hour)) {
		t.Errorf("TimeRange = %+v", report.Metadata.TimeRange)
	}

	rejected := createRejectedReport()
	if !rejected.Rejected() {
		t.Error("Rejected() = false, want true")
	}
	if rejected.Metadata.Fingerprint != "" {
		t.Error("rejected report should not carry a fingerprint")
	}

	empty := NewReport(series.ModeSequential, nil, nil, nil)
	if empty.Validation == nil {
		t.Error("Validation should default to an empty outcome")
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "", want: "text"},
		{name: "text", want: "text"},
		{name: "json", want: "json"},
		{name: "csv", want: "csv"},
		{name: "yaml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFormatter(tt.name, FormatOptions{})
			if tt.wantErr {
				if err == nil {
					t.Error("NewFormatter() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewFormatter() error = %v", err)
			}
			if f.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", f.Name(), tt.want)
			}
		})
	}
}
