// Package series defines the tabular time-series types shared by the merge
// engine, along with timestamp parsing and sampling-interval detection.
package series

import (
	"fmt"
	"sort"
	"time"

	"github.com/ccollicutt/tsmerge/pkg/identifier"
)

// Record maps a column name to a scalar value (number, string, bool, time.Time, or nil).
type Record map[string]any

// ParsedFile is a single device file after upstream parsing.
type ParsedFile struct {
	// Label is the file identity, usually the original file name.
	Label string `json:"label"`

	// Columns is the ordered list of column names. The first is the time column.
	Columns []string `json:"columns"`

	// Rows holds the records in file order.
	Rows []Record `json:"rows"`

	// Meta is optional structured metadata. When nil the label is parsed.
	Meta *identifier.FileMeta `json:"meta,omitempty"`
}

// TimeColumn returns the name of the time column, or "" if the file has no columns.
func (f *ParsedFile) TimeColumn() string {
	if len(f.Columns) == 0 {
		return ""
	}
	return f.Columns[0]
}

// DataColumns returns every column except the time column.
func (f *ParsedFile) DataColumns() []string {
	if len(f.Columns) < 2 {
		return nil
	}
	return f.Columns[1:]
}

// Source returns the identifier view of the file.
func (f *ParsedFile) Source() identifier.Source {
	return identifier.Source{Label: f.Label, Meta: f.Meta}
}

// Sources returns the identifier view of every file, in order.
func Sources(files []ParsedFile) []identifier.Source {
	sources := make([]identifier.Source, len(files))
	for i := range files {
		sources[i] = files[i].Source()
	}
	return sources
}

// Sample is a row whose time value parsed to an instant.
type Sample struct {
	// At is the parsed instant.
	At time.Time

	// Row is the original record.
	Row Record
}

// Samples returns the rows of the file that carry a parseable time value, in
// file order. Rows that do not parse are skipped.
func (f *ParsedFile) Samples(p TimeParser) []Sample {
	timeCol := f.TimeColumn()
	samples := make([]Sample, 0, len(f.Rows))
	for _, row := range f.Rows {
		at, ok := p.ParseTime(row[timeCol])
		if !ok {
			continue
		}
		samples = append(samples, Sample{At: at, Row: row})
	}
	return samples
}

// SortSamples orders samples by instant, keeping file order for equal instants.
func SortSamples(samples []Sample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].At.Before(samples[j].At)
	})
}

// MergedResult is the single normalized output of a merge.
type MergedResult struct {
	// Columns lists the time column first, then the data columns in sorted order.
	Columns []string `json:"columns"`

	// Rows is ordered ascending by the time column. The time column holds the
	// normalized time.Time instant.
	Rows []Record `json:"rows"`

	// TimeColumn is the name of the time column.
	TimeColumn string `json:"time_column"`

	// SourceFiles lists the labels of the contributing files.
	SourceFiles []string `json:"source_files"`
}

// Instant returns the instant of row i.
func (r *MergedResult) Instant(i int) time.Time {
	t, _ := r.Rows[i][r.TimeColumn].(time.Time)
	return t
}

// HasColumn reports whether the result contains the named column.
func (r *MergedResult) HasColumn(name string) bool {
	for _, c := range r.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// QualifiedName returns a column name suffixed with a bracketed source tag.
func QualifiedName(column, tag string) string {
	return fmt.Sprintf("%s [%s]", column, tag)
}

// SortedColumns returns the time column followed by the keys of seen in sorted order.
func SortedColumns(timeColumn string, seen map[string]struct{}) []string {
	names := make([]string, 0, len(seen))
	for name := range seen {
		if name == timeColumn {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return append([]string{timeColumn}, names...)
}
