package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ccollicutt/tsmerge/pkg/series"
)

// ErrEmptyFile is returned when a file has no header row.
var ErrEmptyFile = errors.New("file has no header row")

const utf8BOM = "\ufeff"

// ParseCSV turns delimited text into a ParsedFile. The first record is the
// header. Numeric cells become float64, blank cells are left out of the row,
// and everything else is kept as a trimmed string.
//
// When timeColumn is set, that column is moved to the front; it is an error
// if the header does not contain it.
func ParseCSV(label string, data []byte, timeColumn string) (series.ParsedFile, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.ReuseRecord = false

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return series.ParsedFile{}, fmt.Errorf("%s: %w", label, ErrEmptyFile)
	}
	if err != nil {
		return series.ParsedFile{}, fmt.Errorf("%s: reading header: %w", label, err)
	}

	columns, err := normalizeHeader(header)
	if err != nil {
		return series.ParsedFile{}, fmt.Errorf("%s: %w", label, err)
	}

	if timeColumn != "" {
		columns, err = moveToFront(columns, timeColumn)
		if err != nil {
			return series.ParsedFile{}, fmt.Errorf("%s: %w", label, err)
		}
	}

	f := series.ParsedFile{Label: label, Columns: columns}
	for line := 2; ; line++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return series.ParsedFile{}, fmt.Errorf("%s: line %d: %w", label, line, err)
		}

		row := make(series.Record, len(header))
		for i, cell := range record {
			if i >= len(header) {
				break
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			row[header[i]] = coerce(cell)
		}
		if len(row) > 0 {
			f.Rows = append(f.Rows, row)
		}
	}

	return f, nil
}

func normalizeHeader(header []string) ([]string, error) {
	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("column %d has no name", i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = true
		header[i] = name
		columns[i] = name
	}
	return columns, nil
}

func moveToFront(columns []string, name string) ([]string, error) {
	for i, c := range columns {
		if c != name {
			continue
		}
		out := make([]string, 0, len(columns))
		out = append(out, name)
		out = append(out, columns[:i]...)
		return append(out, columns[i+1:]...), nil
	}
	return nil, fmt.Errorf("time column %q not found", name)
}

// coerce returns finite numeric cells as float64. NaN and infinities stay text
// so results remain JSON-encodable.
func coerce(cell string) any {
	if f, err := strconv.ParseFloat(cell, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return cell
}
