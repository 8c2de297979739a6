// Package detector provides automatic time-column format detection for device files.
package detector

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ccollicutt/tsmerge/pkg/series"
)

// maxEpochSeconds bounds numeric timestamps to 1970-2100.
const maxEpochSeconds = 4102444800

// DetectionResult holds the result of analyzing a time column.
type DetectionResult struct {
	Column        string        // Name of the analyzed column
	Matches       []FormatMatch // Formats that matched, sorted by confidence descending
	SampledValues int           // Number of non-empty values sampled
	ParsedValues  int           // Number of values parsed by the best match
	AmbiguityNote string        // Warning about date ordering if applicable
}

// FormatMatch represents a format that matched with its confidence score.
type FormatMatch struct {
	Format      *TimestampFormat
	Confidence  float64   // 0.0 to 1.0 (share of sampled values parsed)
	MatchCount  int       // Number of values that parsed
	SampleValue string    // Example value that parsed
	ParsedTime  time.Time // Parsed instant of the sample
}

// ParserOptions returns the options that make series.NewParser read values
// in this format.
func (m *FormatMatch) ParserOptions() []series.ParserOption {
	if m.Format.Numeric() {
		return []series.ParserOption{series.WithNumericUnit(m.Format.Unit)}
	}
	return []series.ParserOption{series.WithLayouts(m.Format.Layout)}
}

// Detector analyzes time-column values to identify their format.
type Detector struct {
	formats    []*TimestampFormat
	sampleSize int
}

// Option configures the Detector.
type Option func(*Detector)

// WithSampleSize sets the number of values to sample (default 100).
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// New creates a new Detector with default formats.
func New(opts ...Option) *Detector {
	d := &Detector{
		formats:    DefaultFormats(),
		sampleSize: series.IntervalSampleLimit,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectFromFile samples the time column of a parsed file.
func (d *Detector) DetectFromFile(f *series.ParsedFile) *DetectionResult {
	col := f.TimeColumn()
	values := make([]string, 0, d.sampleSize)
	for _, row := range f.Rows {
		if len(values) >= d.sampleSize {
			break
		}
		if s, ok := cellString(row[col]); ok {
			values = append(values, s)
		}
	}

	result := d.DetectFromValues(values)
	result.Column = col
	return result
}

// DetectFromValues analyzes raw time-column values.
func (d *Detector) DetectFromValues(values []string) *DetectionResult {
	if len(values) > d.sampleSize {
		values = values[:d.sampleSize]
	}

	result := &DetectionResult{}

	type formatStats struct {
		format      *TimestampFormat
		matchCount  int
		sampleValue string
		parsedTime  time.Time
	}

	// Keyed by position so formats that share a name never collide.
	stats := make(map[int]*formatStats)

	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		result.SampledValues++

		for i, format := range d.formats {
			if !format.Pattern.MatchString(v) {
				continue
			}
			parsed, ok := parseValue(v, format)
			if !ok {
				continue
			}
			if stats[i] == nil {
				stats[i] = &formatStats{
					format:      format,
					sampleValue: v,
					parsedTime:  parsed,
				}
			}
			stats[i].matchCount++
		}
	}

	if result.SampledValues == 0 {
		return result
	}

	order := make([]int, 0, len(stats))
	for i := range stats {
		order = append(order, i)
	}
	sort.Ints(order)

	for _, i := range order {
		s := stats[i]
		result.Matches = append(result.Matches, FormatMatch{
			Format:      s.format,
			Confidence:  float64(s.matchCount) / float64(result.SampledValues),
			MatchCount:  s.matchCount,
			SampleValue: s.sampleValue,
			ParsedTime:  s.parsedTime,
		})
	}

	// Highest confidence first; ties keep the built-in order.
	sort.SliceStable(result.Matches, func(i, j int) bool {
		return result.Matches[i].Confidence > result.Matches[j].Confidence
	})

	if len(result.Matches) > 0 {
		result.ParsedValues = result.Matches[0].MatchCount
	}

	if best := result.BestMatch(); best != nil && best.Format.Ambiguous {
		result.AmbiguityNote = ambiguityNote(result.Matches)
	}

	return result
}

func ambiguityNote(matches []FormatMatch) string {
	best := matches[0]
	for _, m := range matches[1:] {
		if m.Format.Ambiguous && m.Confidence == best.Confidence {
			return fmt.Sprintf("Both %q and %q parse every sampled value. "+
				"Set time.layouts in the config to the one your logger uses.",
				best.Format.Layout, m.Format.Layout)
		}
	}
	return "This format has date ordering ambiguity (MM/DD vs DD/MM). " +
		"Verify the layout matches your logger export."
}

func parseValue(v string, format *TimestampFormat) (time.Time, bool) {
	if !format.Numeric() {
		t, err := time.Parse(format.Layout, v)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}

	n, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(n) {
		return time.Time{}, false
	}
	secs := n * format.Unit.Seconds()
	if secs < 0 || secs > maxEpochSeconds {
		return time.Time{}, false
	}
	return time.Unix(0, 0).UTC().Add(time.Duration(n * float64(format.Unit))), true
}

// cellString renders a raw time-column value for pattern matching.
func cellString(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(val)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), true
	case time.Time:
		return val.Format(time.RFC3339Nano), !val.IsZero()
	default:
		return fmt.Sprint(val), true
	}
}

// BestMatch returns the highest confidence match, or nil if none found.
func (r *DetectionResult) BestMatch() *FormatMatch {
	if len(r.Matches) == 0 {
		return nil
	}
	return &r.Matches[0]
}

// HasMatch returns true if at least one format matched.
func (r *DetectionResult) HasMatch() bool {
	return len(r.Matches) > 0
}
