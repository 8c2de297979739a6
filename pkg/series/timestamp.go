package series

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultLayouts are the time layouts tried, in order, for string time values.
var DefaultLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/06 03:04:05 PM",
	"2006-01-02",
}

// TimeParser converts a time-column value into an instant.
type TimeParser interface {
	// ParseTime returns the instant and true, or false if v is not a time.
	ParseTime(v any) (time.Time, bool)
}

// TimeParserFunc adapts a function to TimeParser.
type TimeParserFunc func(v any) (time.Time, bool)

// ParseTime calls f(v).
func (f TimeParserFunc) ParseTime(v any) (time.Time, bool) {
	return f(v)
}

// LayoutParser parses string values with Go time layouts and numeric values
// as offsets from the Unix epoch.
type LayoutParser struct {
	layouts     []string
	location    *time.Location
	numericUnit time.Duration
}

// ParserOption configures a LayoutParser.
type ParserOption func(*LayoutParser)

// WithLayouts puts the given layouts ahead of DefaultLayouts.
func WithLayouts(layouts ...string) ParserOption {
	return func(p *LayoutParser) {
		p.layouts = append(append([]string{}, layouts...), p.layouts...)
	}
}

// WithLocation sets the location used for layouts without a zone (default UTC).
func WithLocation(loc *time.Location) ParserOption {
	return func(p *LayoutParser) {
		if loc != nil {
			p.location = loc
		}
	}
}

// WithNumericUnit sets the unit of numeric time values (default one second).
func WithNumericUnit(unit time.Duration) ParserOption {
	return func(p *LayoutParser) {
		if unit > 0 {
			p.numericUnit = unit
		}
	}
}

// NewParser creates a LayoutParser with the default layouts.
func NewParser(opts ...ParserOption) *LayoutParser {
	p := &LayoutParser{
		layouts:     append([]string{}, DefaultLayouts...),
		location:    time.UTC,
		numericUnit: time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseTime implements TimeParser.
func (p *LayoutParser) ParseTime(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, !val.IsZero()
	case string:
		return p.parseString(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return p.fromNumber(f)
	case float64:
		return p.fromNumber(val)
	case float32:
		return p.fromNumber(float64(val))
	case int:
		return p.fromNumber(float64(val))
	case int64:
		return p.fromNumber(float64(val))
	case int32:
		return p.fromNumber(float64(val))
	default:
		return time.Time{}, false
	}
}

func (p *LayoutParser) parseString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range p.layouts {
		if t, err := time.ParseInLocation(layout, s, p.location); err == nil {
			return t, true
		}
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return p.fromNumber(f)
	}
	return time.Time{}, false
}

func (p *LayoutParser) fromNumber(f float64) (time.Time, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, false
	}
	offset := f * float64(p.numericUnit)
	if math.Abs(offset) >= math.MaxInt64 {
		return time.Time{}, false
	}
	return time.Unix(0, 0).UTC().Add(time.Duration(offset)), true
}
