package detector

import (
	"regexp"
	"time"
)

// TimestampFormat represents a known time-column format for detection.
type TimestampFormat struct {
	Name       string         // Human-readable name
	Pattern    *regexp.Regexp // Compiled regex (set during init)
	PatternStr string         // Pattern a whole cell must match
	Layout     string         // Go time layout; empty for numeric epochs
	Unit       time.Duration  // Unit of numeric epoch values
	Examples   []string       // Example values
	Ambiguous  bool           // True if format has date ordering ambiguity (MM/DD vs DD/MM)
}

// Numeric reports whether the format is a count of units since the Unix epoch.
func (f *TimestampFormat) Numeric() bool {
	return f.Layout == ""
}

// DefaultFormats returns the built-in time-column formats to detect.
// Formats are ordered roughly by specificity (more specific patterns first).
func DefaultFormats() []*TimestampFormat {
	formats := []*TimestampFormat{
		{
			Name:       "ISO 8601 with timezone",
			PatternStr: `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?([+-]\d{2}:\d{2}|Z)$`,
			Layout:     time.RFC3339Nano,
			Examples:   []string{"2024-01-15T10:30:00+00:00", "2024-01-15T10:30:00.123Z"},
		},
		{
			Name:       "ISO 8601",
			PatternStr: `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}$`,
			Layout:     "2006-01-02T15:04:05",
			Examples:   []string{"2024-01-15T10:30:00"},
		},
		{
			Name:       "Datetime with seconds",
			PatternStr: `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`,
			Layout:     "2006-01-02 15:04:05",
			Examples:   []string{"2024-01-15 10:30:00"},
		},
		{
			Name:       "Datetime without seconds",
			PatternStr: `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}$`,
			Layout:     "2006-01-02 15:04",
			Examples:   []string{"2024-01-15 10:30"},
		},
		{
			Name:       "Logger export 12-hour clock",
			PatternStr: `^\d{2}/\d{2}/\d{2} \d{2}:\d{2}:\d{2} [AP]M$`,
			Layout:     "01/02/06 03:04:05 PM",
			Examples:   []string{"06/14/24 03:15:00 PM"},
			Ambiguous:  true,
		},
		{
			Name:       "US date format (MM/DD/YYYY)",
			PatternStr: `^\d{2}/\d{2}/\d{4} \d{2}:\d{2}:\d{2}$`,
			Layout:     "01/02/2006 15:04:05",
			Examples:   []string{"01/15/2024 10:30:00"},
			Ambiguous:  true,
		},
		{
			Name:       "European date format (DD/MM/YYYY)",
			PatternStr: `^\d{2}/\d{2}/\d{4} \d{2}:\d{2}:\d{2}$`,
			Layout:     "02/01/2006 15:04:05",
			Examples:   []string{"15/01/2024 10:30:00"},
			Ambiguous:  true,
		},
		{
			Name:       "US date format without seconds",
			PatternStr: `^\d{2}/\d{2}/\d{4} \d{2}:\d{2}$`,
			Layout:     "01/02/2006 15:04",
			Examples:   []string{"01/15/2024 10:30"},
			Ambiguous:  true,
		},
		{
			Name:       "European date format without seconds",
			PatternStr: `^\d{2}/\d{2}/\d{4} \d{2}:\d{2}$`,
			Layout:     "02/01/2006 15:04",
			Examples:   []string{"15/01/2024 10:30"},
			Ambiguous:  true,
		},
		{
			Name:       "Date only",
			PatternStr: `^\d{4}-\d{2}-\d{2}$`,
			Layout:     "2006-01-02",
			Examples:   []string{"2024-01-15"},
		},
		{
			Name:       "Unix timestamp (seconds)",
			PatternStr: `^\d{10}(\.\d+)?$`,
			Unit:       time.Second,
			Examples:   []string{"1705315800"},
		},
		{
			Name:       "Unix timestamp (milliseconds)",
			PatternStr: `^\d{13}$`,
			Unit:       time.Millisecond,
			Examples:   []string{"1705315800000"},
		},
	}

	for _, f := range formats {
		f.Pattern = regexp.MustCompile(f.PatternStr)
	}

	return formats
}
