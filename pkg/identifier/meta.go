// Package identifier derives short disambiguating tags for merged input files.
package identifier

import (
	"path/filepath"
	"regexp"
	"strings"
)

// DiurnalSuffix is the trailing name token that marks a 24-hour cycle export.
const DiurnalSuffix = "24hr"

// legacyTokenCount is the number of underscore-delimited tokens in a
// project_datatype_station_station_date_date_suffix file name.
const legacyTokenCount = 7

// dateRangeRe matches a date-range token such as "2406_2407" anywhere in a label.
var dateRangeRe = regexp.MustCompile(`\d{4}_\d{4}`)

// FileMeta is structured metadata describing where and when a file was recorded.
// When supplied alongside a file it takes precedence over anything parsed from
// the file label.
type FileMeta struct {
	// StationID identifies the physical station that produced the file.
	StationID string `yaml:"station" json:"station,omitempty"`

	// RangeStart and RangeEnd are the date tokens bounding the recording window.
	RangeStart string `yaml:"range_start" json:"range_start,omitempty"`
	RangeEnd   string `yaml:"range_end" json:"range_end,omitempty"`

	// Diurnal marks a file covering one repeating 24-hour window.
	Diurnal bool `yaml:"diurnal" json:"diurnal,omitempty"`
}

// DateToken returns the recording window as "start_end", or "" if unknown.
func (m FileMeta) DateToken() string {
	if m.RangeStart == "" && m.RangeEnd == "" {
		return ""
	}
	return m.RangeStart + "_" + m.RangeEnd
}

// ParseLabel extracts metadata from a legacy positional file name of the form
// project_datatype_stationA_stationB_dateA_dateB_suffix.ext. The boolean result
// reports whether the label had that shape; when it does not, only the date
// range (if any) is filled in.
func ParseLabel(label string) (FileMeta, bool) {
	stem := StripExtension(filepath.Base(label))
	tokens := strings.Split(stem, "_")

	if len(tokens) != legacyTokenCount || hasEmpty(tokens) {
		var meta FileMeta
		if m := dateRangeRe.FindString(label); m != "" {
			meta.RangeStart, meta.RangeEnd = m[:4], m[5:]
		}
		return meta, false
	}

	return FileMeta{
		StationID:  tokens[2] + "_" + tokens[3],
		RangeStart: tokens[4],
		RangeEnd:   tokens[5],
		Diurnal:    strings.EqualFold(tokens[6], DiurnalSuffix),
	}, true
}

// StripExtension removes the final extension from a label.
func StripExtension(label string) string {
	return strings.TrimSuffix(label, filepath.Ext(label))
}

func hasEmpty(tokens []string) bool {
	for _, t := range tokens {
		if t == "" {
			return true
		}
	}
	return false
}
