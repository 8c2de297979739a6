// Package validator checks whether a set of parsed files may be merged under a
// requested mode.
package validator

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ccollicutt/tsmerge/pkg/identifier"
	"github.com/ccollicutt/tsmerge/pkg/series"
)

const (
	// MinCommonPoints is the common time point count below which stacking warns.
	MinCommonPoints = 10

	// MinOverlapPercent is the per-file share of common time points below which stacking warns.
	MinOverlapPercent = 50.0
)

// Outcome is the result of a single validation call.
type Outcome struct {
	// Valid is false when at least one blocking error was found.
	Valid bool `json:"valid"`

	// Errors are blocking messages. A merge must not run when any are present.
	Errors []string `json:"errors"`

	// Warnings are advisory messages that never block a merge.
	Warnings []string `json:"warnings"`
}

// IsValid reports whether the merge may proceed.
func (o *Outcome) IsValid() bool {
	return o.Valid
}

// HasWarnings reports whether any advisory messages were produced.
func (o *Outcome) HasWarnings() bool {
	return len(o.Warnings) > 0
}

func (o *Outcome) errorf(format string, args ...any) {
	o.Valid = false
	o.Errors = append(o.Errors, fmt.Sprintf(format, args...))
}

func (o *Outcome) warnf(format string, args ...any) {
	o.Warnings = append(o.Warnings, fmt.Sprintf(format, args...))
}

// Validate checks files against the rules for mode. A nil parser uses
// series.NewParser().
func Validate(files []series.ParsedFile, mode series.Mode, p series.TimeParser) *Outcome {
	if p == nil {
		p = series.NewParser()
	}

	out := &Outcome{
		Valid:    true,
		Errors:   make([]string, 0),
		Warnings: make([]string, 0),
	}

	if !mode.Valid() {
		out.errorf("unknown merge mode %q", mode)
	}

	if len(files) < 2 {
		out.errorf("at least two files are required to merge (got %d)", len(files))
		return out
	}

	v := &validation{
		files:  files,
		tags:   identifier.Resolve(series.Sources(files)),
		parser: p,
		out:    out,
	}
	v.collectInstants()

	v.checkExtensions()
	v.checkTimeColumns()
	v.checkDuplicates()

	switch mode {
	case series.ModeSequential:
		v.checkSequential()
	case series.ModeStackParameters:
		v.checkStack()
	case series.ModeStdMerge:
		// Station grouping tolerates partial overlap; only the common rules apply.
	}

	return out
}

type validation struct {
	files  []series.ParsedFile
	tags   map[string]string
	parser series.TimeParser
	out    *Outcome

	// instants holds each file's parseable instants in file order.
	instants [][]time.Time
}

func (v *validation) tag(i int) string {
	return v.tags[v.files[i].Label]
}

func (v *validation) collectInstants() {
	v.instants = make([][]time.Time, len(v.files))
	for i := range v.files {
		samples := v.files[i].Samples(v.parser)
		ts := make([]time.Time, len(samples))
		for j, s := range samples {
			ts[j] = s.At
		}
		v.instants[i] = ts
	}
}

func (v *validation) checkExtensions() {
	want := strings.ToLower(filepath.Ext(v.files[0].Label))
	for i := 1; i < len(v.files); i++ {
		got := strings.ToLower(filepath.Ext(v.files[i].Label))
		if got != want {
			v.out.errorf("file type mismatch: [%s] is %q but [%s] is %q",
				v.tag(i), got, v.tag(0), want)
		}
	}
}

func (v *validation) checkTimeColumns() {
	want := v.files[0].TimeColumn()
	for i := 1; i < len(v.files); i++ {
		if got := v.files[i].TimeColumn(); got != want {
			v.out.errorf("time column mismatch: [%s] uses %q but [%s] uses %q",
				v.tag(i), got, v.tag(0), want)
		}
	}
}

// checkDuplicates flags files that repeat an instant. Merging keeps the last
// row for that instant, which may hide a data-quality problem upstream.
func (v *validation) checkDuplicates() {
	for i, ts := range v.instants {
		seen := make(map[int64]struct{}, len(ts))
		dups := 0
		for _, t := range ts {
			key := t.UnixNano()
			if _, ok := seen[key]; ok {
				dups++
				continue
			}
			seen[key] = struct{}{}
		}
		if dups > 0 {
			v.out.warnf("[%s] contains %d duplicate time point(s); later rows overwrite earlier ones",
				v.tag(i), dups)
		}
	}
}

func (v *validation) checkSequential() {
	first := v.files[0]
	firstSet := columnSet(first.DataColumns())

	for i := 1; i < len(v.files); i++ {
		f := v.files[i]
		if len(f.Columns) != len(first.Columns) {
			v.out.errorf("column count mismatch: [%s] has %d columns but [%s] has %d",
				v.tag(i), len(f.Columns), v.tag(0), len(first.Columns))
			continue
		}
		missing, extra := diff(firstSet, columnSet(f.DataColumns()))
		if len(missing) > 0 || len(extra) > 0 {
			v.out.errorf("column mismatch: [%s] differs from [%s] (missing: %s; unexpected: %s)",
				v.tag(i), v.tag(0), joinOrNone(missing), joinOrNone(extra))
		}
	}

	type span struct{ start, end time.Time }
	spans := make([]*span, len(v.instants))
	for i, ts := range v.instants {
		for _, t := range ts {
			if spans[i] == nil {
				spans[i] = &span{start: t, end: t}
				continue
			}
			if t.Before(spans[i].start) {
				spans[i].start = t
			}
			if t.After(spans[i].end) {
				spans[i].end = t
			}
		}
	}

	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			a, b := spans[i], spans[j]
			if a == nil || b == nil {
				continue
			}
			if !a.start.After(b.end) && !b.start.After(a.end) {
				v.out.warnf("time ranges of [%s] and [%s] overlap; the files may contain duplicated data",
					v.tag(i), v.tag(j))
			}
		}
	}
}

func (v *validation) checkStack() {
	common := commonInstants(v.instants)
	diurnal := identifier.AllDiurnal(series.Sources(v.files))

	if len(common) == 0 {
		if diurnal {
			v.out.warnf("no common time points between diurnal-cycle files; rows will be aligned by position")
			return
		}
		v.out.errorf("no common time points across files; stack-parameters needs shared timestamps")
		return
	}

	if diurnal {
		return
	}

	if len(common) < MinCommonPoints {
		v.out.warnf("only %d common time point(s) across files", len(common))
	}

	for i, ts := range v.instants {
		distinct := make(map[int64]struct{}, len(ts))
		for _, t := range ts {
			distinct[t.UnixNano()] = struct{}{}
		}
		if len(distinct) == 0 {
			continue
		}
		pct := float64(len(common)) / float64(len(distinct)) * 100
		if pct < MinOverlapPercent {
			v.out.warnf("only %.0f%% of [%s] time points are shared with every other file",
				pct, v.tag(i))
		}
	}
}

// commonInstants returns the instants present in every file.
func commonInstants(instants [][]time.Time) map[int64]struct{} {
	common := make(map[int64]struct{})
	if len(instants) == 0 {
		return common
	}
	for _, t := range instants[0] {
		common[t.UnixNano()] = struct{}{}
	}
	for _, ts := range instants[1:] {
		present := make(map[int64]struct{}, len(ts))
		for _, t := range ts {
			present[t.UnixNano()] = struct{}{}
		}
		for key := range common {
			if _, ok := present[key]; !ok {
				delete(common, key)
			}
		}
	}
	return common
}

func columnSet(cols []string) map[string]struct{} {
	set := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		set[c] = struct{}{}
	}
	return set
}

func diff(want, got map[string]struct{}) (missing, extra []string) {
	for c := range want {
		if _, ok := got[c]; !ok {
			missing = append(missing, c)
		}
	}
	for c := range got {
		if _, ok := want[c]; !ok {
			extra = append(extra, c)
		}
	}
	sort.Strings(missing)
	sort.Strings(extra)
	return missing, extra
}

func joinOrNone(cols []string) string {
	if len(cols) == 0 {
		return "none"
	}
	return strings.Join(cols, ", ")
}
