package merge

import (
	"time"

	"github.com/ccollicutt/tsmerge/pkg/identifier"
	"github.com/ccollicutt/tsmerge/pkg/series"
)

// Stack places the parameters of every file side by side. Each data column is
// renamed "{column} [{tag}]".
//
// Rows are emitted for the instants of the first file that every file shares.
// When there are none and every file is a diurnal-cycle export, rows are
// paired by position instead, up to the shortest file, and stamped with the
// first file's instants. Otherwise ErrNoCommonInstants is returned.
func Stack(files []series.ParsedFile, opts ...Option) (*series.MergedResult, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	o := newOptions(opts)
	tags := fileTags(files)
	timeCol := files[0].TimeColumn()

	samples := make([][]series.Sample, len(files))
	byInstant := make([]map[int64]series.Record, len(files))
	for i := range files {
		samples[i] = files[i].Samples(o.parser)
		byInstant[i] = make(map[int64]series.Record, len(samples[i]))
		for _, s := range samples[i] {
			byInstant[i][s.At.UnixNano()] = s.Row
		}
	}

	seen := map[string]struct{}{}
	for i := range files {
		for _, col := range files[i].DataColumns() {
			seen[series.QualifiedName(col, tags[i])] = struct{}{}
		}
	}

	var rows []series.Sample
	common := sharedInstants(samples[0], byInstant)
	switch {
	case len(common) > 0:
		for _, at := range common {
			row := series.Record{timeCol: at}
			for i := range files {
				stackInto(row, byInstant[i][at.UnixNano()], files[i].DataColumns(), tags[i])
			}
			rows = append(rows, series.Sample{At: at, Row: row})
		}

	case identifier.AllDiurnal(series.Sources(files)):
		n := len(samples[0])
		for _, s := range samples[1:] {
			n = min(n, len(s))
		}
		for p := 0; p < n; p++ {
			at := samples[0][p].At
			row := series.Record{timeCol: at}
			for i := range files {
				stackInto(row, samples[i][p].Row, files[i].DataColumns(), tags[i])
			}
			rows = append(rows, series.Sample{At: at, Row: row})
		}

		intervals := make(map[string]time.Duration, len(files))
		for i := range files {
			intervals[files[i].Label] = series.SampleInterval(samples[i])
		}
		o.emit(Event{
			Kind:      EventIndexAlignment,
			Mode:      series.ModeStackParameters,
			Files:     labels(files),
			Count:     n,
			Intervals: intervals,
		})

	default:
		return nil, ErrNoCommonInstants
	}

	series.SortSamples(rows)
	rows = collapse(rows)

	return &series.MergedResult{
		Columns:     series.SortedColumns(timeCol, seen),
		Rows:        records(rows, timeCol),
		TimeColumn:  timeCol,
		SourceFiles: labels(files),
	}, nil
}

// sharedInstants returns the distinct instants of first, in its order, that
// appear in every lookup.
func sharedInstants(first []series.Sample, lookups []map[int64]series.Record) []time.Time {
	var out []time.Time
	emitted := make(map[int64]struct{})
	for _, s := range first {
		key := s.At.UnixNano()
		if _, dup := emitted[key]; dup {
			continue
		}
		shared := true
		for _, l := range lookups[1:] {
			if _, ok := l[key]; !ok {
				shared = false
				break
			}
		}
		if shared {
			emitted[key] = struct{}{}
			out = append(out, s.At)
		}
	}
	return out
}

func stackInto(dst, src series.Record, cols []string, tag string) {
	for _, col := range cols {
		if v, ok := src[col]; ok && v != nil {
			dst[series.QualifiedName(col, tag)] = v
		}
	}
}
