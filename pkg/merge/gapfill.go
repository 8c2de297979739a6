package merge

import (
	"time"

	"github.com/ccollicutt/tsmerge/pkg/series"
)

// GapFactor is the multiple of the sampling interval above which a gap between
// consecutive samples is filled.
const GapFactor = 1.5

// FillGaps inserts zero-valued samples wherever two consecutive samples are
// more than GapFactor intervals apart. Inserted instants start one interval
// after the earlier sample and step by interval while strictly before the
// later one. Each synthetic row holds float64(0) for every name in columns.
//
// samples must be sorted. The returned slice is new; the input is not
// modified. The second return value is the number of inserted samples.
func FillGaps(samples []series.Sample, interval time.Duration, columns []string) ([]series.Sample, int) {
	if interval <= 0 || len(samples) < 2 {
		return samples, 0
	}

	threshold := time.Duration(float64(interval) * GapFactor)
	out := make([]series.Sample, 0, len(samples))
	inserted := 0

	out = append(out, samples[0])
	for i := 1; i < len(samples); i++ {
		prev, next := samples[i-1].At, samples[i].At
		if next.Sub(prev) > threshold {
			for t := prev.Add(interval); t.Before(next); t = t.Add(interval) {
				out = append(out, series.Sample{At: t, Row: zeroRow(columns)})
				inserted++
			}
		}
		out = append(out, samples[i])
	}

	return out, inserted
}

func zeroRow(columns []string) series.Record {
	row := make(series.Record, len(columns))
	for _, c := range columns {
		row[c] = float64(0)
	}
	return row
}

// collapse merges samples that share an instant into one. Later samples win
// per column. samples must be sorted.
func collapse(samples []series.Sample) []series.Sample {
	if len(samples) < 2 {
		return samples
	}

	out := make([]series.Sample, 0, len(samples))
	for _, s := range samples {
		last := len(out) - 1
		if last >= 0 && out[last].At.Equal(s.At) {
			merged := make(series.Record, len(out[last].Row)+len(s.Row))
			for k, v := range out[last].Row {
				merged[k] = v
			}
			for k, v := range s.Row {
				if v != nil {
					merged[k] = v
				}
			}
			out[last].Row = merged
			continue
		}
		out = append(out, s)
	}
	return out
}

// records converts samples into output rows, stamping the time column with
// the normalized instant.
func records(samples []series.Sample, timeCol string) []series.Record {
	rows := make([]series.Record, len(samples))
	for i, s := range samples {
		row := make(series.Record, len(s.Row)+1)
		for k, v := range s.Row {
			row[k] = v
		}
		row[timeCol] = s.At
		rows[i] = row
	}
	return rows
}
