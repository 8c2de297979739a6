package series

import (
	"sort"
	"time"
)

const (
	// DefaultInterval is returned when a series has too few samples to measure.
	DefaultInterval = time.Hour

	// IntervalSampleLimit caps how many leading rows are examined.
	IntervalSampleLimit = 100
)

// DominantInterval returns the most frequent positive gap between temporally
// adjacent instants among the first IntervalSampleLimit entries. Input order
// does not matter. Ties go to the gap seen first in time order.
func DominantInterval(instants []time.Time) time.Duration {
	if len(instants) > IntervalSampleLimit {
		instants = instants[:IntervalSampleLimit]
	}
	return dominant(instants)
}

// DetectInterval is DominantInterval over a file's rows. Rows whose time value
// does not parse are ignored.
func DetectInterval(rows []Record, timeColumn string, p TimeParser) time.Duration {
	if len(rows) > IntervalSampleLimit {
		rows = rows[:IntervalSampleLimit]
	}
	instants := make([]time.Time, 0, len(rows))
	for _, row := range rows {
		if t, ok := p.ParseTime(row[timeColumn]); ok {
			instants = append(instants, t)
		}
	}
	return dominant(instants)
}

// SampleInterval is DominantInterval over already-parsed samples.
func SampleInterval(samples []Sample) time.Duration {
	if len(samples) > IntervalSampleLimit {
		samples = samples[:IntervalSampleLimit]
	}
	instants := make([]time.Time, len(samples))
	for i, s := range samples {
		instants[i] = s.At
	}
	return dominant(instants)
}

func dominant(instants []time.Time) time.Duration {
	if len(instants) < 2 {
		return DefaultInterval
	}

	sorted := append([]time.Time{}, instants...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	counts := make(map[time.Duration]int)
	var order []time.Duration
	for i := 1; i < len(sorted); i++ {
		delta := sorted[i].Sub(sorted[i-1])
		if delta <= 0 {
			continue
		}
		if counts[delta] == 0 {
			order = append(order, delta)
		}
		counts[delta]++
	}

	if len(order) == 0 {
		return DefaultInterval
	}

	best := order[0]
	for _, d := range order[1:] {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}
