package merge

import (
	"sort"
	"strconv"
	"time"

	"github.com/ccollicutt/tsmerge/pkg/identifier"
	"github.com/ccollicutt/tsmerge/pkg/series"
)

// DensityFactor is the fraction of the target granularity that consecutive
// instants of a cross-station result must be apart.
const DensityFactor = 0.9

// stationGroup is the set of files recorded by one station.
type stationGroup struct {
	key     string
	tag     string
	station bool
	files   []int
	columns []string
	samples []series.Sample
}

// StationAware merges files per station, then stacks the stations.
//
// Files are grouped by station ID; files without one form their own group.
// Within a group of several files the rows are concatenated in time order and
// sampling gaps are filled with zeros (see FillGaps). When more than one group
// exists, the groups are aligned on a shared axis no finer than the coarsest
// group's cadence, columns are qualified with the station tag, and a station
// without a row at an instant contributes nil for each of its columns. With a
// single group its merged series is returned with unqualified column names.
func StationAware(files []series.ParsedFile, opts ...Option) (*series.MergedResult, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	o := newOptions(opts)
	timeCol := files[0].TimeColumn()
	groups := groupByStation(files, fileTags(files))

	for _, g := range groups {
		g.merge(files, o)
	}

	if len(groups) == 1 {
		g := groups[0]
		seen := make(map[string]struct{}, len(g.columns))
		for _, c := range g.columns {
			seen[c] = struct{}{}
		}
		return &series.MergedResult{
			Columns:     series.SortedColumns(timeCol, seen),
			Rows:        records(g.samples, timeCol),
			TimeColumn:  timeCol,
			SourceFiles: labels(files),
		}, nil
	}

	return stackStations(groups, files, timeCol), nil
}

func groupByStation(files []series.ParsedFile, tags []string) []*stationGroup {
	var groups []*stationGroup
	byStation := make(map[string]*stationGroup)

	for i := range files {
		id := files[i].Source().StationID()
		if id == "" {
			groups = append(groups, &stationGroup{key: files[i].Label, tag: tags[i], files: []int{i}})
			continue
		}
		g, ok := byStation[id]
		if !ok {
			g = &stationGroup{key: id, tag: id, station: true}
			byStation[id] = g
			groups = append(groups, g)
		}
		g.files = append(g.files, i)
	}

	uniqueGroupTags(groups, files)
	return groups
}

// uniqueGroupTags keeps station IDs as tags and renames a station-less file
// whose tag is already taken, first to its label, then with a "#n" suffix.
func uniqueGroupTags(groups []*stationGroup, files []series.ParsedFile) {
	used := make(map[string]bool, len(groups))
	for _, g := range groups {
		if g.station {
			used[g.tag] = true
		}
	}

	for _, g := range groups {
		if g.station {
			continue
		}
		tag := g.tag
		if used[tag] {
			tag = identifier.StripExtension(files[g.files[0]].Label)
		}
		candidate := tag
		for n := 2; used[candidate]; n++ {
			candidate = tag + "#" + strconv.Itoa(n)
		}
		used[candidate] = true
		g.tag = candidate
	}
}

// merge builds the group's time-ordered series.
func (g *stationGroup) merge(files []series.ParsedFile, o *options) {
	perFile := make([][]series.Sample, len(g.files))
	seenCol := make(map[string]struct{})
	for n, idx := range g.files {
		perFile[n] = files[idx].Samples(o.parser)
		for _, c := range files[idx].DataColumns() {
			if _, ok := seenCol[c]; !ok {
				seenCol[c] = struct{}{}
				g.columns = append(g.columns, c)
			}
		}
	}

	if len(g.files) == 1 {
		g.samples = append([]series.Sample{}, perFile[0]...)
		series.SortSamples(g.samples)
		g.samples = collapse(g.samples)
		return
	}

	// Order files by their first parseable instant; empty files go last.
	order := make([]int, len(perFile))
	for n := range order {
		order[n] = n
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := perFile[order[a]], perFile[order[b]]
		if len(sa) == 0 || len(sb) == 0 {
			return len(sa) > 0
		}
		return sa[0].At.Before(sb[0].At)
	})

	interval := series.SampleInterval(perFile[order[0]])

	var all []series.Sample
	for _, n := range order {
		all = append(all, perFile[n]...)
	}
	series.SortSamples(all)
	all = collapse(all)

	filled, inserted := FillGaps(all, interval, g.columns)
	g.samples = filled

	if inserted > 0 {
		names := make([]string, len(g.files))
		for n, idx := range g.files {
			names[n] = files[idx].Label
		}
		o.emit(Event{
			Kind:     EventGapsFilled,
			Mode:     series.ModeStdMerge,
			Files:    names,
			Group:    g.tag,
			Count:    inserted,
			Interval: interval,
		})
	}
}

func stackStations(groups []*stationGroup, files []series.ParsedFile, timeCol string) *series.MergedResult {
	var target time.Duration
	lookups := make([]map[int64]series.Record, len(groups))
	var instants []time.Time

	for n, g := range groups {
		target = max(target, series.SampleInterval(g.samples))
		lookups[n] = make(map[int64]series.Record, len(g.samples))
		for _, s := range g.samples {
			key := s.At.UnixNano()
			if _, ok := lookups[n][key]; !ok {
				instants = append(instants, s.At)
			}
			lookups[n][key] = s.Row
		}
	}

	sort.Slice(instants, func(i, j int) bool { return instants[i].Before(instants[j]) })
	retained := thin(instants, time.Duration(float64(target)*DensityFactor))

	seen := map[string]struct{}{}
	for _, g := range groups {
		for _, c := range g.columns {
			seen[series.QualifiedName(c, g.tag)] = struct{}{}
		}
	}

	rows := make([]series.Record, len(retained))
	for i, at := range retained {
		row := series.Record{timeCol: at}
		for n, g := range groups {
			src, ok := lookups[n][at.UnixNano()]
			for _, c := range g.columns {
				var v any
				if ok {
					v = src[c]
				}
				row[series.QualifiedName(c, g.tag)] = v
			}
		}
		rows[i] = row
	}

	return &series.MergedResult{
		Columns:     series.SortedColumns(timeCol, seen),
		Rows:        rows,
		TimeColumn:  timeCol,
		SourceFiles: labels(files),
	}
}

// thin keeps the first instant and every following one at least spacing after
// the last kept instant. Equal instants are dropped. instants must be sorted.
func thin(instants []time.Time, spacing time.Duration) []time.Time {
	var out []time.Time
	for _, t := range instants {
		if len(out) > 0 {
			d := t.Sub(out[len(out)-1])
			if d <= 0 || d < spacing {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}
