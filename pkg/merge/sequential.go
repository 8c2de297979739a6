package merge

import (
	"sort"
	"time"

	"github.com/ccollicutt/tsmerge/pkg/series"
)

// accumulator collects every value written for one instant.
type accumulator struct {
	at     time.Time
	values series.Record

	// writers records which file wrote each bare column name.
	writers map[string]int

	// split marks bare names that more than one file wrote for this instant.
	split map[string]bool
}

// Sequential unions files along the time axis. Each distinct instant becomes
// one row. When two files write the same column at the same instant, both
// values are kept under "{column} [{tag}]" names; a file repeating an instant
// overwrites its own earlier value.
func Sequential(files []series.ParsedFile, opts ...Option) (*series.MergedResult, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	o := newOptions(opts)
	tags := fileTags(files)
	timeCol := files[0].TimeColumn()

	accs := make(map[int64]*accumulator)
	seen := map[string]struct{}{}

	for i := range files {
		f := &files[i]
		for _, s := range f.Samples(o.parser) {
			key := s.At.UnixNano()
			acc, ok := accs[key]
			if !ok {
				acc = &accumulator{
					at:      s.At,
					values:  series.Record{timeCol: s.At},
					writers: make(map[string]int),
					split:   make(map[string]bool),
				}
				accs[key] = acc
			}

			for _, col := range f.DataColumns() {
				v, present := s.Row[col]
				if !present || v == nil {
					continue
				}
				acc.write(col, v, i, tags)
			}
		}
	}

	ordered := make([]*accumulator, 0, len(accs))
	for _, acc := range accs {
		ordered = append(ordered, acc)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].at.Before(ordered[j].at) })

	rows := make([]series.Record, len(ordered))
	for i, acc := range ordered {
		rows[i] = acc.values
		for name := range acc.values {
			seen[name] = struct{}{}
		}
	}

	return &series.MergedResult{
		Columns:     series.SortedColumns(timeCol, seen),
		Rows:        rows,
		TimeColumn:  timeCol,
		SourceFiles: labels(files),
	}, nil
}

func (a *accumulator) write(col string, v any, file int, tags []string) {
	if a.split[col] {
		a.values[series.QualifiedName(col, tags[file])] = v
		return
	}

	prev, ok := a.writers[col]
	if !ok || prev == file {
		a.values[col] = v
		a.writers[col] = file
		return
	}

	// A second file wrote the same parameter for this instant: keep both,
	// each under its own file's tag.
	a.values[series.QualifiedName(col, tags[prev])] = a.values[col]
	delete(a.values, col)
	delete(a.writers, col)
	a.split[col] = true
	a.values[series.QualifiedName(col, tags[file])] = v
}
