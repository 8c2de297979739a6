// Package merge aligns several parsed device files on a shared time axis and
// produces one normalized result.
//
// Three strategies are available:
//   - Sequential unions consecutive spans of the same parameters.
//   - Stack places the parameters of every file side by side on shared instants.
//   - StationAware concatenates each station's files, fills sampling gaps, then
//     stacks the stations.
//
// Run validates the input before dispatching to one of them. The mergers hold no
// state between calls and may be used from multiple goroutines.
package merge

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ccollicutt/tsmerge/pkg/identifier"
	"github.com/ccollicutt/tsmerge/pkg/series"
	"github.com/ccollicutt/tsmerge/pkg/validator"
)

var (
	// ErrNoFiles is returned when a merger is called without input.
	ErrNoFiles = errors.New("merge: no input files")

	// ErrValidation is returned by Run when the validator rejects the input.
	ErrValidation = errors.New("merge: validation failed")

	// ErrNoCommonInstants is returned by Stack when files share no instants and
	// the positional fallback does not apply.
	ErrNoCommonInstants = errors.New("merge: no common time points")

	// ErrUnknownMode is returned by Run for an unsupported mode.
	ErrUnknownMode = errors.New("merge: unknown mode")
)

// Option configures a merge call.
type Option func(*options)

type options struct {
	parser   series.TimeParser
	observer Observer
}

// WithTimeParser sets how time-column values are parsed (default series.NewParser()).
func WithTimeParser(p series.TimeParser) Option {
	return func(o *options) {
		if p != nil {
			o.parser = p
		}
	}
}

// WithObserver registers a receiver for diagnostic events.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

func newOptions(opts []Option) *options {
	o := &options{parser: series.NewParser()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) emit(e Event) {
	if o.observer != nil {
		o.observer.Observe(e)
	}
}

// Run validates files for mode and, if they pass, merges them. The outcome is
// returned whenever validation ran, including when the merge was rejected.
func Run(files []series.ParsedFile, mode series.Mode, opts ...Option) (*series.MergedResult, *validator.Outcome, error) {
	if !mode.Valid() {
		return nil, nil, fmt.Errorf("%w %q", ErrUnknownMode, mode)
	}

	o := newOptions(opts)
	outcome := validator.Validate(files, mode, o.parser)
	o.emit(Event{
		Kind:    EventValidationCompleted,
		Mode:    mode,
		Files:   labels(files),
		Outcome: outcome,
	})

	if !outcome.IsValid() {
		return nil, outcome, fmt.Errorf("%w: %s", ErrValidation, outcome.Errors[0])
	}

	var (
		result *series.MergedResult
		err    error
	)
	switch mode {
	case series.ModeSequential:
		result, err = Sequential(files, opts...)
	case series.ModeStackParameters:
		result, err = Stack(files, opts...)
	case series.ModeStdMerge:
		result, err = StationAware(files, opts...)
	}
	if err != nil {
		return nil, outcome, fmt.Errorf("%s merge: %w", mode, err)
	}

	o.emit(Event{
		Kind:  EventMergeCompleted,
		Mode:  mode,
		Files: result.SourceFiles,
		Count: len(result.Rows),
	})

	return result, outcome, nil
}

func labels(files []series.ParsedFile) []string {
	out := make([]string, len(files))
	for i := range files {
		out[i] = files[i].Label
	}
	return out
}

// fileTags resolves a tag per file and makes them unique, so qualified column
// names from different files never land on the same key.
func fileTags(files []series.ParsedFile) []string {
	resolved := identifier.Resolve(series.Sources(files))

	tags := make([]string, len(files))
	counts := make(map[string]int, len(files))
	for i := range files {
		tags[i] = resolved[files[i].Label]
		counts[tags[i]]++
	}

	used := make(map[string]bool, len(files))
	for i := range files {
		if counts[tags[i]] > 1 {
			tags[i] = identifier.StripExtension(files[i].Label)
		}
		tag := tags[i]
		for n := 2; used[tag]; n++ {
			tag = tags[i] + "#" + strconv.Itoa(n)
		}
		used[tag] = true
		tags[i] = tag
	}
	return tags
}
