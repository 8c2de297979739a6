package merge

import (
	"time"

	"github.com/ccollicutt/tsmerge/pkg/series"
	"github.com/ccollicutt/tsmerge/pkg/validator"
)

// EventKind names a diagnostic point in a merge.
type EventKind string

const (
	// EventValidationCompleted fires after the validator ran. Outcome is set.
	EventValidationCompleted EventKind = "validation_completed"

	// EventIndexAlignment fires when Stack falls back to positional alignment.
	// Count is the number of aligned rows; Intervals holds each file's cadence.
	EventIndexAlignment EventKind = "index_alignment_activated"

	// EventGapsFilled fires when StationAware inserts zero rows into a group.
	// Group is the station, Count the inserted rows, Interval the cadence used.
	EventGapsFilled EventKind = "gaps_filled"

	// EventMergeCompleted fires when Run produced a result. Count is its row count.
	EventMergeCompleted EventKind = "merge_completed"
)

// Event is a diagnostic notification emitted during a merge.
type Event struct {
	Kind      EventKind
	Mode      series.Mode
	Files     []string
	Group     string
	Count     int
	Interval  time.Duration
	Intervals map[string]time.Duration
	Outcome   *validator.Outcome
}

// Observer receives diagnostic events. Observe is called synchronously from
// the merging goroutine.
type Observer interface {
	Observe(e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(e Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) {
	f(e)
}

type multiObserver []Observer

func (m multiObserver) Observe(e Event) {
	for _, o := range m {
		o.Observe(e)
	}
}

// Observers fans events out to every non-nil observer.
func Observers(obs ...Observer) Observer {
	out := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}
