// Package observability wires process logging and Prometheus metrics to the
// merge engine's diagnostic events.
package observability

import (
	"io"
	"log/slog"
	"strings"

	"github.com/ccollicutt/tsmerge/pkg/merge"
	"github.com/ccollicutt/tsmerge/pkg/series"
	"github.com/ccollicutt/tsmerge/pkg/validator"
)

// NewLogger creates a structured logger writing to w.
func NewLogger(level, format string, w io.Writer) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: logLevel == slog.LevelDebug,
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With("service", "tsmerge")
}

// LogObserver writes merge events to a logger.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates a LogObserver.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

// Observe implements merge.Observer.
func (o *LogObserver) Observe(e merge.Event) {
	switch e.Kind {
	case merge.EventValidationCompleted:
		o.validation(e)

	case merge.EventIndexAlignment:
		attrs := []any{"mode", e.Mode, "rows", e.Count}
		for label, interval := range e.Intervals {
			attrs = append(attrs, slog.Duration("interval."+label, interval))
		}
		o.logger.Warn("no shared timestamps between diurnal files, aligning rows by position", attrs...)

	case merge.EventGapsFilled:
		o.logger.Info("filled sampling gaps with zero rows",
			"station", e.Group,
			"inserted", e.Count,
			"interval", e.Interval,
			"files", e.Files,
		)

	case merge.EventMergeCompleted:
		o.logger.Info("merge completed",
			"mode", e.Mode,
			"files", len(e.Files),
			"rows", e.Count,
		)
	}
}

func (o *LogObserver) validation(e merge.Event) {
	out := e.Outcome
	if out == nil {
		return
	}
	for _, w := range out.Warnings {
		o.logger.Warn("validation warning", "mode", e.Mode, "warning", w)
	}
	if !out.IsValid() {
		o.logger.Error("validation failed", "mode", e.Mode, "errors", out.Errors)
		return
	}
	o.logger.Debug("validation passed", "mode", e.Mode, "files", e.Files, "warnings", len(out.Warnings))
}

// LogOutcome writes a standalone validation outcome, as produced without a merge.
func LogOutcome(logger *slog.Logger, mode series.Mode, out *validator.Outcome) {
	NewLogObserver(logger).validation(merge.Event{
		Kind:    merge.EventValidationCompleted,
		Mode:    mode,
		Outcome: out,
	})
}
