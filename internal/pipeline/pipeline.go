// Package pipeline runs a validated merge and wraps the outcome in a report,
// recording logs and metrics along the way. The CLI and the HTTP service both
// drive merges through it.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ccollicutt/tsmerge/internal/observability"
	"github.com/ccollicutt/tsmerge/pkg/config"
	"github.com/ccollicutt/tsmerge/pkg/detector"
	"github.com/ccollicutt/tsmerge/pkg/merge"
	"github.com/ccollicutt/tsmerge/pkg/output"
	"github.com/ccollicutt/tsmerge/pkg/series"
	"github.com/ccollicutt/tsmerge/pkg/validator"
)

// clock is a package-level time source so tests can freeze report timestamps.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Request describes one merge.
type Request struct {
	Files []series.ParsedFile
	Mode  series.Mode

	// Parser reads time-column values. Nil uses series.NewParser().
	Parser series.TimeParser

	// ConfigFile is recorded in the report metadata.
	ConfigFile string
}

// Pipeline runs merges. It is safe for concurrent use.
type Pipeline struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger (default discards).
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics records every merge on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New creates a Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Merge validates and merges the request. A merge the validator rejects is not
// an error: the returned report carries the outcome and no result.
func (p *Pipeline) Merge(ctx context.Context, req Request) (*output.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := clock.Now()
	observers := []merge.Observer{observability.NewLogObserver(p.logger)}
	if p.metrics != nil {
		observers = append(observers, p.metrics)
	}

	result, outcome, err := merge.Run(req.Files, req.Mode,
		merge.WithTimeParser(req.Parser),
		merge.WithObserver(merge.Observers(observers...)),
	)
	if err != nil && !errors.Is(err, merge.ErrValidation) {
		if outcome != nil && p.metrics != nil {
			p.metrics.MergeFailed(req.Mode)
		}
		p.logger.Error("merge failed", "mode", req.Mode, "error", err)
		return nil, err
	}

	report := p.newReport(req, outcome, result, start)
	if p.metrics != nil {
		p.metrics.ObserveDuration(req.Mode, report.Metadata.Duration)
	}
	return report, nil
}

// Validate runs only the compatibility checks and reports the outcome.
func (p *Pipeline) Validate(ctx context.Context, req Request) (*output.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !req.Mode.Valid() {
		return nil, merge.ErrUnknownMode
	}

	start := clock.Now()
	parser := req.Parser
	if parser == nil {
		parser = series.NewParser()
	}

	outcome := validator.Validate(req.Files, req.Mode, parser)
	observability.LogOutcome(p.logger, req.Mode, outcome)
	return p.newReport(req, outcome, nil, start), nil
}

func (p *Pipeline) newReport(req Request, outcome *validator.Outcome, result *series.MergedResult, start time.Time) *output.Report {
	labels := make([]string, len(req.Files))
	for i := range req.Files {
		labels[i] = req.Files[i].Label
	}

	report := output.NewReport(req.Mode, labels, outcome, result)
	report.Metadata.ConfigFile = req.ConfigFile
	report.Metadata.MergedAt = clock.Now()
	report.Metadata.Duration = clock.Since(start)
	return report
}

// Parser returns the time parser for files loaded under tc. When tc names no
// layouts, the time column of the first file is sampled and a detected
// string layout is tried first. Numeric units always come from tc.
func Parser(tc *config.TimeConfig, files []series.ParsedFile, logger *slog.Logger) series.TimeParser {
	if len(tc.Layouts) > 0 || len(files) == 0 {
		return tc.Parser()
	}

	result := detector.New().DetectFromFile(&files[0])
	best := result.BestMatch()
	if best == nil || best.Format.Numeric() {
		return tc.Parser()
	}

	if logger != nil {
		attrs := []any{
			"file", files[0].Label,
			"column", result.Column,
			"format", best.Format.Name,
			"layout", best.Format.Layout,
			"confidence", best.Confidence,
		}
		if result.AmbiguityNote != "" {
			logger.Warn("detected time format is ambiguous", append(attrs, "note", result.AmbiguityNote)...)
		} else {
			logger.Debug("detected time format", attrs...)
		}
	}
	return tc.Parser(best.ParserOptions()...)
}
