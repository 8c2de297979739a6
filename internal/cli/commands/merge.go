package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/tsmerge/internal/observability"
	"github.com/ccollicutt/tsmerge/internal/pipeline"
	"github.com/ccollicutt/tsmerge/pkg/config"
	"github.com/ccollicutt/tsmerge/pkg/loader"
	"github.com/ccollicutt/tsmerge/pkg/output"
	"github.com/ccollicutt/tsmerge/pkg/series"
	"github.com/ccollicutt/tsmerge/pkg/webhook"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// MergeOptions holds command-line options for the merge command.
type MergeOptions struct {
	Output  string
	OutPath string
	Mode    string
	Inputs  []string
	Verbose bool
	Quiet   bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewMergeCommand creates the merge command.
func NewMergeCommand() *cobra.Command {
	opts := &MergeOptions{}

	cmd := &cobra.Command{
		Use:   "merge <config-file>",
		Short: "Merge device files into one time series",
		Long: `Merge the input files listed in the configuration file into a single
time-aligned table.

Modes:
  sequential        - join consecutive spans of the same parameters
  stack-parameters  - place each file's parameters side by side on shared timestamps
  std-merge         - concatenate each station's files, fill gaps, then stack stations

Exit codes:
  0 - Files merged
  1 - Files rejected by compatibility validation
  2 - Configuration or runtime error`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Output format (text|json|csv), overrides the config")
	cmd.Flags().StringVar(&opts.OutPath, "out", "", "Write output to a file instead of stdout")
	cmd.Flags().StringVarP(&opts.Mode, "mode", "m", "", "Merge mode, overrides the config")
	cmd.Flags().StringSliceVarP(&opts.Inputs, "input", "i", nil, "Input file, glob, or URL, replaces the config inputs (can be repeated)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show a preview of merged rows")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", string(config.WebhookTriggerOnWarnings), "When to fire webhook (on_warnings|always|never)")

	return cmd
}

func runMerge(cmd *cobra.Command, args []string, opts *MergeOptions) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	mode, err := applyMergeOverrides(cfg, opts)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())

	files, err := loadInputs(ctx, cfg, logger)
	if err != nil {
		return err
	}

	p := pipeline.New(pipeline.WithLogger(logger))
	report, err := p.Merge(ctx, pipeline.Request{
		Files:      files,
		Mode:       mode,
		Parser:     pipeline.Parser(&cfg.Time, files, logger),
		ConfigFile: configPath,
	})
	if err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}

	formatter, err := output.NewFormatter(string(cfg.Output.Format), output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
	if err != nil {
		return err
	}

	if err := writeReport(ctx, cmd, formatter, report, cfg.Output.Path); err != nil {
		return err
	}

	sendWebhooks(ctx, cmd.ErrOrStderr(), cfg, opts, report)

	if report.Rejected() {
		ExitCode = 1
	}

	return nil
}

// applyMergeOverrides folds command-line overrides into cfg and returns the
// mode to merge with.
func applyMergeOverrides(cfg *config.Config, opts *MergeOptions) (series.Mode, error) {
	mode := cfg.MergeMode()
	if opts.Mode != "" {
		m, err := series.ParseMode(opts.Mode)
		if err != nil {
			return "", err
		}
		mode = m
	}

	if opts.Output != "" {
		cfg.Output.Format = config.OutputFormat(opts.Output)
	}
	if opts.OutPath != "" {
		cfg.Output.Path = opts.OutPath
	}
	if len(opts.Inputs) > 0 {
		cfg.Inputs = opts.Inputs
	}

	if err := cfg.RequireInputs(); err != nil {
		return "", err
	}
	return mode, nil
}

func loadInputs(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]series.ParsedFile, error) {
	ld := loader.New(
		loader.WithTimeColumn(cfg.Time.Column),
		loader.WithMetadata(cfg.MetaFor),
		loader.WithLogger(logger),
	)

	files, err := ld.LoadAll(ctx, cfg.Inputs)
	if err != nil {
		return nil, fmt.Errorf("loading inputs: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched: %v", cfg.Inputs)
	}
	return files, nil
}

// writeReport writes the report to path, or to stdout when path is empty. A
// rejected report has no rows for the CSV formatter, so its validation
// outcome goes to stderr as text instead.
func writeReport(ctx context.Context, cmd *cobra.Command, formatter output.Formatter, report *output.Report, path string) error {
	if report.Rejected() && formatter.Name() == "csv" {
		return output.NewTextFormatter(output.FormatOptions{}).Format(ctx, report, cmd.ErrOrStderr())
	}

	w := cmd.OutOrStdout()
	if path != "" {
		f, err := os.Create(path) // #nosec G304 -- output path comes from the user
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := formatter.Format(ctx, report, w); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	return nil
}

// sendWebhooks sends the report to all configured webhooks.
// Errors are logged to stderr but don't fail the merge.
func sendWebhooks(ctx context.Context, w io.Writer, cfg *config.Config, opts *MergeOptions, report *output.Report) {
	webhooks := collectWebhooks(cfg, opts)
	if len(webhooks) == 0 {
		return
	}

	for _, res := range webhook.NewClient().Notify(ctx, report, webhooks) {
		if res.Response.Success() {
			fmt.Fprintf(w, "Webhook %s: sent (%d, %s)\n", res.Name, res.Response.StatusCode, res.Response.Duration)
		} else {
			fmt.Fprintf(w, "Webhook %s: failed (%v)\n", res.Name, res.Response.Error)
		}
	}
}

// collectWebhooks merges config file webhooks with the command-line webhook.
func collectWebhooks(cfg *config.Config, opts *MergeOptions) []config.WebhookConfig {
	webhooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)
	webhooks = append(webhooks, cfg.Webhooks...)

	if opts.WebhookURL != "" {
		trigger := config.WebhookTrigger(opts.WebhookTrigger)
		if trigger == "" {
			trigger = config.WebhookTriggerOnWarnings
		}

		webhooks = append(webhooks, config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: trigger,
			Timeout: config.DefaultWebhookTimeout,
		})
	}

	return webhooks
}
