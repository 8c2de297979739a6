package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/tsmerge/internal/observability"
	"github.com/ccollicutt/tsmerge/internal/pipeline"
	"github.com/ccollicutt/tsmerge/pkg/config"
	"github.com/ccollicutt/tsmerge/pkg/loader"
	"github.com/ccollicutt/tsmerge/pkg/output"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file and its inputs",
		Long: `Validate a tsmerge configuration file without merging.

Checks:
  - YAML syntax
  - Required fields and value ranges
  - Station metadata entries
  - Webhook endpoints
  - Compatibility of the input files for the configured mode (when inputs match)

Exit codes:
  0 - Configuration valid and inputs compatible
  1 - Inputs rejected by compatibility validation
  2 - Configuration or runtime error`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Validating %s...\n", configPath)

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(w, "\nConfiguration valid!\n")
	fmt.Fprintf(w, "  Mode:     %s\n", cfg.MergeMode())
	fmt.Fprintf(w, "  Inputs:   %d pattern(s)\n", len(cfg.Inputs))
	fmt.Fprintf(w, "  Stations: %d\n", len(cfg.Stations))
	fmt.Fprintf(w, "  Webhooks: %d\n", len(cfg.Webhooks))

	if len(cfg.Stations) > 0 {
		labels := make([]string, 0, len(cfg.Stations))
		for label := range cfg.Stations {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		fmt.Fprintf(w, "\nStations:\n")
		for _, label := range labels {
			meta := cfg.Stations[label]
			fmt.Fprintf(w, "  - %s: station=%q range=%q diurnal=%v\n", label, meta.StationID, meta.DateToken(), meta.Diurnal)
		}
	}

	locations, err := loader.ExpandGlobs(cfg.Inputs)
	if err != nil {
		fmt.Fprintf(w, "\nWarning: Error expanding input patterns: %v\n", err)
		return nil
	}
	if len(locations) == 0 {
		fmt.Fprintf(w, "\nWarning: No files match input patterns\n")
		return nil
	}

	fmt.Fprintf(w, "\nInput files matched: %d\n", len(locations))
	for _, loc := range locations {
		fmt.Fprintf(w, "  - %s\n", loc)
	}
	fmt.Fprintln(w)

	logger := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
	files, err := loadInputs(ctx, cfg, logger)
	if err != nil {
		return err
	}

	report, err := pipeline.New(pipeline.WithLogger(logger)).Validate(ctx, pipeline.Request{
		Files:      files,
		Mode:       cfg.MergeMode(),
		Parser:     pipeline.Parser(&cfg.Time, files, logger),
		ConfigFile: configPath,
	})
	if err != nil {
		return err
	}

	if err := output.NewTextFormatter(output.FormatOptions{}).Format(ctx, report, w); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	if report.Rejected() {
		ExitCode = 1
	}
	return nil
}
