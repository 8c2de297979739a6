package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/tsmerge/pkg/config"
	"github.com/ccollicutt/tsmerge/pkg/detector"
	"github.com/ccollicutt/tsmerge/pkg/loader"
)

// DetectOptions holds command-line options for the detect command.
type DetectOptions struct {
	Output      string
	SampleSize  int
	ShowAll     bool
	TimeColumn  string
	WriteConfig string
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	opts := &DetectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <file>",
		Short: "Detect the time format of a device file",
		Long: `Sample the time column of a CSV device file and detect its timestamp format.

Reports the detected format with a confidence score and a ready-to-use
YAML configuration snippet. Optionally generates a starter config file with
--write-config.

Supports:
  - ISO 8601 variants (with/without timezone, fractional seconds)
  - Date and time with or without seconds
  - Logger export 12-hour clock
  - US and European day/month ordering
  - Unix timestamps (seconds and milliseconds)

Example:
  tsmerge detect North_Reef_2406_2407.csv
  tsmerge detect --time-column stamp logger.csv
  tsmerge detect -w tsmerge.yaml logger.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVarP(&opts.SampleSize, "sample", "n", 100, "Number of values to sample")
	cmd.Flags().BoolVar(&opts.ShowAll, "all", false, "Show all detected formats, not just the best match")
	cmd.Flags().StringVar(&opts.TimeColumn, "time-column", "", "Time column name (default: first column)")
	cmd.Flags().StringVarP(&opts.WriteConfig, "write-config", "w", "", "Write starter config to file (will not overwrite)")

	return cmd
}

func runDetect(cmd *cobra.Command, args []string, opts *DetectOptions) error {
	location := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	f, err := loader.New(loader.WithTimeColumn(opts.TimeColumn)).Load(ctx, location)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	d := detector.New(detector.WithSampleSize(opts.SampleSize))
	result := d.DetectFromFile(&f)

	w := cmd.OutOrStdout()
	if opts.WriteConfig != "" {
		if err := writeStarterConfig(w, result, location, opts.WriteConfig); err != nil {
			return err
		}
	}

	switch opts.Output {
	case "json":
		return outputDetectJSON(w, result, location, opts)
	default:
		return outputDetectText(w, result, location, opts)
	}
}

func outputDetectText(w io.Writer, result *detector.DetectionResult, file string, opts *DetectOptions) error {
	fmt.Fprintln(w, "=== Time Format Detection ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "File: %s\n", file)
	fmt.Fprintf(w, "Time column: %s\n", result.Column)
	fmt.Fprintf(w, "Values sampled: %d\n", result.SampledValues)
	fmt.Fprintf(w, "Values parsed: %d\n", result.ParsedValues)
	fmt.Fprintln(w)

	if !result.HasMatch() {
		fmt.Fprintln(w, "No time format detected.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Tip: The column may use an uncommon format.")
		fmt.Fprintln(w, "Add its Go layout under time.layouts in the config file.")
		return nil
	}

	best := result.BestMatch()
	fmt.Fprintf(w, "Detected Format: %s\n", best.Format.Name)
	fmt.Fprintf(w, "Confidence: %.1f%% (%d/%d values matched)\n",
		best.Confidence*100, best.MatchCount, result.SampledValues)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Sample value:\n  %s\n", best.SampleValue)
	fmt.Fprintf(w, "Parsed as: %s\n", best.ParsedTime.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintln(w)

	if best.Format.Ambiguous {
		fmt.Fprintln(w, "WARNING: This format has date ordering ambiguity (MM/DD vs DD/MM).")
		fmt.Fprintln(w, "Please verify the layout matches your files.")
		fmt.Fprintln(w)
	}
	if result.AmbiguityNote != "" {
		fmt.Fprintf(w, "Note: %s\n", result.AmbiguityNote)
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "--- Configuration snippet (copy to your config file) ---")
	fmt.Fprintln(w)
	fmt.Fprint(w, timeSnippet(result.Column, best))
	fmt.Fprintln(w)

	if opts.ShowAll && len(result.Matches) > 1 {
		fmt.Fprintln(w, "--- Alternative formats detected ---")
		for i, m := range result.Matches[1:] {
			fmt.Fprintf(w, "%d. %s (%.1f%% confidence)\n", i+2, m.Format.Name, m.Confidence*100)
			if m.Format.Numeric() {
				fmt.Fprintf(w, "   numeric_unit: %s\n", m.Format.Unit)
			} else {
				fmt.Fprintf(w, "   layout: \"%s\"\n", m.Format.Layout)
			}
		}
		fmt.Fprintln(w)
	}

	return nil
}

func timeSnippet(column string, match *detector.FormatMatch) string {
	snippet := "time:\n"
	if column != "" {
		snippet += fmt.Sprintf("  column: %s\n", column)
	}
	if match.Format.Numeric() {
		return snippet + fmt.Sprintf("  numeric_unit: %s\n", match.Format.Unit)
	}
	return snippet + fmt.Sprintf("  layouts:\n    - \"%s\"\n", match.Format.Layout)
}

// JSONMatch represents a format match in JSON output.
type JSONMatch struct {
	Name        string  `json:"name"`
	Pattern     string  `json:"pattern"`
	Layout      string  `json:"layout,omitempty"`
	NumericUnit string  `json:"numeric_unit,omitempty"`
	Confidence  float64 `json:"confidence"`
	MatchCount  int     `json:"match_count"`
	SampleValue string  `json:"sample_value"`
	Ambiguous   bool    `json:"ambiguous,omitempty"`
}

// JSONOutput represents the full JSON output.
type JSONOutput struct {
	File          string      `json:"file"`
	Column        string      `json:"column"`
	Matches       []JSONMatch `json:"matches"`
	SampledValues int         `json:"sampled_values"`
	ParsedValues  int         `json:"parsed_values"`
	AmbiguityNote string      `json:"ambiguity_note,omitempty"`
}

func outputDetectJSON(w io.Writer, result *detector.DetectionResult, file string, opts *DetectOptions) error {
	out := JSONOutput{
		File:          file,
		Column:        result.Column,
		SampledValues: result.SampledValues,
		ParsedValues:  result.ParsedValues,
		AmbiguityNote: result.AmbiguityNote,
		Matches:       make([]JSONMatch, 0),
	}

	matches := result.Matches
	if !opts.ShowAll && len(matches) > 1 {
		matches = matches[:1]
	}

	for _, m := range matches {
		jm := JSONMatch{
			Name:        m.Format.Name,
			Pattern:     m.Format.PatternStr,
			Confidence:  m.Confidence,
			MatchCount:  m.MatchCount,
			SampleValue: m.SampleValue,
			Ambiguous:   m.Format.Ambiguous,
		}
		if m.Format.Numeric() {
			jm.NumericUnit = m.Format.Unit.String()
		} else {
			jm.Layout = m.Format.Layout
		}
		out.Matches = append(out.Matches, jm)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// writeStarterConfig generates a starter config file with the detected format.
func writeStarterConfig(w io.Writer, result *detector.DetectionResult, file, configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s (will not overwrite)", configPath)
	}

	if !result.HasMatch() {
		return fmt.Errorf("cannot generate config: no time format detected")
	}

	content, err := generateStarterConfig(file, result.Column, result.BestMatch())
	if err != nil {
		return err
	}

	// #nosec G306 - config file doesn't need restrictive permissions
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(w, "Wrote starter config to: %s\n\n", configPath)
	return nil
}

// starterConfig is the subset of config.Config written by --write-config.
type starterConfig struct {
	Inputs  []string             `yaml:"inputs"`
	Mode    string               `yaml:"mode"`
	Time    config.TimeConfig    `yaml:"time"`
	Output  config.OutputConfig  `yaml:"output"`
	Logging config.LoggingConfig `yaml:"logging"`
}

// generateStarterConfig renders a YAML config for the detected format.
func generateStarterConfig(file, column string, match *detector.FormatMatch) ([]byte, error) {
	input := file
	if !strings.Contains(file, "://") {
		if abs, err := filepath.Abs(file); err == nil {
			input = abs
		}
	}

	defaults := config.DefaultConfig()
	sc := starterConfig{
		Inputs:  []string{input},
		Mode:    defaults.Mode,
		Time:    config.TimeConfig{Column: column},
		Output:  defaults.Output,
		Logging: defaults.Logging,
	}
	if match.Format.Numeric() {
		sc.Time.NumericUnit = match.Format.Unit
	} else {
		sc.Time.Layouts = []string{match.Format.Layout}
	}

	body, err := yaml.Marshal(sc)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}

	header := fmt.Sprintf(`# tsmerge configuration
# Generated by: tsmerge detect
# Detected format: %s (%.0f%% confidence)
#
# Add the other files to merge under inputs, or use globs:
#   - /data/loggers/*.csv
# Modes: sequential, stack-parameters, std-merge

`, match.Format.Name, match.Confidence*100)

	return append([]byte(header), body...), nil
}
