package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/tsmerge/internal/pipeline"
	"github.com/ccollicutt/tsmerge/pkg/config"
	"github.com/ccollicutt/tsmerge/pkg/identifier"
	"github.com/ccollicutt/tsmerge/pkg/loader"
	"github.com/ccollicutt/tsmerge/pkg/series"
)

// Diagnostic statuses.
const (
	statusOK      = "ok"
	statusWarning = "warning"
	statusError   = "error"
)

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Verbose bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <config-file>",
		Short: "Diagnose configuration and input file issues",
		Long: `Diagnose common configuration and input problems.

This command checks:
- Config file syntax and structure
- Input pattern matches and file readability
- Time column parsing, sampling interval, and time range per file
- File identity (tag, station, diurnal flag) used to name merged columns
- Compatibility of the inputs for the configured mode
- Webhook configuration

Example:
  tsmerge diagnose config.yaml
  tsmerge diagnose -v config.yaml  # verbose output`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, configPath string, opts *DiagnoseOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	results := []DiagnosticResult{}

	result := checkConfigExists(configPath)
	results = append(results, result)
	if result.Status == statusError {
		printDiagnostics(w, results, opts)
		return nil
	}

	cfg, result := checkConfigParseable(ctx, configPath)
	results = append(results, result)
	if result.Status == statusError {
		printDiagnostics(w, results, opts)
		return nil
	}

	inputResults, files := checkInputs(ctx, cfg)
	results = append(results, inputResults...)

	if len(files) > 0 {
		parser := pipeline.Parser(&cfg.Time, files, nil)
		results = append(results, checkFiles(files, parser)...)
		results = append(results, checkCompatibility(ctx, cfg, files, parser))
	}

	results = append(results, checkWebhooks(cfg, opts)...)

	printDiagnostics(w, results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = statusError
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"Use 'tsmerge detect <file> --write-config config.yaml' to generate a starter config",
		}
		return result
	}
	if err != nil {
		result.Status = statusError
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = statusError
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = statusError
		result.Message = "Config file is empty"
		result.Suggests = []string{
			"Use 'tsmerge detect <file> --write-config config.yaml' to generate a starter config",
		}
		return result
	}

	result.Status = statusOK
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = statusError
		result.Message = fmt.Sprintf("Failed to parse config: %v", err)
		if strings.Contains(err.Error(), "yaml") {
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			}
		}
		return nil, result
	}

	result.Status = statusOK
	result.Message = "Config file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Mode: %s", cfg.MergeMode()),
		fmt.Sprintf("Inputs: %d", len(cfg.Inputs)),
		fmt.Sprintf("Stations: %d", len(cfg.Stations)),
	}
	return cfg, result
}

// checkInputs expands each input pattern and loads every matched file.
func checkInputs(ctx context.Context, cfg *config.Config) ([]DiagnosticResult, []series.ParsedFile) {
	results := []DiagnosticResult{}

	if len(cfg.Inputs) == 0 {
		results = append(results, DiagnosticResult{
			Check:   "Inputs",
			Status:  statusError,
			Message: "No inputs defined",
			Suggests: []string{
				"Add an inputs section to your config",
				"Example: inputs:\n  - /data/loggers/*.csv",
			},
		})
		return results, nil
	}

	ld := loader.New(
		loader.WithTimeColumn(cfg.Time.Column),
		loader.WithMetadata(cfg.MetaFor),
	)

	var files []series.ParsedFile
	for _, pattern := range cfg.Inputs {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Input: %s", pattern),
		}

		locations, err := loader.ExpandGlobs([]string{pattern})
		switch {
		case err != nil:
			result.Status = statusError
			result.Message = fmt.Sprintf("Invalid glob pattern: %v", err)
		case len(locations) == 0:
			result.Status = statusWarning
			result.Message = "Pattern matches no files"
			result.Suggests = []string{
				"Check if the files exist at this path",
				"Verify the glob pattern syntax",
			}
		default:
			var failed []string
			for _, loc := range locations {
				f, err := ld.Load(ctx, loc)
				if err != nil {
					failed = append(failed, err.Error())
					continue
				}
				files = append(files, f)
				result.Details = append(result.Details, loc)
			}
			if len(failed) > 0 {
				result.Status = statusError
				result.Message = fmt.Sprintf("%d of %d file(s) could not be read", len(failed), len(locations))
				result.Details = failed
			} else {
				result.Status = statusOK
				result.Message = fmt.Sprintf("Matches %d file(s)", len(locations))
			}
		}
		results = append(results, result)
	}

	if len(files) == 0 {
		results = append(results, DiagnosticResult{
			Check:   "Input Files Summary",
			Status:  statusError,
			Message: "No readable input files found",
			Suggests: []string{
				"Ensure at least one input file exists and has a header row",
			},
		})
	}

	return results, files
}

// checkFiles reports how each file's time column parses and how the file
// will be identified in merged column names.
func checkFiles(files []series.ParsedFile, parser series.TimeParser) []DiagnosticResult {
	results := make([]DiagnosticResult, 0, len(files))
	tags := identifier.Resolve(series.Sources(files))

	for i := range files {
		f := &files[i]
		src := f.Source()
		samples := f.Samples(parser)

		result := DiagnosticResult{
			Check: fmt.Sprintf("File: %s", f.Label),
			Details: []string{
				fmt.Sprintf("Time column: %s", f.TimeColumn()),
				fmt.Sprintf("Data columns: %s", strings.Join(f.DataColumns(), ", ")),
				fmt.Sprintf("Tag: %s", tags[f.Label]),
			},
		}
		if id := src.StationID(); id != "" {
			result.Details = append(result.Details, fmt.Sprintf("Station: %s", id))
		}
		if src.IsDiurnal() {
			result.Details = append(result.Details, "Diurnal cycle: yes")
		}

		switch {
		case len(f.Rows) == 0:
			result.Status = statusWarning
			result.Message = "File has no data rows"
		case len(samples) == 0:
			result.Status = statusError
			result.Message = fmt.Sprintf("No time values parsed in column %q", f.TimeColumn())
			result.Suggests = []string{
				fmt.Sprintf("Run 'tsmerge detect %s' to find the time format", f.Label),
				"Add the layout under time.layouts in the config",
			}
		default:
			series.SortSamples(samples)
			interval := series.SampleInterval(samples)
			result.Message = fmt.Sprintf("%d/%d rows parsed, interval %s, %s to %s",
				len(samples), len(f.Rows), interval,
				samples[0].At.Format(time.RFC3339), samples[len(samples)-1].At.Format(time.RFC3339))
			result.Status = statusOK
			if len(samples) < len(f.Rows) {
				result.Status = statusWarning
				result.Suggests = []string{"Rows whose time value does not parse are skipped when merging"}
			}
		}

		results = append(results, result)
	}
	return results
}

func checkCompatibility(ctx context.Context, cfg *config.Config, files []series.ParsedFile, parser series.TimeParser) DiagnosticResult {
	result := DiagnosticResult{
		Check: fmt.Sprintf("Compatibility: %s", cfg.MergeMode()),
	}

	report, err := pipeline.New().Validate(ctx, pipeline.Request{
		Files:  files,
		Mode:   cfg.MergeMode(),
		Parser: parser,
	})
	if err != nil {
		result.Status = statusError
		result.Message = err.Error()
		return result
	}

	out := report.Validation
	switch {
	case !out.IsValid():
		result.Status = statusError
		result.Message = fmt.Sprintf("%d error(s), %d warning(s)", len(out.Errors), len(out.Warnings))
	case out.HasWarnings():
		result.Status = statusWarning
		result.Message = fmt.Sprintf("%d warning(s)", len(out.Warnings))
	default:
		result.Status = statusOK
		result.Message = fmt.Sprintf("%d file(s) can be merged", len(files))
	}
	result.Details = append(append(result.Details, out.Errors...), out.Warnings...)
	return result
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== tsmerge Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		var icon string
		switch r.Status {
		case statusOK:
			icon = "PASS"
			okCount++
		case statusWarning:
			icon = "WARN"
			warnCount++
		case statusError:
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != statusOK {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		fmt.Fprintln(w, "\nFix the errors above before merging.")
	} else if warnCount > 0 {
		fmt.Fprintln(w, "\nInputs can be merged but have warnings.")
	} else {
		fmt.Fprintln(w, "\nConfiguration looks good!")
	}
}

func checkWebhooks(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  statusOK,
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	for _, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		result := DiagnosticResult{
			Check:   fmt.Sprintf("Webhook: %s", name),
			Status:  statusOK,
			Message: fmt.Sprintf("Trigger: %s", wh.Trigger),
		}

		if strings.HasPrefix(wh.Token, "$") {
			result.Status = statusWarning
			result.Message = "Token appears to be an unresolved env var"
			result.Details = []string{wh.Token}
		} else if opts.Verbose {
			result.Details = []string{
				fmt.Sprintf("URL: %s", wh.URL),
				fmt.Sprintf("Timeout: %s", wh.Timeout),
			}
			if wh.Token != "" {
				result.Details = append(result.Details, "Token: configured")
			}
		}
		results = append(results, result)

		if opts.Verbose {
			conn := checkWebhookConnectivity(wh)
			conn.Check = fmt.Sprintf("Webhook Connectivity: %s", name)
			results = append(results, conn)
		}
	}

	return results
}

func checkWebhookConnectivity(wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(http.MethodHead, wh.URL, nil)
	if err != nil {
		result.Status = statusWarning
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}

	if wh.Token != "" {
		req.Header.Set("Authorization", "Bearer "+wh.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Status = statusWarning
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = statusOK
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = statusWarning
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{
			"The endpoint may require POST method (will work during actual webhook send)",
			"Check authentication if using a token",
		}
	}

	return result
}
