package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/tsmerge/pkg/series"
)

// ErrNoInputs is returned by RequireInputs when the config lists no inputs.
var ErrNoInputs = errors.New("inputs: at least one input is required")

// Load reads and validates a configuration file.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// RequireInputs checks that the config names something to merge.
func (c *Config) RequireInputs() error {
	if len(c.Inputs) == 0 {
		return ErrNoInputs
	}
	return nil
}

// Validate checks a configuration for errors and fills in defaults.
func Validate(cfg *Config) error {
	if cfg.Mode == "" {
		cfg.Mode = string(DefaultMode)
	}
	mode, err := series.ParseMode(cfg.Mode)
	if err != nil {
		return fmt.Errorf("mode: %w", err)
	}
	cfg.mode = mode

	for i, in := range cfg.Inputs {
		if strings.TrimSpace(in) == "" {
			return fmt.Errorf("inputs[%d]: must not be empty", i)
		}
	}

	if err := validateTime(&cfg.Time); err != nil {
		return fmt.Errorf("time: %w", err)
	}

	for label, meta := range cfg.Stations {
		if meta.StationID == "" && meta.DateToken() == "" {
			return fmt.Errorf("stations[%s]: station or range_start/range_end is required", label)
		}
	}

	if err := validateOutput(&cfg.Output); err != nil {
		return fmt.Errorf("output: %w", err)
	}

	if err := validateLogging(&cfg.Logging); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	if err := validateServer(&cfg.Server); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := validateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

func validateTime(tc *TimeConfig) error {
	for i, layout := range tc.Layouts {
		if layout == "" {
			return fmt.Errorf("layouts[%d]: must not be empty", i)
		}
	}

	tc.location = time.UTC
	if tc.Location != "" {
		loc, err := time.LoadLocation(tc.Location)
		if err != nil {
			return fmt.Errorf("invalid location: %w", err)
		}
		tc.location = loc
	}

	if tc.NumericUnit < 0 {
		return fmt.Errorf("numeric_unit must be positive, got %s", tc.NumericUnit)
	}
	if tc.NumericUnit == 0 {
		tc.NumericUnit = time.Second
	}

	return nil
}

func validateOutput(oc *OutputConfig) error {
	switch oc.Format {
	case "":
		oc.Format = DefaultOutputFormat
	case OutputFormatText, OutputFormatJSON, OutputFormatCSV:
		// Valid
	default:
		return fmt.Errorf("invalid format %q (must be text, json, or csv)", oc.Format)
	}
	return nil
}

func validateLogging(lc *LoggingConfig) error {
	lc.Level = strings.ToLower(lc.Level)
	switch lc.Level {
	case "":
		lc.Level = DefaultLogLevel
	case "debug", "info", "warn", "error":
		// Valid
	default:
		return fmt.Errorf("invalid level %q (must be debug, info, warn, or error)", lc.Level)
	}

	lc.Format = strings.ToLower(lc.Format)
	switch lc.Format {
	case "":
		lc.Format = DefaultLogFormat
	case "text", "json":
		// Valid
	default:
		return fmt.Errorf("invalid format %q (must be text or json)", lc.Format)
	}
	return nil
}

func validateServer(sc *ServerConfig) error {
	if sc.Addr == "" {
		sc.Addr = DefaultServerAddr
	}
	if sc.ShutdownTimeout <= 0 {
		sc.ShutdownTimeout = DefaultShutdownTimeout
	}
	if sc.MaxBodyBytes < 0 {
		return fmt.Errorf("max_body_bytes must be positive, got %d", sc.MaxBodyBytes)
	}
	if sc.MaxBodyBytes == 0 {
		sc.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return nil
}

func validateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	wh.Token = expandEnvVar(wh.Token)

	switch wh.Trigger {
	case "":
		wh.Trigger = WebhookTriggerOnWarnings
	case WebhookTriggerOnWarnings, WebhookTriggerAlways, WebhookTriggerNever:
		// Valid
	default:
		return fmt.Errorf("invalid trigger %q (must be on_warnings, always, or never)", wh.Trigger)
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

// expandEnvVar expands a token given as ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}
	if strings.HasPrefix(s, "$") {
		return os.Getenv(s[1:])
	}
	return s
}
