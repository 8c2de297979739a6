// Package config provides configuration loading and validation for tsmerge.
package config

import (
	"path/filepath"
	"time"

	"github.com/ccollicutt/tsmerge/pkg/identifier"
	"github.com/ccollicutt/tsmerge/pkg/series"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	// Inputs are file paths, glob patterns, or URLs of device files to merge.
	Inputs []string `yaml:"inputs"`

	// Mode is one of sequential, stack-parameters, or std-merge.
	Mode string `yaml:"mode"`

	Time     TimeConfig                     `yaml:"time"`
	Stations map[string]identifier.FileMeta `yaml:"stations,omitempty"`
	Output   OutputConfig                   `yaml:"output"`
	Logging  LoggingConfig                  `yaml:"logging"`
	Server   ServerConfig                   `yaml:"server"`
	Webhooks []WebhookConfig                `yaml:"webhooks,omitempty"`

	// mode is the parsed Mode (populated during validation).
	mode series.Mode
}

// MergeMode returns the validated merge mode.
func (c *Config) MergeMode() series.Mode {
	return c.mode
}

// MetaFor returns the structured metadata configured for a file label, or nil.
// Entries may be keyed by the full label or its base name.
func (c *Config) MetaFor(label string) *identifier.FileMeta {
	if meta, ok := c.Stations[label]; ok {
		return &meta
	}
	if meta, ok := c.Stations[filepath.Base(label)]; ok {
		return &meta
	}
	return nil
}

// TimeConfig defines how time-column values are read.
type TimeConfig struct {
	// Column names the time column. When set, it is moved to the front of
	// every loaded file. When empty, the first column is used.
	Column string `yaml:"column,omitempty"`

	// Layouts are Go time layouts tried before the built-in ones.
	// See https://pkg.go.dev/time#pkg-constants for format.
	Layouts []string `yaml:"layouts,omitempty"`

	// Location is the IANA zone for layouts without an offset. Defaults to UTC.
	Location string `yaml:"location,omitempty"`

	// NumericUnit is the unit of numeric time values counted from the Unix epoch.
	// Defaults to 1s.
	NumericUnit time.Duration `yaml:"numeric_unit,omitempty"`

	// location is the loaded Location (populated during validation).
	location *time.Location
}

// Parser builds the time parser described by this configuration. Extra
// options are applied last.
func (t *TimeConfig) Parser(extra ...series.ParserOption) *series.LayoutParser {
	opts := []series.ParserOption{
		series.WithLayouts(t.Layouts...),
		series.WithLocation(t.location),
		series.WithNumericUnit(t.NumericUnit),
	}
	return series.NewParser(append(opts, extra...)...)
}

// OutputFormat selects how a merge report is written.
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatCSV  OutputFormat = "csv"
)

// OutputConfig defines where and how results are written.
type OutputConfig struct {
	Format OutputFormat `yaml:"format,omitempty"`

	// Path is the destination file. Empty writes to stdout.
	Path string `yaml:"path,omitempty"`
}

// LoggingConfig defines the process logger.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level,omitempty"`

	// Format is text or json.
	Format string `yaml:"format,omitempty"`
}

// ServerConfig defines the HTTP merge service.
type ServerConfig struct {
	Addr            string        `yaml:"addr,omitempty"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout,omitempty"`

	// MaxBodyBytes caps the size of a merge request body.
	MaxBodyBytes int64 `yaml:"max_body_bytes,omitempty"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnWarnings fires when validation produced warnings or errors (default).
	WebhookTriggerOnWarnings WebhookTrigger = "on_warnings"
	// WebhookTriggerAlways fires after every merge.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for sending merge reports.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token for authentication.
	Token string `yaml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_warnings" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}
