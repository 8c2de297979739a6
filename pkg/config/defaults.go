package config

import (
	"os"
	"strings"
	"time"

	"github.com/ccollicutt/tsmerge/pkg/series"
)

// Default values for configuration.
const (
	DefaultMode            = series.ModeSequential
	DefaultOutputFormat    = OutputFormatText
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultServerAddr      = ":8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultMaxBodyBytes    = 32 << 20
	DefaultWebhookTimeout  = 10 * time.Second
)

// Environment variable names.
const (
	EnvInputs    = "TSMERGE_INPUTS"
	EnvMode      = "TSMERGE_MODE"
	EnvLogLevel  = "TSMERGE_LOG_LEVEL"
	EnvLogFormat = "TSMERGE_LOG_FORMAT"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Inputs: []string{},
		Mode:   string(DefaultMode),
		Time: TimeConfig{
			NumericUnit: time.Second,
		},
		Output: OutputConfig{
			Format: DefaultOutputFormat,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Server: ServerConfig{
			Addr:            DefaultServerAddr,
			ShutdownTimeout: DefaultShutdownTimeout,
			MaxBodyBytes:    DefaultMaxBodyBytes,
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if inputs := os.Getenv(EnvInputs); inputs != "" {
		c.Inputs = nil
		for _, in := range strings.Split(inputs, ",") {
			if in = strings.TrimSpace(in); in != "" {
				c.Inputs = append(c.Inputs, in)
			}
		}
	}
	if mode := os.Getenv(EnvMode); mode != "" {
		c.Mode = mode
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logging.Level = level
	}
	if format := os.Getenv(EnvLogFormat); format != "" {
		c.Logging.Format = format
	}
}
