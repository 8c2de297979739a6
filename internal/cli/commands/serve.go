package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/tsmerge/internal/observability"
	"github.com/ccollicutt/tsmerge/internal/server"
	"github.com/ccollicutt/tsmerge/pkg/config"
)

// ServeOptions holds command-line options for the serve command.
type ServeOptions struct {
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve <config-file>",
		Short: "Run the HTTP merge service",
		Long: `Serve merges over HTTP until interrupted.

Endpoints:
  POST /merge    - merge inline CSV files; 422 when validation rejects them
  GET  /healthz  - liveness
  GET  /metrics  - Prometheus metrics

The configuration supplies the default mode, time parsing, station metadata,
and webhooks. Inputs listed in the configuration are ignored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "Listen address, overrides the config")

	return cmd
}

func runServe(cmd *cobra.Command, args []string, opts *ServeOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(ctx, args[0])
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}

	logger := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.New(cfg, reg, logger).Run(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
