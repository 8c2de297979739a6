// Package server exposes the merge engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ccollicutt/tsmerge/internal/observability"
	"github.com/ccollicutt/tsmerge/internal/pipeline"
	"github.com/ccollicutt/tsmerge/pkg/config"
	"github.com/ccollicutt/tsmerge/pkg/identifier"
	"github.com/ccollicutt/tsmerge/pkg/loader"
	"github.com/ccollicutt/tsmerge/pkg/merge"
	"github.com/ccollicutt/tsmerge/pkg/output"
	"github.com/ccollicutt/tsmerge/pkg/series"
	"github.com/ccollicutt/tsmerge/pkg/webhook"
)

// MergeRequest is the body of POST /merge.
type MergeRequest struct {
	// Mode defaults to the configured mode.
	Mode string `json:"mode,omitempty"`

	// TimeColumn overrides the configured time column.
	TimeColumn string `json:"time_column,omitempty"`

	Files []FileUpload `json:"files"`
}

// FileUpload is one input file carried inline.
type FileUpload struct {
	Label string `json:"label"`

	// CSV is the file content, header row first.
	CSV string `json:"csv"`

	// Meta overrides any station metadata configured for the label.
	Meta *identifier.FileMeta `json:"meta,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server serves merges, health, and metrics.
type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	pipeline   *pipeline.Pipeline
	webhooks   *webhook.Client
	logger     *slog.Logger

	// notifications tracks in-flight webhook deliveries so Shutdown can wait.
	notifications sync.WaitGroup
}

// New creates a server for cfg. Metrics are registered on reg and served
// from /metrics.
func New(cfg *config.Config, reg *prometheus.Registry, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	metrics := observability.NewMetrics(reg)
	s := &Server{
		cfg: cfg,
		httpServer: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		pipeline: pipeline.New(pipeline.WithLogger(logger), pipeline.WithMetrics(metrics)),
		webhooks: webhook.NewClient(),
		logger:   logger,
	}

	mux.HandleFunc("POST /merge", s.handleMerge)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return s
}

// Run listens until ctx is canceled, then drains connections and pending
// webhook deliveries within the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", "addr", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	s.logger.Info("http server shutting down")
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully drains connections and waits for webhook deliveries.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		s.notifications.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for webhooks: %w", ctx.Err())
	}
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)

	var req MergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}

	mode := s.cfg.MergeMode()
	if req.Mode != "" {
		m, err := series.ParseMode(req.Mode)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		mode = m
	}

	files, err := s.parseFiles(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	report, err := s.pipeline.Merge(r.Context(), pipeline.Request{
		Files:  files,
		Mode:   mode,
		Parser: pipeline.Parser(&s.cfg.Time, files, s.logger),
	})
	switch {
	case errors.Is(err, merge.ErrUnknownMode):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	s.notify(report)

	status := http.StatusOK
	if report.Rejected() {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, report)
}

func (s *Server) parseFiles(req MergeRequest) ([]series.ParsedFile, error) {
	timeColumn := s.cfg.Time.Column
	if req.TimeColumn != "" {
		timeColumn = req.TimeColumn
	}

	files := make([]series.ParsedFile, 0, len(req.Files))
	for i, upload := range req.Files {
		if upload.Label == "" {
			return nil, fmt.Errorf("files[%d]: label is required", i)
		}
		f, err := loader.ParseCSV(upload.Label, []byte(upload.CSV), timeColumn)
		if err != nil {
			return nil, fmt.Errorf("files[%d] %s: %w", i, upload.Label, err)
		}
		f.Meta = upload.Meta
		if f.Meta == nil {
			f.Meta = s.cfg.MetaFor(upload.Label)
		}
		files = append(files, f)
	}
	return files, nil
}

// notify delivers the report to configured webhooks in the background.
func (s *Server) notify(report *output.Report) {
	if len(s.cfg.Webhooks) == 0 {
		return
	}

	s.notifications.Add(1)
	go func() {
		defer s.notifications.Done()
		for _, res := range s.webhooks.Notify(context.Background(), report, s.cfg.Webhooks) {
			if res.Response.Success() {
				s.logger.Info("webhook sent", "webhook", res.Name,
					"status", res.Response.StatusCode, "duration", res.Response.Duration)
			} else {
				s.logger.Warn("webhook failed", "webhook", res.Name, "error", res.Response.Error)
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
