// Package webhook posts merge report summaries to HTTP endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ccollicutt/tsmerge/pkg/config"
	"github.com/ccollicutt/tsmerge/pkg/output"
	"github.com/ccollicutt/tsmerge/pkg/validator"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

const maxResponseBody = 1 << 20

// Client sends merge notifications to webhook endpoints.
type Client struct {
	httpClient *http.Client
	clock      clockwork.Clock
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock overrides the clock used to time requests.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// NewClient creates a new webhook client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		clock:      clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendOptions configures a webhook request.
type SendOptions struct {
	URL     string
	Token   string        // Bearer token (optional)
	Timeout time.Duration // Request timeout (uses DefaultTimeout if zero)
}

// Payload is the body posted to a webhook. Merged rows are left out; receivers
// get the columns and the fingerprint instead.
type Payload struct {
	Summary    output.Summary     `json:"summary"`
	Validation *validator.Outcome `json:"validation"`
	Columns    []string           `json:"columns,omitempty"`
	Metadata   output.Metadata    `json:"metadata"`
}

// NewPayload builds the webhook body for a report.
func NewPayload(report *output.Report) Payload {
	p := Payload{
		Summary:    report.Summary,
		Validation: report.Validation,
		Metadata:   report.Metadata,
	}
	if report.Result != nil {
		p.Columns = report.Result.Columns
	}
	return p
}

// Response contains the result of a webhook request.
type Response struct {
	StatusCode int
	Body       string
	Duration   time.Duration
	Error      error
}

// Success returns true if the webhook was sent successfully (2xx status).
func (r *Response) Success() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Send posts a report summary to a webhook endpoint.
func (c *Client) Send(ctx context.Context, report *output.Report, opts SendOptions) *Response {
	start := c.clock.Now()
	resp := &Response{}
	fail := func(err error) *Response {
		resp.Error = err
		resp.Duration = c.clock.Since(start)
		return resp
	}

	payload, err := json.Marshal(NewPayload(report))
	if err != nil {
		return fail(fmt.Errorf("failed to marshal report: %w", err))
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.URL, bytes.NewReader(payload))
	if err != nil {
		return fail(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "tsmerge-webhook")
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("request failed: %w", err))
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return fail(fmt.Errorf("failed to read response: %w", err))
	}

	resp.StatusCode = httpResp.StatusCode
	resp.Body = string(body)
	resp.Duration = c.clock.Since(start)

	if resp.StatusCode >= 400 {
		resp.Error = fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return resp
}

// ShouldFire reports whether a webhook with the given trigger fires for the report.
func ShouldFire(trigger config.WebhookTrigger, report *output.Report) bool {
	switch trigger {
	case config.WebhookTriggerAlways:
		return true
	case config.WebhookTriggerNever:
		return false
	default:
		return report.HasWarnings()
	}
}

// Result pairs a webhook with its response.
type Result struct {
	Name     string
	Response *Response
}

// Notify sends the report to every webhook whose trigger matches. Webhooks
// that do not fire produce no Result.
func (c *Client) Notify(ctx context.Context, report *output.Report, hooks []config.WebhookConfig) []Result {
	var results []Result
	for _, wh := range hooks {
		if !ShouldFire(wh.Trigger, report) {
			continue
		}
		name := wh.Name
		if name == "" {
			name = wh.URL
		}
		results = append(results, Result{
			Name: name,
			Response: c.Send(ctx, report, SendOptions{
				URL:     wh.URL,
				Token:   wh.Token,
				Timeout: wh.Timeout,
			}),
		})
	}
	return results
}
