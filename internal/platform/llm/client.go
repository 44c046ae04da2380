// Package llm is a provider-agnostic client for hosted text models. The
// request envelope is chosen from the provider name and endpoint URL so the
// same client can talk to Gemini, OpenAI-compatible chat or completion
// endpoints, and LM Studio style "input" servers.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/platform/eventlog"
)

var (
	// ErrNotConfigured means the provider settings are incomplete.
	ErrNotConfigured = errors.New("llm not configured")
	// ErrTimeout means the upstream did not answer in time.
	ErrTimeout = errors.New("llm request timed out")
	// ErrUpstream covers transport failures and non-2xx answers.
	ErrUpstream = errors.New("llm request failed")
	// ErrBadResponse means the upstream answered with a shape carrying no reply.
	ErrBadResponse = errors.New("llm response carried no reply")
)

// Options configure a Client. URL may be empty for Gemini, in which case the
// default generateContent endpoint for Model is used.
type Options struct {
	Provider     string
	Model        string
	APIKey       string
	URL          string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
	Timeout      time.Duration
}

// Image is an inline image attached to a request.
type Image struct {
	MIME string
	Data []byte
}

// Request is one completion call. Zero-valued knobs fall back to Options.
type Request struct {
	System      string
	Prompt      string
	Images      []Image
	MaxTokens   int
	Temperature *float64
}

// Result carries the extracted reply plus the raw provider response.
type Result struct {
	Reply string
	Raw   json.RawMessage
}

// Client calls one configured provider endpoint.
type Client struct {
	opts   Options
	http   *http.Client
	events *eventlog.Logger
	log    zerolog.Logger
}

// New builds a Client. events may be nil to disable call auditing.
func New(opts Options, events *eventlog.Logger, log zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		opts:   opts,
		http:   &http.Client{Timeout: timeout},
		events: events,
		log:    log,
	}
}

// Complete sends one request and extracts the textual reply.
func (c *Client) Complete(ctx context.Context, req Request) (*Result, error) {
	endpoint, body, headers, err := c.envelope(req)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	res, err := c.post(ctx, endpoint, body, headers)
	c.record(endpoint, started, res, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte, headers map[string]string) (*Result, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrBadResponse, err)
	}
	reply := strings.TrimSpace(extractReply(data))
	if reply == "" {
		c.log.Warn().Str("provider", c.opts.Provider).Msg("unexpected response format from model")
		return nil, ErrBadResponse
	}
	return &Result{Reply: reply, Raw: raw}, nil
}

func (c *Client) record(endpoint string, started time.Time, res *Result, err error) {
	payload := map[string]any{
		"provider":    c.opts.Provider,
		"model":       c.opts.Model,
		"url":         redactURL(endpoint),
		"duration_ms": time.Since(started).Milliseconds(),
	}
	if err != nil {
		payload["status"] = "error"
		payload["error"] = err.Error()
	} else {
		payload["status"] = "ok"
		payload["reply_chars"] = len(res.Reply)
	}
	c.events.Record("llm.request", payload)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// redactURL strips query parameters so API keys never reach the event log.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	u.RawQuery = ""
	return u.String()
}
