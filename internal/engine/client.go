// Package engine talks to the external scoring service: /calculate turns a
// hand into han, fu and cost, /apply-score moves points for a win.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/riichiscore/internal/match"
	"github.com/lox/riichiscore/internal/scoring"
)

// Client calls the scoring service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) { c.logger = logger.WithPrefix("engine") }
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calculate scores a hand. An engine-reported error is returned both in the
// result and as an error wrapping scoring.ErrEngine.
func (c *Client) Calculate(ctx context.Context, req CalculateRequest) (scoring.ScoreResult, error) {
	if err := req.Validate(); err != nil {
		return scoring.ScoreResult{}, err
	}
	if req.Melds == nil {
		req.Melds = []Meld{}
	}

	var res scoring.ScoreResult
	if err := c.post(ctx, "/calculate", req, &res); err != nil {
		return scoring.ScoreResult{}, err
	}
	if err := res.Err(); err != nil {
		c.logger.Debug("Engine rejected hand", "hand", req.Hand, "error", res.Error)
		return res, err
	}
	c.logger.Debug("Hand scored", "han", res.Han, "fu", res.Fu, "main", res.Cost.Main)
	return res, nil
}

// Apply implements match.Applier against /apply-score.
func (c *Client) Apply(ctx context.Context, req match.ApplyRequest) (match.ApplyResponse, error) {
	var resp match.ApplyResponse
	if err := c.post(ctx, "/apply-score", req, &resp); err != nil {
		return match.ApplyResponse{}, err
	}
	return resp, nil
}

// Health checks that the service answers on its root path.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("engine unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("engine health: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("engine %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("engine %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}

	c.logger.Debug("Engine call", "path", path, "duration", time.Since(start))
	return nil
}
