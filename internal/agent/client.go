// ABOUTME: HTTP client for the inference endpoint - one POST per user turn
// ABOUTME: Sends the composed text with fixed agent/user identifiers and the conversation as session

package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// maxResponseBytes caps how much of a reply body is read
const maxResponseBytes = 4 << 20

// DefaultTimeout bounds a single request when Config.Timeout is zero
const DefaultTimeout = 120 * time.Second

// Config holds the endpoint location and the fixed identifiers sent with
// every request.
type Config struct {
	Endpoint string
	APIKey   string
	AgentID  string
	UserID   string
	Timeout  time.Duration
}

// Request is the JSON body posted to the endpoint
type Request struct {
	Message   string `json:"message"`
	AgentID   string `json:"agent_id"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// Client talks to the inference endpoint. It is stateless apart from its
// configuration and safe for concurrent use.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a Client. A nil httpClient gets one with cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		cfg:    cfg,
		http:   httpClient,
		logger: logger.With("component", "agent"),
	}
}

// Send posts message for the given session and returns the normalized
// reply text. Every failure is a *TransportError.
func (c *Client) Send(ctx context.Context, message, sessionID string) (string, error) {
	resp, err := c.Exchange(ctx, message, sessionID)
	if err != nil {
		return "", err
	}
	return Normalize(resp), nil
}

// Exchange performs the request and returns the decoded response record
// without normalizing it.
func (c *Client) Exchange(ctx context.Context, message, sessionID string) (*Response, error) {
	body, err := json.Marshal(Request{
		Message:   message,
		AgentID:   c.cfg.AgentID,
		UserID:    c.cfg.UserID,
		SessionID: sessionID,
	})
	if err != nil {
		return nil, &TransportError{Op: "request", Err: fmt.Errorf("marshaling request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Op: "request", Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("x-api-key", c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "request", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Op: "request", Err: fmt.Errorf("reading response: %w", err)}
	}

	failed := resp.StatusCode < 200 || resp.StatusCode > 299

	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		if failed {
			return nil, &TransportError{
				Op:         "status",
				StatusCode: resp.StatusCode,
				Err:        errors.New(http.StatusText(resp.StatusCode)),
			}
		}
		return nil, &TransportError{Op: "decode", Err: fmt.Errorf("parsing response: %w", err)}
	}

	// A failure envelope sent with an error status is normalized like any
	// other response; without a success flag it counts as unsuccessful.
	if failed && out.Success == nil {
		unsuccessful := false
		out.Success = &unsuccessful
	}

	c.logger.Debug("agent replied",
		"session_id", sessionID,
		"status", resp.StatusCode,
		"success", out.Succeeded(),
		"duration", time.Since(start))
	return &out, nil
}
