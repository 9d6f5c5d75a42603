package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dusk-indust/enigma/internal/agent"
)

// Client calls the agent HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("enigma: HTTP %d: %s", e.StatusCode, e.Detail)
}

// Is lets callers test a 404 with errors.Is(err, agent.ErrAgentNotFound).
func (e *APIError) Is(target error) bool {
	return target == agent.ErrAgentNotFound && e.StatusCode == http.StatusNotFound
}

// Welcome returns the server's welcome message.
func (c *Client) Welcome(ctx context.Context) (string, error) {
	var resp WelcomeResponse
	if err := c.do(ctx, http.MethodGet, "/", nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Health returns the server's health report.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListAgents returns metadata for every registered agent.
func (c *Client) ListAgents(ctx context.Context) ([]AgentInfo, error) {
	var infos []AgentInfo
	if err := c.do(ctx, http.MethodGet, "/agents", nil, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// GetAgent returns metadata for one agent.
func (c *Client) GetAgent(ctx context.Context, name string) (*AgentInfo, error) {
	var info AgentInfo
	if err := c.do(ctx, http.MethodGet, "/agents/"+url.PathEscape(name), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Process sends message to the named agent and returns its reply.
func (c *Client) Process(ctx context.Context, name, message string) (*MessageResponse, error) {
	var resp MessageResponse
	path := "/agents/" + url.PathEscape(name) + "/process"
	if err := c.do(ctx, http.MethodPost, path, MessageRequest{Message: message}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("enigma: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("enigma: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("enigma: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("enigma: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(respBody))}
		var er ErrorResponse
		if json.Unmarshal(respBody, &er) == nil && er.Detail != "" {
			apiErr.Detail = er.Detail
		}
		return apiErr
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("enigma: decode response: %w", err)
		}
	}
	return nil
}
