// Package api implements the HTTP client for the UptimeSquirrel agent API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/otel"
)

const maxResponseBodyBytes = 64 * 1024

// RetryConfig controls retry behavior for API requests.
type RetryConfig struct {
	MaxRetries int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// DefaultRetryConfig matches the agent's historical retry policy: three
// attempts with doubling backoff starting at one second.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		Backoff:    time.Second,
		MaxBackoff: 8 * time.Second,
	}
}

// RetryHTTPClient wraps an http.Client with bounded exponential backoff.
// Transport errors, 429 and 5xx responses are retried; other responses are
// returned to the caller as-is.
type RetryHTTPClient struct {
	baseURL    string
	httpClient *http.Client
	config     RetryConfig
	agentKey   string
	userAgent  string
}

func NewRetryHTTPClient(baseURL string, httpClient *http.Client, config RetryConfig) *RetryHTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &RetryHTTPClient{
		baseURL:    baseURL,
		httpClient: httpClient,
		config:     config,
	}
}

// SetAgentKey sets the X-Agent-Key header sent with every request.
func (c *RetryHTTPClient) SetAgentKey(key string) {
	c.agentKey = key
}

// SetUserAgent sets the User-Agent header sent with every request.
func (c *RetryHTTPClient) SetUserAgent(ua string) {
	c.userAgent = ua
}

func (c *RetryHTTPClient) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	var jsonBytes []byte
	if body != nil {
		var err error
		jsonBytes, err = json.Marshal(body)
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(jsonBytes)), nil
	}
	return c.Do(req)
}

func (c *RetryHTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

func (c *RetryHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if c.agentKey != "" && req.Header.Get("X-Agent-Key") == "" {
		req.Header.Set("X-Agent-Key", c.agentKey)
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	otel.InjectHeaders(req.Context(), req.Header, otel.GetGlobalTracer())

	var lastErr error
	backoff := c.config.Backoff

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(backoff):
				backoff *= 2
				if backoff > c.config.MaxBackoff {
					backoff = c.config.MaxBackoff
				}
			}
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					lastErr = err
					continue
				}
				req.Body = body
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = &RetryableError{StatusCode: resp.StatusCode}
			resp.Body.Close()
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// BaseURL returns the configured base URL.
func (c *RetryHTTPClient) BaseURL() string {
	return c.baseURL
}

// RetryableError marks responses that exhausted the retry budget.
type RetryableError struct {
	StatusCode int
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable status %d", e.StatusCode)
}

// ReadResponseBody reads and closes a response body, truncating it to a
// sane size for inclusion in error messages.
func ReadResponseBody(resp *http.Response) ([]byte, error) {
	if resp == nil || resp.Body == nil {
		return nil, nil
	}
	defer resp.Body.Close()
	limited := io.LimitReader(resp.Body, maxResponseBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if len(body) > maxResponseBodyBytes {
		body = body[:maxResponseBodyBytes]
	}
	return body, nil
}
