package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/agent"
)

// Client talks to the UptimeSquirrel agent API.
type Client struct {
	http *RetryHTTPClient
}

// NewClient creates a Client for the given base URL and agent key.
func NewClient(baseURL, agentKey string, retry RetryConfig) *Client {
	rc := NewRetryHTTPClient(baseURL, nil, retry)
	rc.SetAgentKey(agentKey)
	rc.SetUserAgent("UptimeSquirrel-Agent/" + agent.Version)
	return &Client{http: rc}
}

// RegisterResult is the server's response to a registration request.
type RegisterResult struct {
	Message string `json:"message"`
	AgentID string `json:"agent_id,omitempty"`
}

// Register announces the agent to the control plane.
func (c *Client) Register(ctx context.Context, reg agent.Registration) (*RegisterResult, error) {
	resp, err := c.http.Post(ctx, "/agent/register", reg)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := ReadResponseBody(resp)
		return nil, fmt.Errorf("register: %s - %s", resp.Status, string(body))
	}

	var result RegisterResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("register: decode response: %w", err)
	}
	return &result, nil
}

// metricsEnvelope is the wire format of a metrics report.
type metricsEnvelope struct {
	AgentVersion string        `json:"agent_version"`
	Timestamp    int64         `json:"timestamp"`
	Metrics      *agent.Sample `json:"metrics"`
}

// ReportSample sends one metrics sample.
func (c *Client) ReportSample(ctx context.Context, sample *agent.Sample) error {
	env := metricsEnvelope{
		AgentVersion: agent.Version,
		Timestamp:    sample.Timestamp,
		Metrics:      sample,
	}
	resp, err := c.http.Post(ctx, "/agent/metrics", env)
	if err != nil {
		return fmt.Errorf("report metrics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := ReadResponseBody(resp)
		return fmt.Errorf("report metrics: %s - %s", resp.Status, string(body))
	}
	return nil
}

// SendAlert sends one alert.
func (c *Client) SendAlert(ctx context.Context, alert agent.Alert) error {
	resp, err := c.http.Post(ctx, "/agent/alerts", alert)
	if err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := ReadResponseBody(resp)
		return fmt.Errorf("send alert: %s - %s", resp.Status, string(body))
	}
	return nil
}

// FetchConfig retrieves the remote threshold configuration. A 404 means the
// server does not implement remote configuration; that is reported as
// (nil, nil) and the agent keeps its local thresholds.
func (c *Client) FetchConfig(ctx context.Context) (*agent.RemoteConfig, error) {
	resp, err := c.http.Get(ctx, "/agent/config")
	if err != nil {
		return nil, fmt.Errorf("fetch config: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch config: unexpected status %s", resp.Status)
	}

	var cfg agent.RemoteConfig
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("fetch config: decode response: %w", err)
	}
	return &cfg, nil
}
