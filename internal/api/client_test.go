package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/agent"
)

func newTestClient(srvURL string) *Client {
	return NewClient(srvURL, "test-key", fastRetry())
}

func TestClientRegister(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/agent/register" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Agent-Key") != "test-key" {
			t.Error("missing agent key header")
		}

		var reg agent.Registration
		if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
			t.Fatalf("decode registration: %v", err)
		}
		if reg.Hostname != "web-01" || reg.AgentVersion != agent.Version {
			t.Errorf("registration = %+v", reg)
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(RegisterResult{Message: "registered", AgentID: "abc-123"})
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL).Register(context.Background(), agent.Registration{
		Hostname:     "web-01",
		AgentVersion: agent.Version,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.AgentID != "abc-123" {
		t.Errorf("AgentID = %q", result.AgentID)
	}
}

func TestClientReportSampleWrapsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/agent/metrics" {
			t.Errorf("path = %s", r.URL.Path)
		}

		var env struct {
			AgentVersion string        `json:"agent_version"`
			Timestamp    int64         `json:"timestamp"`
			Metrics      *agent.Sample `json:"metrics"`
		}
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		if env.AgentVersion != agent.Version {
			t.Errorf("agent_version = %q", env.AgentVersion)
		}
		if env.Timestamp != 1700000000 || env.Metrics == nil || env.Metrics.Hostname != "web-01" {
			t.Errorf("envelope = %+v", env)
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).ReportSample(context.Background(), &agent.Sample{
		Hostname:  "web-01",
		Timestamp: 1700000000,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestClientSendAlert(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/agent/alerts" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var alert agent.Alert
		if err := json.NewDecoder(r.Body).Decode(&alert); err != nil {
			t.Fatalf("decode alert: %v", err)
		}
		if alert.Type != "cpu_high" || alert.Severity != agent.SeverityWarning {
			t.Errorf("alert = %+v", alert)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).SendAlert(context.Background(), agent.Alert{
		ID:       "a1",
		Type:     "cpu_high",
		Severity: agent.SeverityWarning,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestClientFetchConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/agent/config" || r.Method != http.MethodGet {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(agent.RemoteConfig{
			ThresholdVersion:     7,
			Thresholds:           map[string]float64{"cpu": 70, "memory": 85},
			CheckIntervalSeconds: 120,
		})
	}))
	defer srv.Close()

	cfg, err := newTestClient(srv.URL).FetchConfig(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ThresholdVersion != 7 || cfg.Thresholds["cpu"] != 70 || cfg.CheckIntervalSeconds != 120 {
		t.Errorf("config = %+v", cfg)
	}
}

func TestClientFetchConfigNotImplemented(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cfg, err := newTestClient(srv.URL).FetchConfig(context.Background())
	if err != nil {
		t.Fatalf("404 should not be an error: %v", err)
	}
	if cfg != nil {
		t.Errorf("config = %+v, want nil", cfg)
	}
}

func TestClientReportSampleServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).ReportSample(context.Background(), &agent.Sample{})
	if err == nil {
		t.Fatal("expected error on 401 response")
	}
}
