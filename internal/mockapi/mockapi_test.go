package mockapi

import (
	"context"
	"testing"
	"time"

	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/agent"
	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/api"
)

func fastRetry() api.RetryConfig {
	return api.RetryConfig{
		MaxRetries: 2,
		Backoff:    time.Millisecond,
		MaxBackoff: 4 * time.Millisecond,
	}
}

func startServer(t *testing.T, cfg *Config) Server {
	t.Helper()
	srv := New(cfg)
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Stop(ctx)
	})
	return srv
}

func TestServerRecordsFullAgentFlow(t *testing.T) {
	srv := startServer(t, nil)
	client := api.NewClient(srv.BaseURL(), "", fastRetry())
	ctx := context.Background()

	result, err := client.Register(ctx, agent.Registration{Hostname: "web-01", AgentVersion: agent.Version})
	if err != nil {
		t.Fatal(err)
	}
	if result.AgentID == "" {
		t.Error("registration should yield an agent ID")
	}

	if err := client.ReportSample(ctx, &agent.Sample{Hostname: "web-01", Timestamp: 1700000000}); err != nil {
		t.Fatal(err)
	}
	if err := client.SendAlert(ctx, agent.Alert{ID: "a1", Type: "cpu_high"}); err != nil {
		t.Fatal(err)
	}

	if regs := srv.Registrations(); len(regs) != 1 || regs[0].Hostname != "web-01" {
		t.Errorf("registrations = %+v", regs)
	}
	samples := srv.Samples()
	if len(samples) != 1 || samples[0].AgentVersion != agent.Version {
		t.Errorf("samples = %+v", samples)
	}
	if alerts := srv.Alerts(); len(alerts) != 1 || alerts[0].Type != "cpu_high" {
		t.Errorf("alerts = %+v", alerts)
	}
}

func TestServerAgentKeyEnforcement(t *testing.T) {
	srv := startServer(t, &Config{Addr: "127.0.0.1:0", AgentKey: "secret"})
	ctx := context.Background()

	wrong := api.NewClient(srv.BaseURL(), "wrong", fastRetry())
	if _, err := wrong.Register(ctx, agent.Registration{Hostname: "x"}); err == nil {
		t.Error("wrong key should be rejected")
	}

	right := api.NewClient(srv.BaseURL(), "secret", fastRetry())
	if _, err := right.Register(ctx, agent.Registration{Hostname: "x"}); err != nil {
		t.Errorf("correct key rejected: %v", err)
	}
}

func TestServerRemoteConfig(t *testing.T) {
	srv := startServer(t, nil)
	client := api.NewClient(srv.BaseURL(), "", fastRetry())
	ctx := context.Background()

	cfg, err := client.FetchConfig(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cfg != nil {
		t.Errorf("config = %+v, want nil before any is set", cfg)
	}

	srv.SetRemoteConfig(&agent.RemoteConfig{
		ThresholdVersion: 5,
		Thresholds:       map[string]float64{"cpu": 70},
	})

	cfg, err = client.FetchConfig(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cfg == nil || cfg.ThresholdVersion != 5 {
		t.Errorf("config = %+v", cfg)
	}
}

func TestServerFailureInjectionExercisesRetry(t *testing.T) {
	srv := startServer(t, nil)
	client := api.NewClient(srv.BaseURL(), "", fastRetry())
	ctx := context.Background()

	// One injected failure is absorbed by the client's retry.
	srv.FailNext(1)
	if err := client.ReportSample(ctx, &agent.Sample{Hostname: "web-01"}); err != nil {
		t.Fatalf("one failure should be retried away: %v", err)
	}

	// More failures than the retry budget surface as an error.
	srv.FailNext(10)
	if err := client.ReportSample(ctx, &agent.Sample{Hostname: "web-01"}); err == nil {
		t.Error("expected error once retries are exhausted")
	}

	if got := len(srv.Samples()); got != 1 {
		t.Errorf("recorded %d samples, want 1", got)
	}
}

func TestNormalizeAddr(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "127.0.0.1:0"},
		{":8900", "127.0.0.1:8900"},
		{"0.0.0.0:8900", "0.0.0.0:8900"},
		{"localhost:8900", "localhost:8900"},
	}
	for _, tt := range tests {
		if got := normalizeAddr(tt.in); got != tt.want {
			t.Errorf("normalizeAddr(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
