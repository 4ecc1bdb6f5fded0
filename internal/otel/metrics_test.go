package otel

import (
	"context"
	"testing"
)

func TestDefaultMetricsConfig(t *testing.T) {
	cfg := DefaultMetricsConfig()
	if cfg == nil {
		t.Fatal("DefaultMetricsConfig returned nil")
	}
	if cfg.Enabled {
		t.Error("Expected metrics to be disabled by default")
	}
	if cfg.ServiceName != "uptimesquirrel-agent" {
		t.Errorf("Expected service name 'uptimesquirrel-agent', got %q", cfg.ServiceName)
	}
	if cfg.ExporterType != ExporterNone {
		t.Errorf("Expected ExporterNone, got %v", cfg.ExporterType)
	}
}

func TestNewMetrics_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultMetricsConfig()

	m, err := NewMetrics(ctx, cfg)
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}
	defer m.Shutdown(ctx)

	if m.Enabled() {
		t.Error("Expected metrics to be disabled")
	}
}

func TestNewMetrics_StdoutExporter(t *testing.T) {
	ctx := context.Background()
	cfg := &MetricsConfig{
		Enabled:      true,
		ServiceName:  "test-service",
		ExporterType: ExporterStdout,
	}

	m, err := NewMetrics(ctx, cfg)
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}
	defer m.Shutdown(ctx)

	if !m.Enabled() {
		t.Error("Expected metrics to be enabled")
	}
}

func TestRecordCollectorDuration(t *testing.T) {
	ctx := context.Background()
	cfg := &MetricsConfig{
		Enabled:      true,
		ServiceName:  "test-service",
		ExporterType: ExporterStdout,
	}

	m, err := NewMetrics(ctx, cfg)
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}
	defer m.Shutdown(ctx)

	// Should not panic for any collector/outcome combination.
	m.RecordCollectorDuration(ctx, "cpu", 0.012, true)
	m.RecordCollectorDuration(ctx, "snmp", 2.5, false)
}

func TestRecordCollectorDuration_Noop(t *testing.T) {
	m := NoopMetrics()
	// Instruments are nil on a no-op instance; recording must be safe.
	m.RecordCollectorDuration(context.Background(), "cpu", 0.01, true)
	m.RecordReportFailure(context.Background())
	m.RecordAlert(context.Background(), "cpu_high", "warning")
}

func TestRecordAlert(t *testing.T) {
	ctx := context.Background()
	cfg := &MetricsConfig{
		Enabled:      true,
		ServiceName:  "test-service",
		ExporterType: ExporterStdout,
	}

	m, err := NewMetrics(ctx, cfg)
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}
	defer m.Shutdown(ctx)

	m.RecordAlert(ctx, "disk_high", "critical")
	m.RecordReportFailure(ctx)
}

func TestSetBufferDepth(t *testing.T) {
	m := NoopMetrics()
	m.SetBufferDepth(7)
	if got := m.bufferDepth.Load(); got != 7 {
		t.Errorf("bufferDepth = %d, want 7", got)
	}
	m.SetBufferDepth(0)
	if got := m.bufferDepth.Load(); got != 0 {
		t.Errorf("bufferDepth = %d, want 0", got)
	}
}

func TestGlobalMetrics(t *testing.T) {
	// Without a global instance a no-op is returned.
	SetGlobalMetrics(nil)
	if GetGlobalMetrics() == nil {
		t.Fatal("GetGlobalMetrics must never return nil")
	}

	ctx := context.Background()
	m, err := NewMetrics(ctx, DefaultMetricsConfig())
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}
	defer m.Shutdown(ctx)

	SetGlobalMetrics(m)
	defer SetGlobalMetrics(nil)

	if GetGlobalMetrics() != m {
		t.Error("Expected the set instance to be returned")
	}
}

func TestMetricsShutdown(t *testing.T) {
	ctx := context.Background()
	cfg := &MetricsConfig{
		Enabled:      true,
		ServiceName:  "test-service",
		ExporterType: ExporterStdout,
	}

	m, err := NewMetrics(ctx, cfg)
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	if err := m.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}
