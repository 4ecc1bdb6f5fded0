// Package otel provides optional OpenTelemetry self-instrumentation for
// the agent: metrics about its own collection and reporting behavior, and
// traces of the report cycle.
package otel

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// MetricsConfig holds configuration for the OpenTelemetry metrics.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active. Default: false (no-op).
	Enabled bool

	// ServiceName is the name of the service for metric attribution.
	ServiceName string

	// ServiceVersion is the version of the service.
	ServiceVersion string

	// ExporterType specifies which exporter to use.
	ExporterType ExporterType

	// OTLPEndpoint is the endpoint for OTLP exporters (e.g., "localhost:4317").
	OTLPEndpoint string

	// OTLPInsecure disables TLS for OTLP connections.
	OTLPInsecure bool

	// Attributes are additional attributes to add to all metrics.
	Attributes map[string]string
}

// DefaultMetricsConfig returns a default configuration with metrics disabled.
func DefaultMetricsConfig() *MetricsConfig {
	return &MetricsConfig{
		Enabled:      false,
		ServiceName:  "uptimesquirrel-agent",
		ExporterType: ExporterNone,
	}
}

// Metrics wraps the agent's self-instrumentation instruments.
type Metrics struct {
	config        *MetricsConfig
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	shutdown      func(context.Context) error
	mu            sync.RWMutex

	bufferDepth    atomic.Int64
	bufferGauge    metric.Int64ObservableGauge
	bufferGaugeReg metric.Registration

	collectorDuration metric.Float64Histogram
	reportFailures    metric.Int64Counter
	alertCounter      metric.Int64Counter
}

var (
	globalMetrics   *Metrics
	globalMetricsMu sync.RWMutex
)

// NewMetrics creates a new Metrics instance with the given configuration.
func NewMetrics(ctx context.Context, cfg *MetricsConfig) (*Metrics, error) {
	if cfg == nil {
		cfg = DefaultMetricsConfig()
	}

	m := &Metrics{
		config: cfg,
	}

	if !cfg.Enabled || cfg.ExporterType == ExporterNone {
		// No-op meter when disabled.
		m.meterProvider = sdkmetric.NewMeterProvider()
		m.meter = m.meterProvider.Meter(cfg.ServiceName)
		m.shutdown = func(context.Context) error { return nil }
		return m, nil
	}

	exporter, err := m.createExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics exporter: %w", err)
	}

	res, err := m.createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)

	m.meterProvider = mp
	m.meter = mp.Meter(cfg.ServiceName)
	m.shutdown = mp.Shutdown

	if err := m.registerInstruments(); err != nil {
		return nil, fmt.Errorf("failed to register metric instruments: %w", err)
	}

	return m, nil
}

// createExporter creates the appropriate metrics exporter based on configuration.
func (m *Metrics) createExporter(ctx context.Context, cfg *MetricsConfig) (sdkmetric.Exporter, error) {
	switch cfg.ExporterType {
	case ExporterStdout:
		return stdoutmetric.New()

	case ExporterOTLPGRPC:
		opts := []otlpmetricgrpc.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, opts...)

	case ExporterOTLPHTTP:
		opts := []otlpmetrichttp.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)

	default:
		return nil, fmt.Errorf("unknown exporter type: %s", cfg.ExporterType)
	}
}

// createResource creates the OpenTelemetry resource with service information.
func (m *Metrics) createResource(cfg *MetricsConfig) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
	}

	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}

	for k, v := range cfg.Attributes {
		attrs = append(attrs, attribute.String(k, v))
	}

	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes("", attrs...),
	)
}

// registerInstruments creates and registers all metric instruments.
func (m *Metrics) registerInstruments() error {
	var err error

	m.collectorDuration, err = m.meter.Float64Histogram(
		"uptimesquirrel.collector.duration",
		metric.WithDescription("Duration of one collector invocation"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create collector duration histogram: %w", err)
	}

	m.reportFailures, err = m.meter.Int64Counter(
		"uptimesquirrel.report.failures",
		metric.WithDescription("Count of failed metrics reports"),
	)
	if err != nil {
		return fmt.Errorf("failed to create report failure counter: %w", err)
	}

	m.alertCounter, err = m.meter.Int64Counter(
		"uptimesquirrel.alerts",
		metric.WithDescription("Count of raised alerts by type and severity"),
	)
	if err != nil {
		return fmt.Errorf("failed to create alert counter: %w", err)
	}

	m.bufferGauge, err = m.meter.Int64ObservableGauge(
		"uptimesquirrel.buffer.depth",
		metric.WithDescription("Current offline buffer depth"),
	)
	if err != nil {
		return fmt.Errorf("failed to create buffer depth gauge: %w", err)
	}

	m.bufferGaugeReg, err = m.meter.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(m.bufferGauge, m.bufferDepth.Load())
			return nil
		},
		m.bufferGauge,
	)
	if err != nil {
		return fmt.Errorf("failed to register buffer depth callback: %w", err)
	}

	return nil
}

// RecordCollectorDuration records one collector invocation.
func (m *Metrics) RecordCollectorDuration(ctx context.Context, collector string, seconds float64, success bool) {
	if m.collectorDuration == nil {
		return
	}

	m.collectorDuration.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("collector", collector),
		attribute.Bool("success", success),
	))
}

// RecordReportFailure increments the failed report counter.
func (m *Metrics) RecordReportFailure(ctx context.Context) {
	if m.reportFailures == nil {
		return
	}

	m.reportFailures.Add(ctx, 1)
}

// RecordAlert counts a raised alert.
func (m *Metrics) RecordAlert(ctx context.Context, alertType, severity string) {
	if m.alertCounter == nil {
		return
	}

	m.alertCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", alertType),
		attribute.String("severity", severity),
	))
}

// SetBufferDepth sets the current offline buffer depth for the observable
// gauge. Thread-safe; read by the gauge callback.
func (m *Metrics) SetBufferDepth(depth int) {
	m.bufferDepth.Store(int64(depth))
}

// Shutdown gracefully shuts down the metrics provider, flushing any pending metrics.
func (m *Metrics) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.bufferGaugeReg != nil {
		if err := m.bufferGaugeReg.Unregister(); err != nil {
			return fmt.Errorf("failed to unregister buffer depth callback: %w", err)
		}
	}

	if m.shutdown != nil {
		return m.shutdown(ctx)
	}
	return nil
}

// Enabled returns whether metrics collection is enabled.
func (m *Metrics) Enabled() bool {
	return m.config.Enabled && m.config.ExporterType != ExporterNone
}

// MeterProvider returns the underlying meter provider.
func (m *Metrics) MeterProvider() *sdkmetric.MeterProvider {
	return m.meterProvider
}

// SetGlobalMetrics sets the global metrics instance.
func SetGlobalMetrics(m *Metrics) {
	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	globalMetrics = m

	if m != nil && m.Enabled() {
		otel.SetMeterProvider(m.meterProvider)
	}
}

// GetGlobalMetrics returns the global metrics instance.
// Returns a no-op metrics instance if none has been set.
func GetGlobalMetrics() *Metrics {
	globalMetricsMu.RLock()
	defer globalMetricsMu.RUnlock()

	if globalMetrics == nil {
		return NoopMetrics()
	}

	return globalMetrics
}

// NoopMetrics returns a metrics instance that does nothing (for testing or when disabled).
func NoopMetrics() *Metrics {
	cfg := DefaultMetricsConfig()
	mp := sdkmetric.NewMeterProvider()
	return &Metrics{
		config:        cfg,
		meterProvider: mp,
		meter:         mp.Meter(cfg.ServiceName),
		shutdown:      func(context.Context) error { return nil },
	}
}
