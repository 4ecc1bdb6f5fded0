package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/agent"
	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/api"
	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/collect"
	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/config"
	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/events"
	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/otel"
	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/snmp"
	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/telemetry"
)

// runtime bundles everything a command needs to operate the agent.
type agentRuntime struct {
	cfg       *config.Config
	agent     *agent.Agent
	client    *api.Client
	diskStore *config.DiskConfigStore
	events    *events.EventLogger
	spool     *telemetry.Spool
	metrics   *otel.Metrics
	tracer    *otel.Tracer
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgPath)
}

func logLevel() slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// newRuntime wires the full agent from configuration: event logging,
// self-instrumentation, collectors, API client, offline buffering, and the
// optional spool.
func newRuntime(ctx context.Context) (*agentRuntime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("resolve hostname: %w", err)
	}

	ev := events.NewEventLoggerWithWriter(hostname, agent.Version, os.Stdout, logLevel())
	events.SetGlobalEventLogger(ev)
	logger := ev.Logger()

	metrics, tracer, err := setupTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return nil, err
	}

	diskStore, err := config.NewDiskConfigStore(config.DefaultDiskConfigPath, logger)
	if err != nil {
		return nil, fmt.Errorf("load disk config: %w", err)
	}

	collectors, err := buildCollectors(cfg, diskStore, logger)
	if err != nil {
		return nil, err
	}

	client := api.NewClient(cfg.API.URL, cfg.API.Key, api.DefaultRetryConfig())

	var reporter agent.Reporter = client
	var spool *telemetry.Spool
	if cfg.Telemetry.SpoolPath != "" {
		spoolCfg := telemetry.DefaultSpoolConfig()
		spoolCfg.OutputPath = cfg.Telemetry.SpoolPath
		spool, err = telemetry.NewSpool(spoolCfg)
		if err != nil {
			return nil, fmt.Errorf("open spool: %w", err)
		}
		reporter = telemetry.NewSpoolingReporter(client, spool)
	}

	buffer := telemetry.NewBuffer(config.DefaultBufferCapacity)
	shipper := telemetry.NewShipper(buffer, reporter)

	a, err := agent.New(agent.Options{
		Config:        cfg,
		Hostname:      hostname,
		Collectors:    collectors,
		Reporter:      reporter,
		ConfigFetcher: client,
		Buffer:        buffer,
		Flusher:       shipper,
		Events:        ev,
	})
	if err != nil {
		return nil, err
	}

	ev.LogConfigLoaded(cfgPath, cfg.Monitoring.IntervalSeconds, len(cfg.Services), len(cfg.SNMP))

	return &agentRuntime{
		cfg:       cfg,
		agent:     a,
		client:    client,
		diskStore: diskStore,
		events:    ev,
		spool:     spool,
		metrics:   metrics,
		tracer:    tracer,
	}, nil
}

func setupTelemetry(ctx context.Context, tc config.TelemetryConfig) (*otel.Metrics, *otel.Tracer, error) {
	exporter := otel.ExporterType(tc.Exporter)
	if exporter == "" {
		exporter = otel.ExporterNone
	}

	metrics, err := otel.NewMetrics(ctx, &otel.MetricsConfig{
		Enabled:        tc.Enabled,
		ServiceName:    "uptimesquirrel-agent",
		ServiceVersion: agent.Version,
		ExporterType:   exporter,
		OTLPEndpoint:   tc.OTLPEndpoint,
		OTLPInsecure:   tc.OTLPInsecure,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init metrics: %w", err)
	}
	otel.SetGlobalMetrics(metrics)

	tracer, err := otel.NewTracer(ctx, &otel.Config{
		Enabled:        tc.Enabled,
		ServiceName:    "uptimesquirrel-agent",
		ServiceVersion: agent.Version,
		ExporterType:   exporter,
		OTLPEndpoint:   tc.OTLPEndpoint,
		OTLPInsecure:   tc.OTLPInsecure,
		SampleRate:     1.0,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init tracer: %w", err)
	}
	otel.SetGlobalTracer(tracer)

	return metrics, tracer, nil
}

func buildCollectors(cfg *config.Config, diskStore *config.DiskConfigStore, logger *slog.Logger) ([]collect.Collector, error) {
	collectors := []collect.Collector{
		collect.NewCPUCollector(),
		collect.NewMemoryCollector(),
		collect.NewDiskCollector(diskStore),
		collect.NewDiskIOCollector(),
		collect.NewNetworkCollector(),
		collect.NewThermalCollector(),
		collect.NewProcessCollector(),
	}

	if len(cfg.Services) > 0 {
		collectors = append(collectors, collect.NewServiceCollector(cfg.Services, logger))
	}

	if len(cfg.SNMP) > 0 {
		devices := make([]snmp.Device, 0, len(cfg.SNMP))
		for _, dc := range cfg.SNMP {
			d, err := snmp.DeviceFromConfig(dc)
			if err != nil {
				return nil, err
			}
			devices = append(devices, d)
		}
		collectors = append(collectors, snmp.NewPoller(devices, logger))
	}

	return collectors, nil
}

// shutdown flushes and closes everything the runtime owns.
func (rt *agentRuntime) shutdown(ctx context.Context) {
	if rt.spool != nil {
		if err := rt.spool.Close(); err != nil {
			rt.events.Logger().Warn("spool close failed", "error", err)
		}
	}
	if rt.metrics != nil {
		if err := rt.metrics.Shutdown(ctx); err != nil {
			rt.events.Logger().Warn("metrics shutdown failed", "error", err)
		}
	}
	if rt.tracer != nil {
		if err := rt.tracer.Shutdown(ctx); err != nil {
			rt.events.Logger().Warn("tracer shutdown failed", "error", err)
		}
	}
}
