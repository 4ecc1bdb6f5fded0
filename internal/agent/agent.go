package agent

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/collect"
	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/config"
	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/events"
	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/otel"
)

// Escalation bounds: above the configured threshold an alert is a warning,
// at or above these it is critical.
const (
	criticalCPUPercent    = 90.0
	criticalMemoryPercent = 95.0
	criticalDiskPercent   = 95.0
)

// Reporter delivers samples and alerts to the control plane.
type Reporter interface {
	ReportSample(ctx context.Context, sample *Sample) error
	SendAlert(ctx context.Context, alert Alert) error
}

// ConfigFetcher retrieves remote threshold configuration. A (nil, nil)
// result means the server has none.
type ConfigFetcher interface {
	FetchConfig(ctx context.Context) (*RemoteConfig, error)
}

// OfflineBuffer holds records while the control plane is unreachable.
type OfflineBuffer interface {
	AddSample(sample *Sample) bool
	AddAlert(alert Alert)
	Len() int
}

// Flusher drains the offline buffer once connectivity returns.
type Flusher interface {
	Flush(ctx context.Context) (sent, failed int)
}

// AlertProducer is implemented by collector results that evaluate their own
// alert conditions, such as SNMP device results.
type AlertProducer interface {
	Alerts(timestamp int64) []Alert
}

// Options wires an Agent's dependencies.
type Options struct {
	Config     *config.Config
	Collectors []collect.Collector
	Reporter   Reporter

	// Hostname overrides os.Hostname, for tests.
	Hostname string

	// ConfigFetcher enables remote threshold configuration. Optional.
	ConfigFetcher ConfigFetcher

	// Buffer and Flusher enable offline buffering. Optional; without them
	// failed reports are simply dropped.
	Buffer  OfflineBuffer
	Flusher Flusher

	// Events receives lifecycle events. Defaults to the global logger.
	Events *events.EventLogger

	// MaxConsecutiveFailures caps how many failed reports in a row still
	// buffer their sample. Defaults to config.DefaultMaxConsecutiveFailures.
	MaxConsecutiveFailures int
}

// Agent runs the collection/report cycle.
type Agent struct {
	cfg        *config.Config
	hostname   string
	collectors []collect.Collector
	reporter   Reporter
	fetcher    ConfigFetcher
	buffer     OfflineBuffer
	flusher    Flusher
	events     *events.EventLogger

	maxFailures int
	now         func() time.Time

	mu                  sync.Mutex
	remote              *RemoteConfig
	checkInterval       time.Duration
	nextConfigCheck     time.Time
	consecutiveFailures int
}

// New creates an Agent. Config and Reporter are required.
func New(opts Options) (*Agent, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("agent: config is required")
	}
	if opts.Reporter == nil {
		return nil, fmt.Errorf("agent: reporter is required")
	}

	hostname := opts.Hostname
	if hostname == "" {
		h, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("agent: resolve hostname: %w", err)
		}
		hostname = h
	}

	ev := opts.Events
	if ev == nil {
		ev = events.GetGlobalEventLogger()
	}

	maxFailures := opts.MaxConsecutiveFailures
	if maxFailures <= 0 {
		maxFailures = config.DefaultMaxConsecutiveFailures
	}

	return &Agent{
		cfg:           opts.Config,
		hostname:      hostname,
		collectors:    opts.Collectors,
		reporter:      opts.Reporter,
		fetcher:       opts.ConfigFetcher,
		buffer:        opts.Buffer,
		flusher:       opts.Flusher,
		events:        ev,
		maxFailures:   maxFailures,
		now:           time.Now,
		checkInterval: time.Duration(config.DefaultConfigCheckSeconds) * time.Second,
	}, nil
}

// Hostname returns the hostname reported in samples.
func (a *Agent) Hostname() string { return a.hostname }

// ActiveThresholds returns the thresholds currently in effect. Remote
// thresholds win over the local configuration; missing remote values fall
// back to local ones.
func (a *Agent) ActiveThresholds() ActiveThresholds {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.activeThresholdsLocked()
}

func (a *Agent) activeThresholdsLocked() ActiveThresholds {
	t := ActiveThresholds{
		CPU:    a.cfg.Monitoring.CPUThreshold,
		Memory: a.cfg.Monitoring.MemoryThreshold,
		Disk:   a.cfg.Monitoring.DiskThreshold,
		Source: "local",
	}

	if a.remote == nil {
		return t
	}

	t.Version = a.remote.ThresholdVersion
	t.Source = "remote"
	if v, ok := a.remote.Thresholds["cpu"]; ok {
		t.CPU = v
	}
	if v, ok := a.remote.Thresholds["memory"]; ok {
		t.Memory = v
	}
	if v, ok := a.remote.Thresholds["disk"]; ok {
		t.Disk = v
	}
	return t
}

// AdoptRemoteConfig applies a fetched remote configuration. Thresholds are
// only adopted when the server's version is newer than the one already
// held; a stale or equal version is ignored. Returns true on adoption.
func (a *Agent) AdoptRemoteConfig(rc *RemoteConfig) bool {
	if rc == nil {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if rc.CheckIntervalSeconds > 0 {
		a.checkInterval = time.Duration(rc.CheckIntervalSeconds) * time.Second
	}

	var held int64
	if a.remote != nil {
		held = a.remote.ThresholdVersion
	}
	if rc.ThresholdVersion <= held {
		return false
	}

	a.remote = rc
	t := a.activeThresholdsLocked()
	a.events.LogThresholdsUpdated(rc.ThresholdVersion, t.CPU, t.Memory, t.Disk)
	return true
}

// CheckRemoteConfig fetches remote configuration when the check interval
// has elapsed; between checks it is a no-op. Fetch failures are non-fatal;
// the agent keeps what it has.
func (a *Agent) CheckRemoteConfig(ctx context.Context) {
	if a.fetcher == nil {
		return
	}

	a.mu.Lock()
	now := a.now()
	if now.Before(a.nextConfigCheck) {
		a.mu.Unlock()
		return
	}
	a.nextConfigCheck = now.Add(a.checkInterval)
	a.mu.Unlock()

	rc, err := a.fetcher.FetchConfig(ctx)
	if err != nil {
		a.events.Logger().Warn("remote config fetch failed", "error", err)
		return
	}
	a.AdoptRemoteConfig(rc)
}

// CollectSample runs every collector and assembles a sample. Individual
// collector failures are recorded in the sample's Errors map; they never
// fail the cycle.
func (a *Agent) CollectSample(ctx context.Context) *Sample {
	sample := &Sample{
		Hostname:         a.hostname,
		Timestamp:        a.now().Unix(),
		AgentVersion:     Version,
		ActiveThresholds: a.ActiveThresholds(),
	}

	if up, err := host.UptimeWithContext(ctx); err == nil {
		sample.Uptime = int64(up)
	}

	metrics := otel.GetGlobalMetrics()

	for _, c := range a.collectors {
		start := a.now()
		result, err := c.Collect(ctx)
		metrics.RecordCollectorDuration(ctx, c.Name(), a.now().Sub(start).Seconds(), err == nil)

		if err != nil {
			if sample.Errors == nil {
				sample.Errors = make(map[string]string)
			}
			sample.Errors[c.Name()] = err.Error()
			a.events.LogCollectorError(c.Name(), err)
			continue
		}

		switch v := result.(type) {
		case *collect.CPUMetrics:
			sample.CPU = v
		case *collect.MemoryMetrics:
			sample.Memory = v
		case map[string]collect.DiskUsage:
			sample.Disk = v
		case map[string]collect.DiskIORates:
			sample.DiskIO = v
		case map[string]collect.NetworkRates:
			sample.Network = v
		case map[string]collect.ServiceStatus:
			sample.Services = v
		case *collect.ThermalMetrics:
			sample.Sensors = v
		case *collect.ProcessMetrics:
			sample.Processes = v
		case map[string]any:
			sample.SNMP = v
		}
	}

	return sample
}

// EvaluateAlerts checks a sample against the active thresholds. Host alerts
// are warnings above the threshold and escalate to critical at the fixed
// escalation bounds. SNMP device results evaluate themselves.
func (a *Agent) EvaluateAlerts(sample *Sample) []Alert {
	var alerts []Alert
	t := sample.ActiveThresholds

	add := func(alertType, message string, severity Severity, metadata map[string]any) {
		alerts = append(alerts, Alert{
			ID:        uuid.NewString(),
			Type:      alertType,
			Message:   message,
			Severity:  severity,
			Timestamp: sample.Timestamp,
			Metadata:  metadata,
		})
	}

	if sample.CPU != nil && sample.CPU.UsagePercent > t.CPU {
		severity := SeverityWarning
		if sample.CPU.UsagePercent >= criticalCPUPercent {
			severity = SeverityCritical
		}
		add("cpu_high",
			fmt.Sprintf("CPU usage is %.1f%% (threshold %.0f%%)", sample.CPU.UsagePercent, t.CPU),
			severity,
			map[string]any{"usage": sample.CPU.UsagePercent, "threshold": t.CPU})
	}

	if sample.Memory != nil && sample.Memory.Percent > t.Memory {
		severity := SeverityWarning
		if sample.Memory.Percent >= criticalMemoryPercent {
			severity = SeverityCritical
		}
		add("memory_high",
			fmt.Sprintf("Memory usage is %.1f%% (threshold %.0f%%)", sample.Memory.Percent, t.Memory),
			severity,
			map[string]any{"usage": sample.Memory.Percent, "threshold": t.Memory})
	}

	for mount, usage := range sample.Disk {
		if usage.Percent <= t.Disk {
			continue
		}
		severity := SeverityWarning
		if usage.Percent >= criticalDiskPercent {
			severity = SeverityCritical
		}
		add("disk_high",
			fmt.Sprintf("Disk usage on %s is %.1f%% (threshold %.0f%%)", mount, usage.Percent, t.Disk),
			severity,
			map[string]any{"mount": mount, "usage": usage.Percent, "threshold": t.Disk})
	}

	for name, status := range sample.Services {
		if status.Active {
			continue
		}
		add("service_down",
			fmt.Sprintf("Service %s is down (%s)", name, status.Status),
			SeverityCritical,
			map[string]any{"service": name, "status": status.Status, "service_type": status.Type})
	}

	for _, result := range sample.SNMP {
		if producer, ok := result.(AlertProducer); ok {
			alerts = append(alerts, producer.Alerts(sample.Timestamp)...)
		}
	}

	return alerts
}

// RunOnce performs one full cycle: refresh remote config if due, collect,
// evaluate, report. The first cycle always fetches.
func (a *Agent) RunOnce(ctx context.Context) error {
	tracer := otel.GetGlobalTracer()
	ctx, span := tracer.StartCycle(ctx)
	defer span.End()

	a.CheckRemoteConfig(ctx)

	sample := a.CollectSample(ctx)
	alerts := a.EvaluateAlerts(sample)

	a.deliverAlerts(ctx, sample, alerts)
	return a.deliverSample(ctx, sample)
}

// deliverAlerts sends alerts immediately; a failed send buffers the alert
// for redelivery.
func (a *Agent) deliverAlerts(ctx context.Context, sample *Sample, alerts []Alert) {
	metrics := otel.GetGlobalMetrics()
	for _, alert := range alerts {
		a.events.LogAlert(alert.Type, alert.Message, string(alert.Severity))
		metrics.RecordAlert(ctx, alert.Type, string(alert.Severity))

		if err := a.reporter.SendAlert(ctx, alert); err != nil {
			a.events.Logger().Warn("alert send failed", "type", alert.Type, "error", err)
			if a.buffer != nil {
				a.buffer.AddAlert(alert)
			}
		}
	}
}

// deliverSample reports the sample. On success any backlog is flushed; on
// failure the sample is buffered while the consecutive failure count is
// below the cap. At or past the cap new samples are dropped (the buffer
// keeps what it has).
func (a *Agent) deliverSample(ctx context.Context, sample *Sample) error {
	metrics := otel.GetGlobalMetrics()
	err := a.reporter.ReportSample(ctx, sample)

	a.mu.Lock()
	if err == nil {
		failures := a.consecutiveFailures
		a.consecutiveFailures = 0
		a.mu.Unlock()

		if failures > 0 {
			a.events.LogReconnect(failures)
		}
		if a.flusher != nil && a.buffer != nil && a.buffer.Len() > 0 {
			sent, failed := a.flusher.Flush(ctx)
			a.events.LogBufferFlush(sent, failed)
		}
		if a.buffer != nil {
			metrics.SetBufferDepth(a.buffer.Len())
		}
		return nil
	}

	a.consecutiveFailures++
	failures := a.consecutiveFailures
	a.mu.Unlock()

	a.events.LogReportFailed(failures, err)
	metrics.RecordReportFailure(ctx)

	if a.buffer != nil && failures < a.maxFailures {
		if a.buffer.AddSample(sample) {
			a.events.LogBuffered(a.buffer.Len())
		}
		metrics.SetBufferDepth(a.buffer.Len())
	}

	return err
}

// Run executes the cycle at the configured interval until ctx is done. The
// first cycle runs immediately.
func (a *Agent) Run(ctx context.Context) error {
	interval := time.Duration(a.cfg.Monitoring.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Duration(config.DefaultIntervalSeconds) * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := a.RunOnce(ctx); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// BuildRegistration assembles the registration payload for this host.
func BuildRegistration(ctx context.Context, hostname string, services, diskPaths []string) Registration {
	reg := Registration{
		Hostname:          hostname,
		AgentVersion:      Version,
		Platform:          runtime.GOOS,
		RegistrationTime:  time.Now().Unix(),
		CPUCount:          runtime.NumCPU(),
		DiskPaths:         diskPaths,
		MonitoredServices: services,
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		reg.TotalMemory = vm.Total
	}
	return reg
}
