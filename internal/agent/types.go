// Package agent implements the UptimeSquirrel monitoring agent: the
// collection/report cycle, threshold evaluation, and alert generation.
package agent

import "github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/collect"

// Version is the agent version reported to the control plane.
const Version = "1.2.7"

// ActiveThresholds describes the thresholds in effect for a sample, so the
// server can tell which limits the agent was alerting against.
type ActiveThresholds struct {
	// CPU is the CPU usage alert threshold in percent.
	CPU float64 `json:"cpu"`

	// Memory is the memory usage alert threshold in percent.
	Memory float64 `json:"memory"`

	// Disk is the per-mount disk usage alert threshold in percent.
	Disk float64 `json:"disk"`

	// Version is the threshold configuration version currently held.
	Version int64 `json:"version"`

	// Source is "remote" when thresholds came from the control plane,
	// "local" when they came from the agent config file.
	Source string `json:"source"`
}

// Sample is one full metrics snapshot as sent to the control plane.
type Sample struct {
	// Hostname of the monitored machine.
	Hostname string `json:"hostname"`

	// Timestamp is the collection time as a Unix timestamp in seconds.
	Timestamp int64 `json:"timestamp"`

	// Uptime is the host uptime in seconds.
	Uptime int64 `json:"uptime"`

	// AgentVersion is the version of the agent that produced the sample.
	AgentVersion string `json:"agent_version"`

	// ActiveThresholds are the thresholds in effect at collection time.
	ActiveThresholds ActiveThresholds `json:"active_thresholds"`

	// CPU metrics, nil if the collector failed.
	CPU *collect.CPUMetrics `json:"cpu,omitempty"`

	// Memory metrics, nil if the collector failed.
	Memory *collect.MemoryMetrics `json:"memory,omitempty"`

	// Disk usage keyed by mountpoint.
	Disk map[string]collect.DiskUsage `json:"disk,omitempty"`

	// DiskIO rates keyed by device name.
	DiskIO map[string]collect.DiskIORates `json:"disk_io,omitempty"`

	// Network rates keyed by interface name.
	Network map[string]collect.NetworkRates `json:"network,omitempty"`

	// Services status keyed by configured service name.
	Services map[string]collect.ServiceStatus `json:"services,omitempty"`

	// Sensors carries temperature readings when available.
	Sensors *collect.ThermalMetrics `json:"sensors,omitempty"`

	// Processes carries process/thread counts.
	Processes *collect.ProcessMetrics `json:"processes,omitempty"`

	// SNMP carries per-device poll results, keyed by device name.
	SNMP map[string]any `json:"snmp,omitempty"`

	// Errors maps collector name to the error it returned, if any.
	Errors map[string]string `json:"errors,omitempty"`
}

// Severity of an alert.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is a threshold violation or availability failure reported to the
// control plane.
type Alert struct {
	// ID uniquely identifies the alert instance.
	ID string `json:"id"`

	// Type is the stable alert family, e.g. "cpu_high" or "service_down".
	Type string `json:"type"`

	// Message is the human-readable description.
	Message string `json:"message"`

	// Severity is "warning" or "critical".
	Severity Severity `json:"severity"`

	// Timestamp is the Unix timestamp of the sample that raised the alert.
	Timestamp int64 `json:"timestamp"`

	// Metadata carries alert-specific context (usage, threshold, mount, ...).
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RemoteConfig is the server-pushed threshold configuration.
type RemoteConfig struct {
	// ThresholdVersion gates adoption: the agent only applies thresholds
	// whose version exceeds the one it already holds.
	ThresholdVersion int64 `json:"threshold_version"`

	// Thresholds maps metric type ("cpu", "memory", "disk") to the
	// threshold percent.
	Thresholds map[string]float64 `json:"thresholds"`

	// CheckIntervalSeconds is how often the agent should poll for
	// configuration changes.
	CheckIntervalSeconds int `json:"check_interval"`
}

// Registration is the payload sent when registering the agent.
type Registration struct {
	Hostname          string   `json:"hostname"`
	AgentVersion      string   `json:"agent_version"`
	Platform          string   `json:"platform"`
	RegistrationTime  int64    `json:"registration_time"`
	CPUCount          int      `json:"cpu_count"`
	TotalMemory       uint64   `json:"total_memory"`
	DiskPaths         []string `json:"disk_paths"`
	MonitoredServices []string `json:"monitored_services"`
}
