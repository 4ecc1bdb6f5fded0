// Package collect gathers system metrics for the agent. Each collector
// covers one metric family and is polled once per report cycle.
package collect

import "context"

// Collector gathers one family of system metrics.
type Collector interface {
	// Name returns the stable identifier under which results appear in
	// the reported sample ("cpu", "memory", "disk", ...).
	Name() string

	// Collect gathers the metrics. A collector that has nothing to report
	// on this platform returns a zero value and nil error.
	Collect(ctx context.Context) (any, error)
}

// LoadAverage holds the 1/5/15-minute load averages.
type LoadAverage struct {
	Load1  float64 `json:"1min"`
	Load5  float64 `json:"5min"`
	Load15 float64 `json:"15min"`
}

// CPUMetrics holds whole-host CPU metrics.
type CPUMetrics struct {
	// UsagePercent is the overall CPU usage percentage (0-100).
	UsagePercent float64 `json:"usage_percent"`

	// Count is the number of logical CPUs.
	Count int `json:"count"`

	// LoadAverage holds the system load averages.
	LoadAverage LoadAverage `json:"load_average"`
}

// SwapMetrics holds swap usage.
type SwapMetrics struct {
	Total   uint64  `json:"total"`
	Used    uint64  `json:"used"`
	Free    uint64  `json:"free"`
	Percent float64 `json:"percent"`
}

// MemoryMetrics holds virtual memory and swap usage.
type MemoryMetrics struct {
	Total     uint64      `json:"total"`
	Available uint64      `json:"available"`
	Used      uint64      `json:"used"`
	Free      uint64      `json:"free"`
	Percent   float64     `json:"percent"`
	Swap      SwapMetrics `json:"swap"`
}

// DiskUsage holds usage for one monitored mountpoint.
type DiskUsage struct {
	Device      string  `json:"device"`
	Fstype      string  `json:"fstype"`
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Free        uint64  `json:"free"`
	Percent     float64 `json:"percent"`
	Description string  `json:"description"`
}

// DiskIORates holds per-device I/O counters and the rates derived from the
// previous collection.
type DiskIORates struct {
	ReadBytesPerSec  int64   `json:"read_bytes_per_sec"`
	WriteBytesPerSec int64   `json:"write_bytes_per_sec"`
	ReadIOPS         float64 `json:"read_iops"`
	WriteIOPS        float64 `json:"write_iops"`
	ReadCount        uint64  `json:"read_count"`
	WriteCount       uint64  `json:"write_count"`
	ReadBytes        uint64  `json:"read_bytes"`
	WriteBytes       uint64  `json:"write_bytes"`
}

// NetworkRates holds per-interface counters and derived bandwidth rates.
type NetworkRates struct {
	BytesSent         uint64  `json:"bytes_sent"`
	BytesRecv         uint64  `json:"bytes_recv"`
	PacketsSent       uint64  `json:"packets_sent"`
	PacketsRecv       uint64  `json:"packets_recv"`
	BytesSentPerSec   int64   `json:"bytes_sent_per_sec"`
	BytesRecvPerSec   int64   `json:"bytes_recv_per_sec"`
	PacketsSentPerSec float64 `json:"packets_sent_per_sec"`
	PacketsRecvPerSec float64 `json:"packets_recv_per_sec"`
	ErrIn             uint64  `json:"errin"`
	ErrOut            uint64  `json:"errout"`
	DropIn            uint64  `json:"dropin"`
	DropOut           uint64  `json:"dropout"`
}

// ServiceStatus is the result of checking one systemd unit or Docker
// container.
type ServiceStatus struct {
	// Active reports whether the service is considered healthy.
	Active bool `json:"active"`

	// Status is the raw state string, e.g. "active" or "running (healthy)".
	Status string `json:"status"`

	// Type is "systemd" or "docker".
	Type string `json:"type"`

	// ContainerName is set for Docker containers.
	ContainerName string `json:"container_name,omitempty"`

	// RestartCount is the Docker restart count, if known.
	RestartCount int `json:"restart_count,omitempty"`

	// HealthStatus is the Docker health check state, if the container
	// defines one.
	HealthStatus string `json:"health_status,omitempty"`

	// Error describes a check failure.
	Error string `json:"error,omitempty"`
}

// ThermalMetrics holds best-effort temperature readings in Celsius.
type ThermalMetrics struct {
	CPUTemp *float64 `json:"cpu_temp,omitempty"`
	GPUTemp *float64 `json:"gpu_temp,omitempty"`
}

// ProcessMetrics holds host-wide process and thread counts.
type ProcessMetrics struct {
	Count       int `json:"count"`
	ThreadCount int `json:"thread_count"`
}
