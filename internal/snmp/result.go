package snmp

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/agent"
)

// Device status values.
const (
	StatusOK          = "ok"
	StatusUnreachable = "unreachable"
)

// Interface status values from IF-MIB (up(1), down(2), testing(3)).
const ifStatusUp = 1

// Fixed alert limits for polled devices. Unlike host thresholds these are
// not remotely configurable; they follow the limits the dashboards assume.
const (
	deviceCPUWarn     = 80.0
	deviceCPUCrit     = 90.0
	deviceMemoryWarn  = 85.0
	deviceMemoryCrit  = 95.0
	deviceStorageWarn = 90.0
	deviceStorageCrit = 95.0
)

// SystemInfo holds SNMPv2-MIB system group values.
type SystemInfo struct {
	Name          string `json:"name,omitempty"`
	Description   string `json:"description,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds,omitempty"`
}

// Interface is one row of the IF-MIB interface table.
type Interface struct {
	Index       int    `json:"index"`
	Description string `json:"description"`
	AdminStatus int    `json:"admin_status"`
	OperStatus  int    `json:"oper_status"`
	InOctets    uint64 `json:"in_octets"`
	OutOctets   uint64 `json:"out_octets"`
}

// CPUInfo holds processor load. Usage5Min is set on devices exposing the
// Cisco 5-minute average; Load is the HOST-RESOURCES processor load
// averaged over all processors.
type CPUInfo struct {
	Usage5Min *float64 `json:"usage_5min,omitempty"`
	Load      *float64 `json:"load,omitempty"`
}

// MemoryInfo holds physical memory usage derived from the host resources
// storage table.
type MemoryInfo struct {
	TotalBytes uint64  `json:"total"`
	UsedBytes  uint64  `json:"used"`
	Percent    float64 `json:"percent"`
}

// Storage is one non-memory row of the host resources storage table.
type Storage struct {
	Description string  `json:"description"`
	TotalBytes  uint64  `json:"total"`
	UsedBytes   uint64  `json:"used"`
	Percent     float64 `json:"percent"`
}

// DeviceResult is the outcome of polling one device.
type DeviceResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`

	System     *SystemInfo `json:"system,omitempty"`
	Interfaces []Interface `json:"interfaces,omitempty"`
	CPU        *CPUInfo    `json:"cpu,omitempty"`
	Memory     *MemoryInfo `json:"memory,omitempty"`
	Storage    []Storage   `json:"storage,omitempty"`

	// deviceName is carried for alert messages; not part of the wire
	// format since results are keyed by device name.
	deviceName string
}

// Alerts evaluates the poll result against the device alert limits.
// It implements agent.AlertProducer.
func (r *DeviceResult) Alerts(timestamp int64) []agent.Alert {
	var alerts []agent.Alert

	add := func(alertType, message string, severity agent.Severity, metadata map[string]any) {
		alerts = append(alerts, agent.Alert{
			ID:        uuid.NewString(),
			Type:      alertType,
			Message:   message,
			Severity:  severity,
			Timestamp: timestamp,
			Metadata:  metadata,
		})
	}

	if r.Status == StatusUnreachable {
		msg := fmt.Sprintf("SNMP device %s is unreachable: %s", r.deviceName, r.errorOrUnknown())
		add("snmp_device_unreachable", msg, agent.SeverityCritical, map[string]any{
			"device": r.deviceName,
			"error":  r.Error,
		})
		return alerts
	}

	for _, iface := range r.Interfaces {
		if iface.AdminStatus == ifStatusUp && iface.OperStatus != ifStatusUp {
			msg := fmt.Sprintf("Interface %s on %s is down", iface.Description, r.deviceName)
			add("snmp_interface_down", msg, agent.SeverityWarning, map[string]any{
				"device":    r.deviceName,
				"interface": iface.Description,
				"index":     iface.Index,
			})
		}
	}

	if r.CPU != nil && r.CPU.Usage5Min != nil {
		usage := *r.CPU.Usage5Min
		if usage > deviceCPUWarn {
			severity := agent.SeverityWarning
			if usage >= deviceCPUCrit {
				severity = agent.SeverityCritical
			}
			msg := fmt.Sprintf("CPU usage on %s is %.0f%% (5min avg)", r.deviceName, usage)
			add("snmp_cpu_high", msg, severity, map[string]any{
				"device": r.deviceName,
				"usage":  usage,
			})
		}
	}

	if r.Memory != nil && r.Memory.Percent > deviceMemoryWarn {
		severity := agent.SeverityWarning
		if r.Memory.Percent >= deviceMemoryCrit {
			severity = agent.SeverityCritical
		}
		msg := fmt.Sprintf("Memory usage on %s is %.1f%%", r.deviceName, r.Memory.Percent)
		add("snmp_memory_high", msg, severity, map[string]any{
			"device": r.deviceName,
			"usage":  r.Memory.Percent,
		})
	}

	for _, st := range r.Storage {
		if st.Percent > deviceStorageWarn {
			severity := agent.SeverityWarning
			if st.Percent >= deviceStorageCrit {
				severity = agent.SeverityCritical
			}
			msg := fmt.Sprintf("Storage %s on %s is %.1f%% full", st.Description, r.deviceName, st.Percent)
			add("snmp_storage_high", msg, severity, map[string]any{
				"device":  r.deviceName,
				"storage": st.Description,
				"usage":   st.Percent,
			})
		}
	}

	return alerts
}

func (r *DeviceResult) errorOrUnknown() string {
	if r.Error == "" {
		return "unknown error"
	}
	return r.Error
}
