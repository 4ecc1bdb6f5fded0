// Package events provides structured logging for key events in the agent's
// lifecycle: configuration changes, report failures, buffering, and alerts.
package events

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// EventLogger provides structured JSON logging for agent events.
type EventLogger struct {
	logger   *slog.Logger
	hostname string
}

// NewEventLogger creates an EventLogger with JSON output to stdout.
// It includes base attributes: hostname and agent_version.
func NewEventLogger(hostname, agentVersion string) *EventLogger {
	return NewEventLoggerWithWriter(hostname, agentVersion, os.Stdout, slog.LevelInfo)
}

// NewEventLoggerWithWriter creates an EventLogger with JSON output to a
// custom writer. Useful for testing or redirecting output.
func NewEventLoggerWithWriter(hostname, agentVersion string, w io.Writer, level slog.Level) *EventLogger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(handler).With(
		"hostname", hostname,
		"agent_version", agentVersion,
	)
	return &EventLogger{
		logger:   logger,
		hostname: hostname,
	}
}

// Logger returns the underlying slog logger for free-form logging.
func (el *EventLogger) Logger() *slog.Logger {
	return el.logger
}

// LogConfigLoaded logs successful configuration load.
// event: "config_loaded"
func (el *EventLogger) LogConfigLoaded(path string, intervalSeconds int, services, snmpDevices int) {
	el.logger.Info("config_loaded",
		"path", path,
		"interval_seconds", intervalSeconds,
		"services", services,
		"snmp_devices", snmpDevices,
	)
}

// LogThresholdsUpdated logs adoption of remote thresholds.
// event: "remote_thresholds_updated"
func (el *EventLogger) LogThresholdsUpdated(version int64, cpu, memory, disk float64) {
	el.logger.Info("remote_thresholds_updated",
		"threshold_version", version,
		"cpu", cpu,
		"memory", memory,
		"disk", disk,
	)
}

// LogCollectorError logs a collector failure within a cycle.
// event: "collector_error"
func (el *EventLogger) LogCollectorError(collector string, err error) {
	el.logger.Error("collector_error",
		"collector", collector,
		"error", err.Error(),
	)
}

// LogReportFailed logs a failed metrics report.
// event: "report_failed"
func (el *EventLogger) LogReportFailed(consecutiveFailures int, err error) {
	el.logger.Error("report_failed",
		"consecutive_failures", consecutiveFailures,
		"error", err.Error(),
	)
}

// LogBuffered logs that a sample was buffered for later delivery.
// event: "sample_buffered"
func (el *EventLogger) LogBuffered(bufferDepth int) {
	el.logger.Info("sample_buffered",
		"buffer_depth", bufferDepth,
	)
}

// LogBufferFlush logs delivery of buffered samples after reconnecting.
// event: "buffer_flush"
func (el *EventLogger) LogBufferFlush(sent, failed int) {
	el.logger.Info("buffer_flush",
		"sent", sent,
		"failed", failed,
	)
}

// LogReconnect logs a successful report after one or more failures.
// event: "reconnect"
func (el *EventLogger) LogReconnect(afterFailures int) {
	el.logger.Info("reconnect",
		"after_failures", afterFailures,
	)
}

// LogSNMPDeviceUnreachable logs a device that could not be polled.
// event: "snmp_device_unreachable"
func (el *EventLogger) LogSNMPDeviceUnreachable(device, target string, err error) {
	el.logger.Warn("snmp_device_unreachable",
		"device", device,
		"target", target,
		"error", err.Error(),
	)
}

// LogAlert logs a raised alert.
// event: "alert_raised"
func (el *EventLogger) LogAlert(alertType, message, severity string) {
	el.logger.Warn("alert_raised",
		"type", alertType,
		"message", message,
		"severity", severity,
	)
}

// Global logger management
var (
	globalLogger *EventLogger
	globalMu     sync.RWMutex
)

// SetGlobalEventLogger sets the global event logger instance.
func SetGlobalEventLogger(l *EventLogger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// GetGlobalEventLogger returns the global event logger instance.
// If no logger is set, returns a no-op logger.
func GetGlobalEventLogger() *EventLogger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger != nil {
		return globalLogger
	}
	return NoopEventLogger()
}

// NoopEventLogger returns an event logger that discards all events.
func NoopEventLogger() *EventLogger {
	handler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return &EventLogger{
		logger: slog.New(handler),
	}
}
