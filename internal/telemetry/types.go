// Package telemetry buffers metrics and alerts while the control plane is
// unreachable and flushes them once connectivity returns.
package telemetry

import (
	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/agent"
)

// RecordKind distinguishes buffered record types.
type RecordKind string

const (
	// KindSample is a metrics sample. Samples may be shed oldest-first
	// under backpressure.
	KindSample RecordKind = "sample"

	// KindAlert is an alert. Alerts displace samples and grow the buffer
	// past capacity, bounded at twice the capacity.
	KindAlert RecordKind = "alert"
)

// Record wraps either a sample or an alert for buffering.
type Record struct {
	Kind RecordKind `json:"kind"`

	Sample *agent.Sample `json:"sample,omitempty"`
	Alert  *agent.Alert  `json:"alert,omitempty"`

	// requeued marks records that already failed one delivery attempt.
	// A second failure drops the record.
	requeued bool
}

// NewSampleRecord wraps a sample.
func NewSampleRecord(s *agent.Sample) *Record {
	return &Record{Kind: KindSample, Sample: s}
}

// NewAlertRecord wraps an alert.
func NewAlertRecord(a *agent.Alert) *Record {
	return &Record{Kind: KindAlert, Alert: a}
}

// BufferStats contains statistics about the offline buffer.
type BufferStats struct {
	// Depth is the current number of buffered records.
	Depth int

	// Capacity is the sample capacity of the buffer.
	Capacity int

	// TotalEnqueued counts records ever added.
	TotalEnqueued int64

	// TotalDequeued counts records ever drained.
	TotalDequeued int64

	// DroppedSamples counts samples shed under backpressure.
	DroppedSamples int64

	// DroppedAlerts counts alerts shed at the hard cap.
	DroppedAlerts int64
}
