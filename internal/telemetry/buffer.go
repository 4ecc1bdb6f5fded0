package telemetry

import (
	"sync"
	"sync/atomic"

	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/agent"
)

// Buffer is a thread-safe bounded buffer for records awaiting delivery.
// When the buffer is full, the oldest sample is shed to make room. Alerts
// may push the buffer past capacity, up to a hard cap of twice the
// capacity; beyond that the oldest record is shed so a long outage cannot
// grow the buffer without bound.
type Buffer struct {
	capacity int

	mu      sync.Mutex
	records []*Record

	totalEnqueued  atomic.Int64
	totalDequeued  atomic.Int64
	droppedSamples atomic.Int64
	droppedAlerts  atomic.Int64
}

// NewBuffer creates a buffer that holds up to capacity samples.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 100
	}
	return &Buffer{
		capacity: capacity,
		records:  make([]*Record, 0, capacity),
	}
}

// Add buffers a record, shedding the oldest sample if the buffer is full.
// Returns false if the record itself was dropped (a sample arriving when the
// buffer holds only alerts).
func (b *Buffer) Add(record *Record) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if record.Kind == KindAlert {
		if len(b.records) >= 2*b.capacity {
			if !b.shedOldestSampleLocked() {
				b.shedOldestAlertLocked()
			}
		}
		b.records = append(b.records, record)
		b.totalEnqueued.Add(1)
		return true
	}

	if len(b.records) >= b.capacity {
		if !b.shedOldestSampleLocked() {
			// Full of alerts; the incoming sample loses.
			b.droppedSamples.Add(1)
			return false
		}
	}

	b.records = append(b.records, record)
	b.totalEnqueued.Add(1)
	return true
}

// AddSample buffers a sample, shedding the oldest buffered sample if full.
func (b *Buffer) AddSample(sample *agent.Sample) bool {
	return b.Add(NewSampleRecord(sample))
}

// AddAlert buffers an alert. Alerts displace samples and are shed only once
// the buffer reaches twice its capacity.
func (b *Buffer) AddAlert(alert agent.Alert) {
	a := alert
	b.Add(NewAlertRecord(&a))
}

// shedOldestSampleLocked removes and drops the oldest sample. Must be
// called with mu held.
func (b *Buffer) shedOldestSampleLocked() bool {
	for i, r := range b.records {
		if r.Kind == KindSample {
			b.records = append(b.records[:i], b.records[i+1:]...)
			b.droppedSamples.Add(1)
			return true
		}
	}
	return false
}

// shedOldestAlertLocked removes and drops the oldest alert. Must be called
// with mu held.
func (b *Buffer) shedOldestAlertLocked() {
	for i, r := range b.records {
		if r.Kind == KindAlert {
			b.records = append(b.records[:i], b.records[i+1:]...)
			b.droppedAlerts.Add(1)
			return
		}
	}
}

// DrainAll removes and returns all buffered records in arrival order.
func (b *Buffer) DrainAll() []*Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.records) == 0 {
		return nil
	}

	drained := b.records
	b.records = make([]*Record, 0, b.capacity)
	b.totalDequeued.Add(int64(len(drained)))
	return drained
}

// Len returns the current number of buffered records.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// Capacity returns the sample capacity of the buffer.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// Stats returns current buffer statistics.
func (b *Buffer) Stats() BufferStats {
	b.mu.Lock()
	depth := len(b.records)
	b.mu.Unlock()

	return BufferStats{
		Depth:          depth,
		Capacity:       b.capacity,
		TotalEnqueued:  b.totalEnqueued.Load(),
		TotalDequeued:  b.totalDequeued.Load(),
		DroppedSamples: b.droppedSamples.Load(),
		DroppedAlerts:  b.droppedAlerts.Load(),
	}
}
