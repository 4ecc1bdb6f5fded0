package telemetry

import (
	"testing"

	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/agent"
)

func sampleAt(ts int64) *agent.Sample {
	return &agent.Sample{Hostname: "test-host", Timestamp: ts}
}

func TestBufferShedsOldestSampleWhenFull(t *testing.T) {
	b := NewBuffer(3)
	for i := int64(1); i <= 4; i++ {
		if !b.AddSample(sampleAt(i)) {
			t.Fatalf("sample %d rejected", i)
		}
	}

	if b.Len() != 3 {
		t.Fatalf("Len = %d, want 3", b.Len())
	}

	records := b.DrainAll()
	if records[0].Sample.Timestamp != 2 {
		t.Errorf("oldest sample should have been shed, first is ts=%d", records[0].Sample.Timestamp)
	}

	stats := b.Stats()
	if stats.DroppedSamples != 1 {
		t.Errorf("DroppedSamples = %d, want 1", stats.DroppedSamples)
	}
}

func TestBufferAlertsGrowPastCapacity(t *testing.T) {
	b := NewBuffer(2)
	for i := int64(0); i < 4; i++ {
		b.AddAlert(agent.Alert{ID: "a", Timestamp: i})
	}

	if b.Len() != 4 {
		t.Errorf("Len = %d, want 4 (alerts exceed capacity up to the hard cap)", b.Len())
	}
	if stats := b.Stats(); stats.DroppedSamples != 0 || stats.DroppedAlerts != 0 {
		t.Errorf("nothing should be dropped below the hard cap: %+v", stats)
	}
}

func TestBufferAlertsShedOldestAtHardCap(t *testing.T) {
	b := NewBuffer(2)
	for i := int64(1); i <= 5; i++ {
		b.AddAlert(agent.Alert{ID: "a", Timestamp: i})
	}

	if b.Len() != 4 {
		t.Fatalf("Len = %d, want 4 (twice the capacity)", b.Len())
	}
	if got := b.Stats().DroppedAlerts; got != 1 {
		t.Errorf("DroppedAlerts = %d, want 1", got)
	}
	if first := b.DrainAll()[0]; first.Alert.Timestamp != 2 {
		t.Errorf("oldest alert should have been shed, first is ts=%d", first.Alert.Timestamp)
	}
}

func TestBufferAlertsShedSampleBeforeAlertAtHardCap(t *testing.T) {
	b := NewBuffer(2)
	b.AddSample(sampleAt(1))
	for i := int64(1); i <= 3; i++ {
		b.AddAlert(agent.Alert{ID: "a", Timestamp: i})
	}

	// At the hard cap the buffered sample loses before any alert does.
	b.AddAlert(agent.Alert{ID: "a", Timestamp: 4})

	stats := b.Stats()
	if stats.DroppedSamples != 1 || stats.DroppedAlerts != 0 {
		t.Errorf("stats = %+v, want the sample shed and all alerts kept", stats)
	}
	for _, r := range b.DrainAll() {
		if r.Kind != KindAlert {
			t.Errorf("unexpected %s record survived", r.Kind)
		}
	}
}

func TestBufferSampleDroppedWhenFullOfAlerts(t *testing.T) {
	b := NewBuffer(2)
	b.AddAlert(agent.Alert{ID: "1"})
	b.AddAlert(agent.Alert{ID: "2"})

	if b.AddSample(sampleAt(1)) {
		t.Error("sample should be dropped when the buffer holds only alerts")
	}
	if b.Stats().DroppedSamples != 1 {
		t.Errorf("DroppedSamples = %d, want 1", b.Stats().DroppedSamples)
	}
}

func TestBufferDrainAllEmptiesBuffer(t *testing.T) {
	b := NewBuffer(10)
	b.AddSample(sampleAt(1))
	b.AddAlert(agent.Alert{ID: "a"})

	records := b.DrainAll()
	if len(records) != 2 {
		t.Fatalf("drained %d records, want 2", len(records))
	}
	if b.Len() != 0 {
		t.Errorf("Len = %d after drain, want 0", b.Len())
	}
	if b.DrainAll() != nil {
		t.Error("second drain should return nil")
	}

	stats := b.Stats()
	if stats.TotalEnqueued != 2 || stats.TotalDequeued != 2 {
		t.Errorf("stats = %+v", stats)
	}
}
