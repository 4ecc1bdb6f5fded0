package telemetry

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/agent"
)

type fakeReporter struct {
	samples []*agent.Sample
	alerts  []agent.Alert
	fail    int
}

func (r *fakeReporter) ReportSample(ctx context.Context, s *agent.Sample) error {
	if r.fail > 0 {
		r.fail--
		return errors.New("unavailable")
	}
	r.samples = append(r.samples, s)
	return nil
}

func (r *fakeReporter) SendAlert(ctx context.Context, a agent.Alert) error {
	if r.fail > 0 {
		r.fail--
		return errors.New("unavailable")
	}
	r.alerts = append(r.alerts, a)
	return nil
}

func TestShipperFlushDeliversEverything(t *testing.T) {
	b := NewBuffer(10)
	b.AddSample(sampleAt(1))
	b.AddSample(sampleAt(2))
	b.AddAlert(agent.Alert{ID: "a1"})

	reporter := &fakeReporter{}
	sent, failed := NewShipper(b, reporter).Flush(context.Background())

	if sent != 3 || failed != 0 {
		t.Errorf("sent=%d failed=%d, want 3/0", sent, failed)
	}
	if len(reporter.samples) != 2 || len(reporter.alerts) != 1 {
		t.Errorf("reporter got %d samples, %d alerts", len(reporter.samples), len(reporter.alerts))
	}
	if b.Len() != 0 {
		t.Errorf("buffer not emptied, Len=%d", b.Len())
	}
}

func TestShipperRequeuesFailedOnce(t *testing.T) {
	b := NewBuffer(10)
	b.AddSample(sampleAt(1))

	reporter := &fakeReporter{fail: 1}
	shipper := NewShipper(b, reporter)

	sent, failed := shipper.Flush(context.Background())
	if sent != 0 || failed != 1 {
		t.Fatalf("first flush sent=%d failed=%d, want 0/1", sent, failed)
	}
	if b.Len() != 1 {
		t.Fatal("failed record should be re-buffered")
	}

	// Second flush succeeds.
	sent, failed = shipper.Flush(context.Background())
	if sent != 1 || failed != 0 {
		t.Errorf("second flush sent=%d failed=%d, want 1/0", sent, failed)
	}
}

func TestShipperDropsRecordAfterSecondFailure(t *testing.T) {
	b := NewBuffer(10)
	b.AddSample(sampleAt(1))

	reporter := &fakeReporter{fail: 2}
	shipper := NewShipper(b, reporter)

	shipper.Flush(context.Background())
	shipper.Flush(context.Background())

	if b.Len() != 0 {
		t.Errorf("record failing twice should be dropped, Len=%d", b.Len())
	}
}

func TestShipperStopsOnCancelledContext(t *testing.T) {
	b := NewBuffer(10)
	b.AddSample(sampleAt(1))
	b.AddSample(sampleAt(2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reporter := &fakeReporter{}
	sent, _ := NewShipper(b, reporter).Flush(ctx)

	if sent != 0 {
		t.Errorf("nothing should be sent on a cancelled context, sent=%d", sent)
	}
	if b.Len() != 2 {
		t.Errorf("records should be back in the buffer, Len=%d", b.Len())
	}
}

func TestSpoolingReporterTees(t *testing.T) {
	var buf bytes.Buffer
	spool := NewSpoolWithWriter(&buf, nil)
	reporter := &fakeReporter{}
	sr := NewSpoolingReporter(reporter, spool)

	if err := sr.ReportSample(context.Background(), sampleAt(1)); err != nil {
		t.Fatal(err)
	}
	if err := sr.SendAlert(context.Background(), agent.Alert{ID: "a1", Type: "cpu_high"}); err != nil {
		t.Fatal(err)
	}
	if err := spool.Flush(); err != nil {
		t.Fatal(err)
	}

	if len(reporter.samples) != 1 || len(reporter.alerts) != 1 {
		t.Error("delivery should still reach the wrapped reporter")
	}
	if spool.Stats().TotalWritten != 2 {
		t.Errorf("TotalWritten = %d, want 2", spool.Stats().TotalWritten)
	}
}
