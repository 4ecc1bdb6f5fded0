package telemetry

import (
	"context"

	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/agent"
)

// Reporter delivers records to the control plane.
type Reporter interface {
	ReportSample(ctx context.Context, sample *agent.Sample) error
	SendAlert(ctx context.Context, alert agent.Alert) error
}

// Shipper drains the offline buffer through a Reporter. It is invoked by
// the agent after a successful live report, when connectivity is known to
// be back.
type Shipper struct {
	buffer   *Buffer
	reporter Reporter
}

// NewShipper wires a buffer to a reporter.
func NewShipper(buffer *Buffer, reporter Reporter) *Shipper {
	return &Shipper{buffer: buffer, reporter: reporter}
}

// Flush attempts delivery of every buffered record, preserving original
// timestamps. A record that fails delivery is re-buffered once; a second
// failure drops it. Returns the number of records sent and failed.
func (s *Shipper) Flush(ctx context.Context) (sent, failed int) {
	records := s.buffer.DrainAll()

	for _, r := range records {
		if ctx.Err() != nil {
			// Shutdown mid-flush: put the remainder back.
			s.buffer.Add(r)
			continue
		}

		var err error
		switch r.Kind {
		case KindSample:
			err = s.reporter.ReportSample(ctx, r.Sample)
		case KindAlert:
			err = s.reporter.SendAlert(ctx, *r.Alert)
		}

		if err == nil {
			sent++
			continue
		}

		failed++
		if !r.requeued {
			r.requeued = true
			s.buffer.Add(r)
		}
	}

	return sent, failed
}

// SpoolingReporter tees every record to a local spool before handing it to
// the wrapped reporter. Spool write errors never fail delivery; they show
// up in the spool's stats.
type SpoolingReporter struct {
	next  Reporter
	spool *Spool
}

// NewSpoolingReporter wraps a reporter with a spool.
func NewSpoolingReporter(next Reporter, spool *Spool) *SpoolingReporter {
	return &SpoolingReporter{next: next, spool: spool}
}

func (r *SpoolingReporter) ReportSample(ctx context.Context, sample *agent.Sample) error {
	_ = r.spool.Write(NewSampleRecord(sample))
	return r.next.ReportSample(ctx, sample)
}

func (r *SpoolingReporter) SendAlert(ctx context.Context, alert agent.Alert) error {
	a := alert
	_ = r.spool.Write(NewAlertRecord(&a))
	return r.next.SendAlert(ctx, alert)
}
