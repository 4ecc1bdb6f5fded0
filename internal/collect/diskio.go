package collect

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
)

// DiskIOCollector reports per-device I/O counters and the byte/IOPS rates
// derived from the previous collection. The first collection reports zero
// rates alongside the absolute counters.
type DiskIOCollector struct {
	// counters allows tests to substitute readings.
	counters func(ctx context.Context) (map[string]disk.IOCountersStat, error)
	now      func() time.Time

	lastCounters map[string]disk.IOCountersStat
	lastTime     time.Time
}

func NewDiskIOCollector() *DiskIOCollector {
	return &DiskIOCollector{
		counters: func(ctx context.Context) (map[string]disk.IOCountersStat, error) {
			return disk.IOCountersWithContext(ctx)
		},
		now: time.Now,
	}
}

func (c *DiskIOCollector) Name() string { return "disk_io" }

func (c *DiskIOCollector) Collect(ctx context.Context) (any, error) {
	now := c.now()
	counters, err := c.counters(ctx)
	if err != nil {
		return nil, err
	}
	if len(counters) == 0 {
		return map[string]DiskIORates{}, nil
	}

	out := make(map[string]DiskIORates, len(counters))

	if c.lastCounters != nil && !c.lastTime.IsZero() {
		elapsed := now.Sub(c.lastTime).Seconds()
		for dev, cur := range counters {
			rates := DiskIORates{
				ReadCount:  cur.ReadCount,
				WriteCount: cur.WriteCount,
				ReadBytes:  cur.ReadBytes,
				WriteBytes: cur.WriteBytes,
			}
			if prev, ok := c.lastCounters[dev]; ok && elapsed > 0 {
				rates.ReadBytesPerSec = int64(float64(counterDelta(cur.ReadBytes, prev.ReadBytes)) / elapsed)
				rates.WriteBytesPerSec = int64(float64(counterDelta(cur.WriteBytes, prev.WriteBytes)) / elapsed)
				rates.ReadIOPS = roundRate(float64(counterDelta(cur.ReadCount, prev.ReadCount)) / elapsed)
				rates.WriteIOPS = roundRate(float64(counterDelta(cur.WriteCount, prev.WriteCount)) / elapsed)
			}
			out[dev] = rates
		}
	} else {
		for dev, cur := range counters {
			out[dev] = DiskIORates{
				ReadCount:  cur.ReadCount,
				WriteCount: cur.WriteCount,
				ReadBytes:  cur.ReadBytes,
				WriteBytes: cur.WriteBytes,
			}
		}
	}

	c.lastCounters = counters
	c.lastTime = now

	return out, nil
}

// roundRate rounds to two decimal places for stable wire output.
func roundRate(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

// counterDelta returns cur-prev, treating a counter reset (device
// re-attach, interface bounce) as zero instead of a uint64 underflow.
func counterDelta(cur, prev uint64) uint64 {
	if cur < prev {
		return 0
	}
	return cur - prev
}
