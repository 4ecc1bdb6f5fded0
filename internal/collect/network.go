package collect

import (
	"context"
	"strings"
	"time"

	psnet "github.com/shirou/gopsutil/v3/net"
)

// NetworkCollector reports per-interface counters and the bandwidth rates
// derived from the previous collection. Loopback interfaces are excluded.
type NetworkCollector struct {
	// counters allows tests to substitute readings.
	counters func(ctx context.Context) ([]psnet.IOCountersStat, error)
	now      func() time.Time

	lastCounters map[string]psnet.IOCountersStat
	lastTime     time.Time
}

func NewNetworkCollector() *NetworkCollector {
	return &NetworkCollector{
		counters: func(ctx context.Context) ([]psnet.IOCountersStat, error) {
			return psnet.IOCountersWithContext(ctx, true)
		},
		now: time.Now,
	}
}

func (c *NetworkCollector) Name() string { return "network" }

func (c *NetworkCollector) Collect(ctx context.Context) (any, error) {
	now := c.now()
	stats, err := c.counters(ctx)
	if err != nil {
		return nil, err
	}

	current := make(map[string]psnet.IOCountersStat, len(stats))
	for _, s := range stats {
		if strings.HasPrefix(s.Name, "lo") {
			continue
		}
		current[s.Name] = s
	}

	out := make(map[string]NetworkRates, len(current))

	havePrev := c.lastCounters != nil && !c.lastTime.IsZero()
	elapsed := now.Sub(c.lastTime).Seconds()

	for name, cur := range current {
		rates := NetworkRates{
			BytesSent:   cur.BytesSent,
			BytesRecv:   cur.BytesRecv,
			PacketsSent: cur.PacketsSent,
			PacketsRecv: cur.PacketsRecv,
			ErrIn:       cur.Errin,
			ErrOut:      cur.Errout,
			DropIn:      cur.Dropin,
			DropOut:     cur.Dropout,
		}
		if havePrev && elapsed > 0 {
			if prev, ok := c.lastCounters[name]; ok {
				rates.BytesSentPerSec = int64(float64(counterDelta(cur.BytesSent, prev.BytesSent)) / elapsed)
				rates.BytesRecvPerSec = int64(float64(counterDelta(cur.BytesRecv, prev.BytesRecv)) / elapsed)
				rates.PacketsSentPerSec = roundRate(float64(counterDelta(cur.PacketsSent, prev.PacketsSent)) / elapsed)
				rates.PacketsRecvPerSec = roundRate(float64(counterDelta(cur.PacketsRecv, prev.PacketsRecv)) / elapsed)
			}
		}
		out[name] = rates
	}

	c.lastCounters = current
	c.lastTime = now

	return out, nil
}
