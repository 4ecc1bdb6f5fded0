package collect

import (
	"context"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
)

// CPUCollector reports whole-host CPU usage, logical CPU count and load
// averages. Usage is computed against the previous call, so the first
// collection after startup reports the usage since boot.
type CPUCollector struct{}

func NewCPUCollector() *CPUCollector { return &CPUCollector{} }

func (c *CPUCollector) Name() string { return "cpu" }

func (c *CPUCollector) Collect(ctx context.Context) (any, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, err
	}

	m := &CPUMetrics{}
	if len(percents) > 0 {
		m.UsagePercent = percents[0]
	}

	if count, err := cpu.CountsWithContext(ctx, true); err == nil {
		m.Count = count
	}

	// Load averages are unavailable on Windows; leave them zero there.
	if avg, err := load.AvgWithContext(ctx); err == nil && avg != nil {
		m.LoadAverage = LoadAverage{
			Load1:  avg.Load1,
			Load5:  avg.Load5,
			Load15: avg.Load15,
		}
	}

	return m, nil
}
