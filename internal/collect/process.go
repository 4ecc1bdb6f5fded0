package collect

import (
	"context"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessCollector reports host-wide process and thread counts.
type ProcessCollector struct{}

func NewProcessCollector() *ProcessCollector { return &ProcessCollector{} }

func (c *ProcessCollector) Name() string { return "processes" }

func (c *ProcessCollector) Collect(ctx context.Context) (any, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	m := &ProcessMetrics{Count: len(procs)}

	for _, p := range procs {
		// Processes can disappear between listing and inspection.
		n, err := p.NumThreadsWithContext(ctx)
		if err != nil {
			continue
		}
		m.ThreadCount += int(n)
	}

	return m, nil
}
