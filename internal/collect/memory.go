package collect

import (
	"context"

	"github.com/shirou/gopsutil/v3/mem"
)

// MemoryCollector reports virtual memory and swap usage.
type MemoryCollector struct{}

func NewMemoryCollector() *MemoryCollector { return &MemoryCollector{} }

func (c *MemoryCollector) Name() string { return "memory" }

func (c *MemoryCollector) Collect(ctx context.Context) (any, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}

	m := &MemoryMetrics{
		Total:     vm.Total,
		Available: vm.Available,
		Used:      vm.Used,
		Free:      vm.Free,
		Percent:   vm.UsedPercent,
	}

	if swap, err := mem.SwapMemoryWithContext(ctx); err == nil && swap != nil {
		m.Swap = SwapMetrics{
			Total:   swap.Total,
			Used:    swap.Used,
			Free:    swap.Free,
			Percent: swap.UsedPercent,
		}
	}

	return m, nil
}
