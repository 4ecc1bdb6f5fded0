package collect

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/config"
)

// DiskConfigSource supplies the current disk monitoring configuration.
type DiskConfigSource interface {
	Get() *config.DiskConfig
}

// DiskCollector reports usage for the mountpoints enabled in the disk
// configuration. Mounts absent from the configuration are monitored by
// default.
type DiskCollector struct {
	source DiskConfigSource

	// partitions/usage allow tests to substitute readings.
	partitions func(ctx context.Context) ([]disk.PartitionStat, error)
	usage      func(ctx context.Context, path string) (*disk.UsageStat, error)
}

func NewDiskCollector(source DiskConfigSource) *DiskCollector {
	return &DiskCollector{
		source: source,
		partitions: func(ctx context.Context) ([]disk.PartitionStat, error) {
			return disk.PartitionsWithContext(ctx, false)
		},
		usage: disk.UsageWithContext,
	}
}

func (c *DiskCollector) Name() string { return "disk" }

func (c *DiskCollector) Collect(ctx context.Context) (any, error) {
	cfg := c.source.Get()
	if cfg != nil && !cfg.Enabled {
		return map[string]DiskUsage{}, nil
	}

	partitions, err := c.partitions(ctx)
	if err != nil {
		return nil, err
	}

	out := map[string]DiskUsage{}
	for _, p := range partitions {
		if p.Fstype == "" {
			continue
		}

		var entry config.DiskEntry
		known := false
		if cfg != nil {
			entry, known = cfg.Disks[p.Mountpoint]
		}
		if known && !entry.Enabled {
			continue
		}

		usage, err := c.usage(ctx, p.Mountpoint)
		if err != nil {
			// Inaccessible mounts (permissions, stale NFS) are skipped,
			// matching prior agent behavior.
			continue
		}

		desc := entry.Description
		if desc == "" {
			desc = fmt.Sprintf("%s (%s)", p.Device, config.FormatBytes(usage.Total))
		}

		out[p.Mountpoint] = DiskUsage{
			Device:      p.Device,
			Fstype:      p.Fstype,
			Total:       usage.Total,
			Used:        usage.Used,
			Free:        usage.Free,
			Percent:     usage.UsedPercent,
			Description: desc,
		}
	}

	return out, nil
}
