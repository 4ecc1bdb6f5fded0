package collect

import (
	"context"
	"testing"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/config"
)

type staticDiskConfig struct {
	cfg *config.DiskConfig
}

func (s staticDiskConfig) Get() *config.DiskConfig { return s.cfg }

func newTestDiskCollector(cfg *config.DiskConfig, partitions []disk.PartitionStat, usages map[string]*disk.UsageStat) *DiskCollector {
	return &DiskCollector{
		source: staticDiskConfig{cfg: cfg},
		partitions: func(ctx context.Context) ([]disk.PartitionStat, error) {
			return partitions, nil
		},
		usage: func(ctx context.Context, path string) (*disk.UsageStat, error) {
			return usages[path], nil
		},
	}
}

func TestDiskSkipsDisabledMounts(t *testing.T) {
	cfg := &config.DiskConfig{
		Enabled: true,
		Disks: map[string]config.DiskEntry{
			"/":    {Enabled: true, Device: "/dev/sda1"},
			"/tmp": {Enabled: false, Device: "tmpfs"},
		},
	}
	partitions := []disk.PartitionStat{
		{Device: "/dev/sda1", Mountpoint: "/", Fstype: "ext4"},
		{Device: "tmpfs", Mountpoint: "/tmp", Fstype: "tmpfs"},
	}
	usages := map[string]*disk.UsageStat{
		"/":    {Total: 100 << 30, Used: 50 << 30, Free: 50 << 30, UsedPercent: 50},
		"/tmp": {Total: 1 << 30},
	}

	result, err := newTestDiskCollector(cfg, partitions, usages).Collect(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	out := result.(map[string]DiskUsage)
	if _, ok := out["/tmp"]; ok {
		t.Error("/tmp is disabled and should be skipped")
	}
	if u, ok := out["/"]; !ok || u.Percent != 50 {
		t.Errorf("/ missing or wrong: %+v", out)
	}
}

func TestDiskGlobalDisableReturnsEmpty(t *testing.T) {
	cfg := &config.DiskConfig{Enabled: false}
	partitions := []disk.PartitionStat{
		{Device: "/dev/sda1", Mountpoint: "/", Fstype: "ext4"},
	}

	result, err := newTestDiskCollector(cfg, partitions, nil).Collect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if out := result.(map[string]DiskUsage); len(out) != 0 {
		t.Errorf("expected empty result, got %+v", out)
	}
}

func TestDiskUnknownMountMonitoredByDefault(t *testing.T) {
	cfg := &config.DiskConfig{Enabled: true, Disks: map[string]config.DiskEntry{}}
	partitions := []disk.PartitionStat{
		{Device: "/dev/sdb1", Mountpoint: "/data", Fstype: "xfs"},
	}
	usages := map[string]*disk.UsageStat{
		"/data": {Total: 2 << 40, Used: 1 << 40, Free: 1 << 40, UsedPercent: 50},
	}

	result, err := newTestDiskCollector(cfg, partitions, usages).Collect(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	out := result.(map[string]DiskUsage)
	u, ok := out["/data"]
	if !ok {
		t.Fatal("unconfigured mount should be monitored by default")
	}
	if u.Description == "" {
		t.Error("expected generated description for unconfigured mount")
	}
}

func TestDiskConfiguredDescriptionWins(t *testing.T) {
	cfg := &config.DiskConfig{
		Enabled: true,
		Disks: map[string]config.DiskEntry{
			"/": {Enabled: true, Description: "Root volume"},
		},
	}
	partitions := []disk.PartitionStat{
		{Device: "/dev/sda1", Mountpoint: "/", Fstype: "ext4"},
	}
	usages := map[string]*disk.UsageStat{
		"/": {Total: 100 << 30, UsedPercent: 10},
	}

	result, _ := newTestDiskCollector(cfg, partitions, usages).Collect(context.Background())
	u := result.(map[string]DiskUsage)["/"]
	if u.Description != "Root volume" {
		t.Errorf("Description = %q, want configured description", u.Description)
	}
}
