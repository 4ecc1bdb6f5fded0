package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shirou/gopsutil/v3/disk"
)

// DiskEntry configures monitoring for one mountpoint.
type DiskEntry struct {
	Enabled     bool   `json:"enabled"`
	Device      string `json:"device"`
	Fstype      string `json:"fstype"`
	Description string `json:"description"`
}

// DiskConfig is the on-disk format of disks.json. The format is shared with
// earlier agent releases, so existing operator-edited files keep working.
type DiskConfig struct {
	Comment      string               `json:"comment,omitempty"`
	Note         string               `json:"note,omitempty"`
	Instructions string               `json:"instructions,omitempty"`
	Enabled      bool                 `json:"enabled"`
	Disks        map[string]DiskEntry `json:"disks"`
}

// minTrackedDiskBytes filters out tiny partitions (snaps, boot stubs) when
// generating the default configuration.
const minTrackedDiskBytes = 1 << 30

// diskRefreshFallback re-reads disks.json periodically in case file watch
// events are lost (e.g. on network filesystems).
const diskRefreshFallback = time.Minute

// DiskConfigStore holds the current disk configuration and keeps it fresh
// via fsnotify with a periodic fallback re-read.
type DiskConfigStore struct {
	path   string
	logger *slog.Logger

	mu  sync.RWMutex
	cfg *DiskConfig
}

// NewDiskConfigStore loads (creating if absent) the disk configuration at
// path.
func NewDiskConfigStore(path string, logger *slog.Logger) (*DiskConfigStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &DiskConfigStore{path: path, logger: logger}

	cfg, err := loadOrCreateDiskConfig(path, logger)
	if err != nil {
		return nil, err
	}
	s.cfg = cfg
	return s, nil
}

// Get returns the current disk configuration.
func (s *DiskConfigStore) Get() *DiskConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Watch blocks until ctx is done, reloading the configuration whenever the
// file changes. Reload failures keep the previous configuration.
func (s *DiskConfigStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("disk config watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace the file, which would
	// otherwise drop the watch on the inode.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}

	ticker := time.NewTicker(diskRefreshFallback)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Name != s.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			s.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("disk config watch error", "error", err)
		case <-ticker.C:
			s.reload()
		}
	}
}

func (s *DiskConfigStore) reload() {
	cfg, err := readDiskConfig(s.path)
	if err != nil {
		s.logger.Error("failed to reload disk config", "path", s.path, "error", err)
		return
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	s.logger.Info("disk config reloaded", "path", s.path, "disks", len(cfg.Disks))
}

func readDiskConfig(path string) (*DiskConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg DiskConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Disks == nil {
		cfg.Disks = map[string]DiskEntry{}
	}
	return &cfg, nil
}

func loadOrCreateDiskConfig(path string, logger *slog.Logger) (*DiskConfig, error) {
	cfg, err := readDiskConfig(path)
	if err == nil {
		logger.Info("loaded disk config", "path", path, "disks", len(cfg.Disks))
		return cfg, nil
	}
	if !os.IsNotExist(err) {
		// Unparseable file: fall back to monitoring everything rather
		// than refusing to start.
		logger.Error("failed to load disk config", "path", path, "error", err)
		return &DiskConfig{Enabled: true, Disks: map[string]DiskEntry{}}, nil
	}

	cfg = discoverDiskConfig()
	if err := writeDiskConfig(path, cfg); err != nil {
		logger.Error("failed to create disk config", "path", path, "error", err)
		return cfg, nil
	}
	logger.Info("created disk config", "path", path, "disks", len(cfg.Disks))
	return cfg, nil
}

// discoverDiskConfig builds a default configuration from the partitions
// present on the host, skipping anything under 1 GiB.
func discoverDiskConfig() *DiskConfig {
	disks := map[string]DiskEntry{}

	partitions, err := disk.Partitions(false)
	if err == nil {
		for _, p := range partitions {
			if p.Fstype == "" {
				continue
			}
			usage, err := disk.Usage(p.Mountpoint)
			if err != nil || usage.Total < minTrackedDiskBytes {
				continue
			}
			disks[p.Mountpoint] = DiskEntry{
				Enabled:     true,
				Device:      p.Device,
				Fstype:      p.Fstype,
				Description: fmt.Sprintf("%s (%s)", p.Device, FormatBytes(usage.Total)),
			}
		}
	}

	return &DiskConfig{
		Comment:      "Disk monitoring configuration for UptimeSquirrel agent",
		Note:         "Only 4 disks will show in charts, but all enabled disks will be monitored for alerts",
		Instructions: "Set 'enabled' to false for any disk you don't want to monitor",
		Enabled:      true,
		Disks:        disks,
	}
}

func writeDiskConfig(path string, cfg *DiskConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// FormatBytes renders a byte count as a human-readable string.
func FormatBytes(n uint64) string {
	v := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if v < 1024 {
			return fmt.Sprintf("%.1f %s", v, unit)
		}
		v /= 1024
	}
	return fmt.Sprintf("%.1f PB", v)
}
