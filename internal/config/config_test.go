package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.API.URL)
	assert.Equal(t, DefaultIntervalSeconds, cfg.Monitoring.IntervalSeconds)
	assert.Equal(t, DefaultCPUThreshold, cfg.Monitoring.CPUThreshold)
	assert.Equal(t, DefaultMemoryThreshold, cfg.Monitoring.MemoryThreshold)
	assert.Equal(t, DefaultDiskThreshold, cfg.Monitoring.DiskThreshold)
	assert.Empty(t, cfg.Services)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
api:
  url: https://agent-api.example.com
  key: test-key-123
monitoring:
  interval: 30
  cpu_threshold: 70
  memory_threshold: 75
  disk_threshold: 80
services:
  - nginx
  - docker-web
telemetry:
  enabled: true
  exporter: otlp-grpc
  otlp_endpoint: localhost:4317
  otlp_insecure: true
  spool_path: /var/spool/agent.jsonl
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://agent-api.example.com", cfg.API.URL)
	assert.Equal(t, "test-key-123", cfg.API.Key)
	assert.Equal(t, 30, cfg.Monitoring.IntervalSeconds)
	assert.Equal(t, 70.0, cfg.Monitoring.CPUThreshold)
	assert.Equal(t, []string{"nginx", "docker-web"}, cfg.Services)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "otlp-grpc", cfg.Telemetry.Exporter)
	assert.Equal(t, "/var/spool/agent.jsonl", cfg.Telemetry.SpoolPath)
}

func TestLoadPartialConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
api:
  key: only-a-key
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "only-a-key", cfg.API.Key)
	assert.Equal(t, DefaultAPIURL, cfg.API.URL)
	assert.Equal(t, DefaultIntervalSeconds, cfg.Monitoring.IntervalSeconds)
	assert.Equal(t, "none", cfg.Telemetry.Exporter)
}

func TestLoadSNMPDefaults(t *testing.T) {
	path := writeConfig(t, `
snmp:
  - name: core-switch
    hostname: 10.0.0.1
  - name: firewall
    hostname: 10.0.0.2
    version: v3
    username: monitor
    port: 1161
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.SNMP, 2)

	sw := cfg.SNMP[0]
	assert.Equal(t, DefaultSNMPPort, sw.Port)
	assert.Equal(t, "v2c", sw.Version)
	assert.Equal(t, "public", sw.Community)
	assert.Equal(t, DefaultSNMPTimeoutSeconds, sw.TimeoutSeconds)
	assert.Equal(t, DefaultSNMPRetries, sw.Retries)

	fw := cfg.SNMP[1]
	assert.Equal(t, 1161, fw.Port)
	assert.Equal(t, "v3", fw.Version)
	assert.Empty(t, fw.Community, "v3 devices do not get a default community")
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := writeConfig(t, "api: [not: a: mapping")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing api url", func(c *Config) { c.API.URL = "" }},
		{"malformed api url", func(c *Config) { c.API.URL = "not a url" }},
		{"interval too small", func(c *Config) { c.Monitoring.IntervalSeconds = 2 }},
		{"threshold above 100", func(c *Config) { c.Monitoring.CPUThreshold = 150 }},
		{"negative threshold", func(c *Config) { c.Monitoring.DiskThreshold = -1 }},
		{"duplicate services", func(c *Config) { c.Services = []string{"nginx", "nginx"} }},
		{"snmp bad version", func(c *Config) {
			c.SNMP = []SNMPDeviceConfig{{Name: "sw", Hostname: "10.0.0.1", Version: "v4"}}
		}},
		{"snmp missing hostname", func(c *Config) {
			c.SNMP = []SNMPDeviceConfig{{Name: "sw", Version: "v2c"}}
		}},
		{"snmp duplicate names", func(c *Config) {
			c.SNMP = []SNMPDeviceConfig{
				{Name: "sw", Hostname: "10.0.0.1", Version: "v2c"},
				{Name: "sw", Hostname: "10.0.0.2", Version: "v2c"},
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
