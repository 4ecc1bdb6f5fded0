// Package config loads and validates the agent configuration.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"sigs.k8s.io/yaml"
)

// APIConfig configures the control-plane connection.
type APIConfig struct {
	// URL is the base URL of the agent API.
	URL string `json:"url" validate:"required,url"`

	// Key authenticates this agent. It is issued when the agent is
	// created in the web UI.
	Key string `json:"key"`
}

// MonitoringConfig configures the collection cycle and local thresholds.
type MonitoringConfig struct {
	// IntervalSeconds is the collection/report interval.
	IntervalSeconds int `json:"interval" validate:"gte=5"`

	// CPUThreshold is the local CPU alert threshold in percent.
	CPUThreshold float64 `json:"cpu_threshold" validate:"gte=0,lte=100"`

	// MemoryThreshold is the local memory alert threshold in percent.
	MemoryThreshold float64 `json:"memory_threshold" validate:"gte=0,lte=100"`

	// DiskThreshold is the local disk alert threshold in percent.
	DiskThreshold float64 `json:"disk_threshold" validate:"gte=0,lte=100"`
}

// SNMPDeviceConfig configures one SNMP device to poll. Names prefixed with
// "docker-" have no special meaning here; device names are free-form.
type SNMPDeviceConfig struct {
	// Name identifies the device in reported samples.
	Name string `json:"name" validate:"required"`

	// Hostname is the device address.
	Hostname string `json:"hostname" validate:"required"`

	// Port is the SNMP port, 161 by default.
	Port int `json:"port" validate:"gte=0,lte=65535"`

	// Version is "v1", "v2c" or "v3".
	Version string `json:"version" validate:"oneof=v1 v2c v3"`

	// Community is the community string for v1/v2c.
	Community string `json:"community"`

	// Username, AuthKey and PrivKey configure USM for v3.
	Username string `json:"username"`
	AuthKey  string `json:"auth_key"`
	PrivKey  string `json:"priv_key"`

	// TimeoutSeconds is the per-request timeout.
	TimeoutSeconds int `json:"timeout" validate:"gte=0"`

	// Retries is the per-request retry count.
	Retries int `json:"retries" validate:"gte=0"`
}

// TelemetryConfig configures the agent's optional self-instrumentation.
type TelemetryConfig struct {
	// Enabled turns OpenTelemetry export on.
	Enabled bool `json:"enabled"`

	// Exporter is "stdout", "otlp-grpc" or "otlp-http".
	Exporter string `json:"exporter" validate:"omitempty,oneof=none stdout otlp-grpc otlp-http"`

	// OTLPEndpoint is the collector endpoint for the OTLP exporters.
	OTLPEndpoint string `json:"otlp_endpoint"`

	// OTLPInsecure disables TLS for OTLP connections.
	OTLPInsecure bool `json:"otlp_insecure"`

	// SpoolPath, when set, appends every reported sample and alert to a
	// local JSONL file.
	SpoolPath string `json:"spool_path"`
}

// Config is the full agent configuration.
type Config struct {
	API        APIConfig        `json:"api"`
	Monitoring MonitoringConfig `json:"monitoring"`

	// Services lists systemd units (or "docker-<name>" containers) whose
	// status is checked each cycle.
	Services []string `json:"services" validate:"unique"`

	// SNMP lists network devices to poll.
	SNMP []SNMPDeviceConfig `json:"snmp" validate:"unique=Name,dive"`

	Telemetry TelemetryConfig `json:"telemetry"`
}

// Validate checks the configuration for semantic errors.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})
	return validate.Struct(c)
}

// Default returns the built-in configuration. It matches the defaults the
// agent shipped with historically: report every 60s against the public API
// with cpu/memory/disk thresholds of 80/85/90 percent.
func Default() *Config {
	return &Config{
		API: APIConfig{
			URL: DefaultAPIURL,
		},
		Monitoring: MonitoringConfig{
			IntervalSeconds: DefaultIntervalSeconds,
			CPUThreshold:    DefaultCPUThreshold,
			MemoryThreshold: DefaultMemoryThreshold,
			DiskThreshold:   DefaultDiskThreshold,
		},
	}
}

// Load reads the configuration from path. A missing file yields the
// defaults; an unreadable or invalid file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}

	return cfg, nil
}

// applyDefaults fills zero values the file left unset.
func applyDefaults(cfg *Config) {
	if cfg.API.URL == "" {
		cfg.API.URL = DefaultAPIURL
	}
	if cfg.Monitoring.IntervalSeconds == 0 {
		cfg.Monitoring.IntervalSeconds = DefaultIntervalSeconds
	}
	if cfg.Monitoring.CPUThreshold == 0 {
		cfg.Monitoring.CPUThreshold = DefaultCPUThreshold
	}
	if cfg.Monitoring.MemoryThreshold == 0 {
		cfg.Monitoring.MemoryThreshold = DefaultMemoryThreshold
	}
	if cfg.Monitoring.DiskThreshold == 0 {
		cfg.Monitoring.DiskThreshold = DefaultDiskThreshold
	}
	if cfg.Telemetry.Exporter == "" {
		cfg.Telemetry.Exporter = "none"
	}

	for i := range cfg.SNMP {
		dev := &cfg.SNMP[i]
		if dev.Port == 0 {
			dev.Port = DefaultSNMPPort
		}
		if dev.Version == "" {
			dev.Version = "v2c"
		}
		if dev.Community == "" && (dev.Version == "v1" || dev.Version == "v2c") {
			dev.Community = "public"
		}
		if dev.TimeoutSeconds == 0 {
			dev.TimeoutSeconds = DefaultSNMPTimeoutSeconds
		}
		if dev.Retries == 0 {
			dev.Retries = DefaultSNMPRetries
		}
	}
}
