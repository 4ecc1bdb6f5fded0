package config

// Default configuration constants for the agent.
const (
	// DefaultConfigPath is where the agent looks for its configuration.
	DefaultConfigPath = "/etc/uptimesquirrel/agent.yaml"

	// DefaultDiskConfigPath is where the disk monitoring configuration
	// lives. The file is created on first run if absent.
	DefaultDiskConfigPath = "/etc/uptimesquirrel/disks.json"

	// DefaultAPIURL is the public control-plane endpoint.
	DefaultAPIURL = "https://agent-api.uptimesquirrel.com"

	DefaultIntervalSeconds = 60
	DefaultCPUThreshold    = 80.0
	DefaultMemoryThreshold = 85.0
	DefaultDiskThreshold   = 90.0

	// DefaultConfigCheckSeconds is how often remote threshold
	// configuration is fetched until the server supplies its own
	// check interval.
	DefaultConfigCheckSeconds = 300

	// DefaultBufferCapacity bounds the offline sample buffer.
	DefaultBufferCapacity = 100

	// DefaultMaxConsecutiveFailures is the report failure count after
	// which new samples are dropped instead of buffered.
	DefaultMaxConsecutiveFailures = 5

	DefaultSNMPPort           = 161
	DefaultSNMPTimeoutSeconds = 5
	DefaultSNMPRetries        = 3
)
