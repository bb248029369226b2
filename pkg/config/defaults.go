package config

import (
	"strings"
	"time"

	"github.com/marmos91/reqkit/internal/bytesize"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero numeric, string and duration values are replaced with defaults;
//     booleans are left as they are
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyMetricsDefaults(&cfg.Metrics)
	applyCacheDefaults(&cfg.Cache)
	applyQueueDefaults(&cfg.Queue)
	applyRequestTimeoutDefaults(cfg)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	// Enabled defaults to false (opt-in for telemetry)
	// No need to set, zero value is false

	// Default endpoint is localhost:4317 (standard OTLP gRPC port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}

	// Default sample rate is 1.0 (sample all traces)
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

// applyShutdownTimeoutDefaults sets shutdown timeout defaults.
func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false (opt-in for metrics)
	// Port defaults to 9090 if metrics are enabled
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyCacheDefaults sets two-tier cache defaults.
// Path is required and must be configured by the caller.
func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.MemoryByteLimit == 0 {
		cfg.MemoryByteLimit = bytesize.ByteSize(64 * bytesize.MiB)
	}
	if cfg.DiskByteLimit == 0 {
		cfg.DiskByteLimit = bytesize.ByteSize(bytesize.GiB)
	}
}

// applyQueueDefaults sets named-queue scheduling defaults.
func applyQueueDefaults(cfg *QueueConfig) {
	if cfg.DefaultQueueConcurrency == 0 {
		cfg.DefaultQueueConcurrency = 4
	}
	if cfg.DrainTimeout == 0 {
		cfg.DrainTimeout = 30 * time.Second
	}
}

// applyRequestTimeoutDefaults sets the default network task deadline.
func applyRequestTimeoutDefaults(cfg *Config) {
	if cfg.RequestTimeoutSeconds == 0 {
		cfg.RequestTimeoutSeconds = 30
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Logging: LoggingConfig{},
		Cache: CacheConfig{
			Path:            "/tmp/reqkit-cache",
			MemoryByteLimit: bytesize.ByteSize(64 * bytesize.MiB),
			DiskByteLimit:   bytesize.ByteSize(bytesize.GiB),
		},
		Queue: QueueConfig{
			DefaultQueueConcurrency: 4,
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
