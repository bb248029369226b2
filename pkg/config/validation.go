package config

import (
	"fmt"
	"strings"
)

// Validate checks a Config for internal consistency, reporting every
// violation it finds rather than stopping at the first one.
//
// Field-level constraints mirror the validate tags documented on
// Config itself (required, gt, gte/lte, oneof, min/max) but are checked by
// hand rather than through a struct-tag validator, since nothing in this
// tree drives reflection-based validation for non-DB config structs.
func Validate(cfg *Config) error {
	var errs []string

	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateMetrics(&cfg.Metrics)...)
	errs = append(errs, validateCache(&cfg.Cache)...)
	errs = append(errs, validateQueue(&cfg.Queue)...)

	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, "shutdown_timeout: gt=0 required")
	}
	if cfg.RequestTimeoutSeconds < 0 {
		errs = append(errs, "request_timeout_seconds: gte=0 required")
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
}

func validateLogging(cfg *LoggingConfig) []string {
	var errs []string

	level := strings.ToUpper(cfg.Level)
	switch level {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		errs = append(errs, fmt.Sprintf("logging.level: oneof=DEBUG INFO WARN ERROR, got %q", cfg.Level))
	}

	switch cfg.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("logging.format: oneof=text json, got %q", cfg.Format))
	}

	if cfg.Output == "" {
		errs = append(errs, "logging.output: required")
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []string {
	var errs []string

	if cfg.Enabled && cfg.Endpoint == "" {
		errs = append(errs, "telemetry.endpoint: required when telemetry.enabled is true")
	}
	if cfg.SampleRate < 0 || cfg.SampleRate > 1 {
		errs = append(errs, fmt.Sprintf("telemetry.sample_rate: gte=0,lte=1 required, got %v", cfg.SampleRate))
	}

	return errs
}

func validateMetrics(cfg *MetricsConfig) []string {
	var errs []string

	if cfg.Enabled && (cfg.Port < 1 || cfg.Port > 65535) {
		errs = append(errs, fmt.Sprintf("metrics.port: min=1,max=65535 required, got %d", cfg.Port))
	}

	return errs
}

func validateCache(cfg *CacheConfig) []string {
	var errs []string

	if cfg.Path == "" {
		errs = append(errs, "cache.path: required")
	}

	return errs
}

func validateQueue(cfg *QueueConfig) []string {
	var errs []string

	if cfg.DefaultQueueConcurrency < 0 {
		errs = append(errs, "queue.default_concurrency: gte=0 required")
	}

	return errs
}
