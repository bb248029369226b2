package config

import (
	"strings"
	"testing"
)

func TestValidate_DefaultConfigPasses(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("expected the default config to pass validation, got: %v", err)
	}
}

func TestValidate_RejectsUnknownLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "TRACE"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected an unrecognized log level to fail validation")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("expected a oneof violation for logging.level, got: %v", err)
	}
}

func TestValidate_RejectsUnknownLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Fatal("expected an unsupported log format to fail validation")
	}
}

func TestValidate_MetricsPortIgnoredWhenDisabled(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metrics.Enabled = false
	cfg.Metrics.Port = 70000 // out of range, but the server never binds it

	if err := Validate(cfg); err != nil {
		t.Errorf("expected an out-of-range port to be ignored while metrics are disabled, got: %v", err)
	}
}

func TestValidate_MetricsPortOutOfRangeWhenEnabled(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 70000

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected an out-of-range metrics port to fail validation once metrics are enabled")
	}
	if !strings.Contains(err.Error(), "max") {
		t.Errorf("expected a max-bound violation for metrics.port, got: %v", err)
	}
}

func TestValidate_NegativeMetricsPortWhenEnabled(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = -1

	if err := Validate(cfg); err == nil {
		t.Fatal("expected a negative metrics port to fail validation")
	}
}

func TestValidate_EmptyCachePathRejected(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Cache.Path = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected a missing disk cache path to fail validation")
	}
	errStr := strings.ToLower(err.Error())
	if !strings.Contains(errStr, "cache") || !strings.Contains(errStr, "path") {
		t.Errorf("expected the error to mention cache.path, got: %v", err)
	}
}

func TestValidate_NegativeQueueConcurrencyRejected(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Queue.DefaultQueueConcurrency = -1

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected a negative default queue concurrency to fail validation")
	}
	if !strings.Contains(err.Error(), "default_concurrency") {
		t.Errorf("expected the error to mention queue.default_concurrency, got: %v", err)
	}
}

func TestValidate_ZeroShutdownTimeoutRejected(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.ShutdownTimeout = 0

	if err := Validate(cfg); err == nil {
		t.Fatal("expected a zero shutdown_timeout to fail validation")
	}
}

func TestValidate_NegativeRequestTimeoutRejected(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.RequestTimeoutSeconds = -5

	if err := Validate(cfg); err == nil {
		t.Fatal("expected a negative request_timeout_seconds to fail validation")
	}
}

func TestValidate_TelemetryEnabledWithoutEndpointRejected(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected telemetry enabled with no OTLP endpoint to fail validation")
	}
	if !strings.Contains(err.Error(), "telemetry") && !strings.Contains(err.Error(), "endpoint") {
		t.Errorf("expected the error to mention telemetry/endpoint, got: %v", err)
	}
}

func TestValidate_SampleRateOutOfRangeRejected(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = "localhost:4317"
	cfg.Telemetry.SampleRate = 1.5

	if err := Validate(cfg); err == nil {
		t.Fatal("expected a sample rate above 1.0 to fail validation")
	}
}

func TestValidate_AccumulatesMultipleViolations(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "NOPE"
	cfg.Cache.Path = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected multiple simultaneous violations to fail validation")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "logging.level") || !strings.Contains(errStr, "cache.path") {
		t.Errorf("expected both violations reported together, got: %v", errStr)
	}
}

func TestValidate_LogLevelCaseInsensitive(t *testing.T) {
	for _, level := range []string{"info", "INFO", "debug", "DEBUG", "warn", "WARN", "error", "ERROR"} {
		cfg := GetDefaultConfig()
		cfg.Logging.Level = level

		if err := Validate(cfg); err != nil {
			t.Errorf("validation failed for level %q: %v", level, err)
		}
		// Validate itself must not mutate the config; normalization is
		// ApplyDefaults's job, checked below.
		if cfg.Logging.Level != level {
			t.Errorf("expected Validate to leave logging.level as %q, got %q", level, cfg.Logging.Level)
		}
	}

	cfg := &Config{Logging: LoggingConfig{Level: "info"}}
	ApplyDefaults(cfg)
	if cfg.Logging.Level != "INFO" {
		t.Errorf("expected ApplyDefaults to normalize 'info' to 'INFO', got %q", cfg.Logging.Level)
	}
}
