package config

import (
	"testing"
	"time"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_ShutdownTimeout(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
}

func TestApplyDefaults_Cache(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Cache.MemoryByteLimit != 64*1024*1024 {
		t.Errorf("Expected default memory byte limit 64MiB, got %v", cfg.Cache.MemoryByteLimit)
	}
	if cfg.Cache.DiskByteLimit != 1024*1024*1024 {
		t.Errorf("Expected default disk byte limit 1GiB, got %v", cfg.Cache.DiskByteLimit)
	}
}

func TestApplyDefaults_Queue(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Queue.DefaultQueueConcurrency != 4 {
		t.Errorf("Expected default queue concurrency 4, got %d", cfg.Queue.DefaultQueueConcurrency)
	}
	if cfg.Queue.DrainTimeout != 30*time.Second {
		t.Errorf("Expected default drain timeout 30s, got %v", cfg.Queue.DrainTimeout)
	}
}

func TestApplyDefaults_RequestTimeout(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.RequestTimeoutSeconds != 30 {
		t.Errorf("Expected default request timeout 30s, got %d", cfg.RequestTimeoutSeconds)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  "DEBUG",
			Format: "json",
			Output: "/var/log/reqkit.log",
		},
		ShutdownTimeout: 60 * time.Second,
		Queue: QueueConfig{
			DefaultQueueConcurrency: 16,
		},
	}

	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected explicit level 'DEBUG' to be preserved, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected explicit format 'json' to be preserved, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "/var/log/reqkit.log" {
		t.Errorf("Expected explicit output to be preserved, got %q", cfg.Logging.Output)
	}
	if cfg.ShutdownTimeout != 60*time.Second {
		t.Errorf("Expected explicit timeout 60s to be preserved, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Queue.DefaultQueueConcurrency != 16 {
		t.Errorf("Expected explicit queue concurrency to be preserved, got %d", cfg.Queue.DefaultQueueConcurrency)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	cfg := GetDefaultConfig()

	err := Validate(cfg)
	if err != nil {
		t.Errorf("Default config should be valid, got error: %v", err)
	}
}

func TestGetDefaultConfig_HasRequiredFields(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level == "" {
		t.Error("Default config missing logging level")
	}
	if cfg.Cache.Path == "" {
		t.Error("Default config missing cache path")
	}
	if cfg.Queue.DefaultQueueConcurrency == 0 {
		t.Error("Default config missing queue concurrency")
	}
}
