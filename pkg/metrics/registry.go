// Package metrics exposes the process-wide Prometheus registry. It stays
// nil (and every exported recorder is a safe no-op) until InitRegistry is
// called, so a process that never enables metrics pays no collection
// overhead.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry creates the process-wide registry and registers the
// standard Go/process collectors alongside it. Calling it twice replaces
// the previous registry; tests typically call it once per test binary.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()

	registry = prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// GetRegistry returns the process-wide registry, or nil if metrics were
// never enabled. Callers that construct collectors must check IsEnabled
// first.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// Reset drops the current registry, returning metrics collection to its
// disabled state. Intended for test teardown.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	registry = nil
}
