// Package metrics is the facade fusexmetad's domain packages call into
// for optional Prometheus instrumentation. Concrete collector
// constructors live under pkg/metrics/prometheus and register themselves
// with this package at init time via RegisterXMetricsConstructor, which
// keeps the domain packages (registry, cap, broadcast, dispatch) free of
// any direct Prometheus import.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu       sync.Mutex
	enabled  bool
	registry *prometheus.Registry
)

// InitRegistry enables metrics collection and constructs the backing
// Prometheus registry. Safe to call once at process startup, before any
// NewXMetrics constructor in this package.
func InitRegistry() {
	mu.Lock()
	defer mu.Unlock()
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	enabled = true
}

// IsEnabled reports whether InitRegistry has run.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// GetRegistry returns the active Prometheus registry. Only meaningful
// after InitRegistry; returns nil otherwise.
func GetRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	return registry
}
