package metrics

import "github.com/fusexd/metacore/pkg/registry"

// NewHeartbeatMetrics creates a Prometheus-backed registry.Metrics
// instance, or nil if metrics are not enabled (InitRegistry not called).
// A nil return is safe to pass to registry.New: every call site guards
// on m != nil before touching a counter.
func NewHeartbeatMetrics() registry.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusHeartbeatMetrics()
}

// newPrometheusHeartbeatMetrics is implemented in
// pkg/metrics/prometheus/heartbeat.go; the indirection avoids an import
// cycle between this facade and the concrete collector package.
var newPrometheusHeartbeatMetrics func() registry.Metrics

// RegisterHeartbeatMetricsConstructor registers the Prometheus heartbeat
// metrics constructor. Called by pkg/metrics/prometheus during package
// initialization.
func RegisterHeartbeatMetricsConstructor(constructor func() registry.Metrics) {
	newPrometheusHeartbeatMetrics = constructor
}
