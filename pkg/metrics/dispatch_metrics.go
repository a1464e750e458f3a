package metrics

import "github.com/fusexd/metacore/pkg/dispatch"

// NewDispatchMetrics creates a Prometheus-backed dispatch.Metrics
// instance, or nil if metrics are not enabled.
func NewDispatchMetrics() dispatch.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusDispatchMetrics()
}

// newPrometheusDispatchMetrics is implemented in
// pkg/metrics/prometheus/dispatch.go.
var newPrometheusDispatchMetrics func() dispatch.Metrics

// RegisterDispatchMetricsConstructor registers the Prometheus dispatch
// metrics constructor. Called by pkg/metrics/prometheus during package
// initialization.
func RegisterDispatchMetricsConstructor(constructor func() dispatch.Metrics) {
	newPrometheusDispatchMetrics = constructor
}
