package metrics

import "github.com/fusexd/metacore/pkg/cap"

// NewCapMetrics creates a Prometheus-backed cap.Metrics instance, or nil
// if metrics are not enabled.
func NewCapMetrics() cap.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusCapMetrics()
}

// newPrometheusCapMetrics is implemented in pkg/metrics/prometheus/cap.go.
var newPrometheusCapMetrics func() cap.Metrics

// RegisterCapMetricsConstructor registers the Prometheus cap metrics
// constructor. Called by pkg/metrics/prometheus during package
// initialization.
func RegisterCapMetricsConstructor(constructor func() cap.Metrics) {
	newPrometheusCapMetrics = constructor
}
