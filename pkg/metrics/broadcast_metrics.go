package metrics

import "github.com/fusexd/metacore/pkg/broadcast"

// NewBroadcastMetrics creates a Prometheus-backed broadcast.Metrics
// instance, or nil if metrics are not enabled.
func NewBroadcastMetrics() broadcast.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusBroadcastMetrics()
}

// newPrometheusBroadcastMetrics is implemented in
// pkg/metrics/prometheus/broadcast.go.
var newPrometheusBroadcastMetrics func() broadcast.Metrics

// RegisterBroadcastMetricsConstructor registers the Prometheus broadcast
// metrics constructor. Called by pkg/metrics/prometheus during package
// initialization.
func RegisterBroadcastMetricsConstructor(constructor func() broadcast.Metrics) {
	newPrometheusBroadcastMetrics = constructor
}
