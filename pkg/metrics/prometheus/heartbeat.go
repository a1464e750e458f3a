package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fusexd/metacore/pkg/metrics"
	"github.com/fusexd/metacore/pkg/registry"
)

func init() {
	metrics.RegisterHeartbeatMetricsConstructor(newHeartbeatMetrics)
}

// heartbeatMetrics is the Prometheus implementation of registry.Metrics.
type heartbeatMetrics struct {
	mounts    prometheus.Counter
	offline   prometheus.Counter
	evicted   prometheus.Counter
	heartbeat prometheus.Counter
}

func newHeartbeatMetrics() registry.Metrics {
	reg := metrics.GetRegistry()

	return &heartbeatMetrics{
		mounts: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "fusexmetad_registry_mounts_total",
			Help: "Total number of client mount (first heartbeat from a new client ID) events.",
		}),
		offline: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "fusexmetad_registry_offline_total",
			Help: "Total number of clients transitioned to offline.",
		}),
		evicted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "fusexmetad_registry_evicted_total",
			Help: "Total number of clients evicted from the registry (heartBeatRemoveWindow expiry, version mismatch, shutdown, or explicit eviction).",
		}),
		heartbeat: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "fusexmetad_registry_heartbeats_total",
			Help: "Total number of heartbeats processed.",
		}),
	}
}

func (m *heartbeatMetrics) IncMount()     { m.mounts.Inc() }
func (m *heartbeatMetrics) IncOffline()   { m.offline.Inc() }
func (m *heartbeatMetrics) IncEvicted()   { m.evicted.Inc() }
func (m *heartbeatMetrics) IncHeartbeat() { m.heartbeat.Inc() }
