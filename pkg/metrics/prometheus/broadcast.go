package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fusexd/metacore/pkg/broadcast"
	"github.com/fusexd/metacore/pkg/metrics"
)

func init() {
	metrics.RegisterBroadcastMetricsConstructor(newBroadcastMetrics)
}

// broadcastMetrics is the Prometheus implementation of broadcast.Metrics.
type broadcastMetrics struct {
	suppressed prometheus.Counter
	broadcasts prometheus.Counter
}

func newBroadcastMetrics() broadcast.Metrics {
	reg := metrics.GetRegistry()

	return &broadcastMetrics{
		suppressed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "fusexmetad_broadcast_suppressed_total",
			Help: "Total number of recipients dropped from an over-threshold broadcast by BroadCastAudienceSuppressMatch.",
		}),
		broadcasts: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "fusexmetad_broadcast_total",
			Help: "Total number of broadcast fan-outs performed.",
		}),
	}
}

func (m *broadcastMetrics) IncSuppressed(n int) { m.suppressed.Add(float64(n)) }
func (m *broadcastMetrics) IncBroadcast()        { m.broadcasts.Inc() }
