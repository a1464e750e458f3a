package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fusexd/metacore/pkg/cap"
	"github.com/fusexd/metacore/pkg/metrics"
)

func init() {
	metrics.RegisterCapMetricsConstructor(newCapMetrics)
}

// capMetrics is the Prometheus implementation of cap.Metrics.
type capMetrics struct {
	store  prometheus.Counter
	imply  prometheus.Counter
	expire prometheus.Counter
	remove prometheus.Counter
	delete prometheus.Counter
}

func newCapMetrics() cap.Metrics {
	reg := metrics.GetRegistry()

	return &capMetrics{
		store: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "fusexmetad_cap_store_total",
			Help: "Total number of CAPs stored, grounded on the original's Eosxd::int::Store counter.",
		}),
		imply: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "fusexmetad_cap_imply_total",
			Help: "Total number of implied-parent-CAP derivations.",
		}),
		expire: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "fusexmetad_cap_expire_total",
			Help: "Total number of CAPs expired from byExpiry.",
		}),
		remove: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "fusexmetad_cap_remove_total",
			Help: "Total number of CAPs removed by inode.",
		}),
		delete: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "fusexmetad_cap_delete_total",
			Help: "Total number of CAPs deleted by auth ID.",
		}),
	}
}

func (m *capMetrics) IncStore()  { m.store.Inc() }
func (m *capMetrics) IncImply()  { m.imply.Inc() }
func (m *capMetrics) IncExpire() { m.expire.Inc() }
func (m *capMetrics) IncRemove() { m.remove.Inc() }
func (m *capMetrics) IncDelete() { m.delete.Inc() }
