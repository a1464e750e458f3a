package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fusexd/metacore/pkg/dispatch"
	"github.com/fusexd/metacore/pkg/metrics"
)

func init() {
	metrics.RegisterDispatchMetricsConstructor(newDispatchMetrics)
}

// dispatchMetrics is the Prometheus implementation of dispatch.Metrics.
type dispatchMetrics struct {
	ops                   *prometheus.CounterVec
	notModified           prometheus.Counter
	maxChildrenExceeded   prometheus.Counter
	capValidationFallback prometheus.Counter
	capValidationFailure  prometheus.Counter
}

func newDispatchMetrics() dispatch.Metrics {
	reg := metrics.GetRegistry()

	return &dispatchMetrics{
		ops: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fusexmetad_dispatch_ops_total",
				Help: "Total number of dispatched requests by wire operation.",
			},
			[]string{"op"},
		),
		notModified: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "fusexmetad_dispatch_not_modified_total",
			Help: "Total number of GET/LS responses short-circuited as not-modified.",
		}),
		maxChildrenExceeded: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "fusexmetad_dispatch_max_children_exceeded_total",
			Help: "Total number of LS requests rejected for exceeding MAX_CHILDREN.",
		}),
		capValidationFallback: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "fusexmetad_dispatch_cap_validation_fallback_total",
			Help: "Total number of requests that fell back to the ACL permission check after a missing or invalid CAP, whether or not that check succeeded.",
		}),
		capValidationFailure: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "fusexmetad_dispatch_cap_validation_failure_total",
			Help: "Total number of requests rejected by CAP validation.",
		}),
	}
}

func (m *dispatchMetrics) IncOp(op string)                 { m.ops.WithLabelValues(op).Inc() }
func (m *dispatchMetrics) IncNotModified()                 { m.notModified.Inc() }
func (m *dispatchMetrics) IncMaxChildrenExceeded()          { m.maxChildrenExceeded.Inc() }
func (m *dispatchMetrics) IncCapValidationFallback()        { m.capValidationFallback.Inc() }
func (m *dispatchMetrics) IncCapValidationFailure()         { m.capValidationFailure.Inc() }
