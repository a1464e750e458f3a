package statsapi

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fusexd/metacore/pkg/cap"
	"github.com/fusexd/metacore/pkg/metrics"
	"github.com/fusexd/metacore/pkg/registry"
)

// Handler serves the stats surface's read-only endpoints. All fields may
// be populated independently; a nil registry/caps simply reports an empty
// listing rather than failing the request.
type Handler struct {
	registry *registry.Registry
	caps     *cap.Store
}

// NewHandler constructs a Handler. reg and caps may be nil.
func NewHandler(reg *registry.Registry, caps *cap.Store) *Handler {
	return &Handler{registry: reg, caps: caps}
}

// Healthz handles GET /healthz, a bare liveness probe.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, HealthyResponse(map[string]string{"service": "fusexmetad"}))
}

// Metrics handles GET /metrics, proxying to the Prometheus registry when
// metrics collection is enabled, per the nil-safe IsEnabled()/GetRegistry()
// contract pkg/metrics defines.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	if !metrics.IsEnabled() {
		http.Error(w, "metrics collection disabled", http.StatusNotFound)
		return
	}
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

type capView struct {
	AuthID     string    `json:"authid"`
	Inode      uint64    `json:"inode"`
	ClientID   string    `json:"clientid"`
	ClientUUID string    `json:"clientuuid"`
	Vtime      time.Time `json:"vtime"`
}

// Caps handles GET /debug/caps, dumping every currently-stored capability.
func (h *Handler) Caps(w http.ResponseWriter, r *http.Request) {
	if h.caps == nil {
		JSON(w, http.StatusOK, OKResponse([]capView{}))
		return
	}
	all := h.caps.All()
	views := make([]capView, 0, len(all))
	for _, c := range all {
		views = append(views, capView{
			AuthID:     c.AuthID,
			Inode:      c.Inode,
			ClientID:   c.ClientID,
			ClientUUID: c.ClientUUID,
			Vtime:      c.Vtime,
		})
	}
	JSON(w, http.StatusOK, OKResponse(views))
}

type clientView struct {
	ClientID   string    `json:"clientid"`
	ClientUUID string    `json:"clientuuid"`
	State      string    `json:"state"`
	ReceivedAt time.Time `json:"received_at"`
	Idle       string    `json:"idle"`
}

// Clients handles GET /debug/clients, dumping every tracked client session.
func (h *Handler) Clients(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		JSON(w, http.StatusOK, OKResponse([]clientView{}))
		return
	}
	sessions := h.registry.ListSessions()
	views := make([]clientView, 0, len(sessions))
	now := time.Now()
	for _, sess := range sessions {
		views = append(views, clientView{
			ClientID:   sess.ClientID,
			ClientUUID: sess.Heartbeat.UUID,
			State:      sess.State.String(),
			ReceivedAt: sess.ReceivedAt,
			Idle:       sess.IdleBucket(now),
		})
	}
	JSON(w, http.StatusOK, OKResponse(views))
}
