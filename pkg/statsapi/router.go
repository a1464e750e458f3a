package statsapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fusexd/metacore/internal/logger"
	"github.com/fusexd/metacore/pkg/cap"
	"github.com/fusexd/metacore/pkg/registry"
)

// NewRouter builds the chi router for the stats surface: GET /healthz,
// GET /metrics, GET /debug/caps, GET /debug/clients. reg and caps may be
// nil.
func NewRouter(reg *registry.Registry, caps *cap.Store) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	h := NewHandler(reg, caps)

	r.Get("/healthz", h.Healthz)
	r.Get("/metrics", h.Metrics)
	r.Route("/debug", func(r chi.Router) {
		r.Get("/caps", h.Caps)
		r.Get("/clients", h.Clients)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Debug("stats request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		)
	})
}
