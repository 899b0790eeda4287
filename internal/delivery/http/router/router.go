package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/catalog-etl/internal/delivery/http/handler"
	"github.com/user/catalog-etl/internal/delivery/http/middleware"
	"github.com/user/catalog-etl/pkg/metrics"
	"go.uber.org/zap"
)

// New builds the ops API. gatherer serves /metrics.
func New(h *handler.Handler, m *metrics.Metrics, gatherer prometheus.Gatherer, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics(m))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	// Prometheus metrics endpoint
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealthCheck)
		r.Post("/runs", h.HandleSubmitRun)
		r.Get("/runs/{id}", h.HandleGetRunStatus)
	})

	return r
}
