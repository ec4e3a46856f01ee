package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	probe_middleware "github.com/discipl/ipv8-healthcheck/probe/internal/api/middleware"
	probehttp "github.com/discipl/ipv8-healthcheck/probe/internal/delivery/http"
)

// RouterConfig defines the dependencies of the sidecar routing tree.
type RouterConfig struct {
	AllowedOrigins []string
	HealthHandler  *probehttp.HealthHandler
	EventsHandler  *probehttp.EventsHandler
	Gatherer       prometheus.Gatherer
	Logger         *slog.Logger
}

// NewRouter constructs the Chi multiplexer for the sidecar.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(probe_middleware.StructuredLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	// Read-only surface: dashboards may read /events from the browser
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Cache-Control", "Last-Event-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", cfg.HealthHandler.Check)
	r.Get("/events", cfg.EventsHandler.Stream)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	return r
}
