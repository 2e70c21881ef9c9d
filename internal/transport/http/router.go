// Package httptransport assembles the public HTTP surface from the module
// handlers. Handlers own their routes; this package decides which middleware
// guards them.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lokal/internal/platform/metrics"
	"lokal/internal/platform/middleware"
	"lokal/pkg/platform/httputil"
)

// RouteRegistrar mounts a module's endpoints.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// Dependencies carries everything NewRouter wires.
type Dependencies struct {
	// Auth serves /connect/* and /api/account/*; it takes no bearer token.
	Auth RouteRegistrar
	// Translations serves /api/translations/* behind bearer auth.
	Translations RouteRegistrar
	Discovery    http.HandlerFunc
	Validator    middleware.JWTValidator
	Gatherer     prometheus.Gatherer
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	CORSOrigins  []string
}

func NewRouter(d Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recovery(d.Logger, d.Metrics))
	r.Use(middleware.Logger(d.Logger, d.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{"Location", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	if d.Discovery != nil {
		r.Get("/.well-known/openid-configuration", d.Discovery)
	}

	d.Auth.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(d.Validator, d.Logger))
		d.Translations.Register(r)
	})

	return r
}
