package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig carries the router's non-handler settings.
type RouterConfig struct {
	Token              string
	RateLimitPerMinute int      // defaults to 60
	AllowedOrigins     []string // defaults to any origin
	HealthChecks       []HealthCheck
	Metrics            http.Handler // defaults to promhttp.Handler()
}

// NewRouter builds and returns the Chi router with all routes configured.
// Health and metrics are unauthenticated; every other route requires bearer auth.
// Rate limiting is applied globally per client IP.
func NewRouter(handlers *Handlers, cfg RouterConfig, log *slog.Logger) *chi.Mux {
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = 60
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = promhttp.Handler()
	}

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))

	r.Get("/api/v1/health", HealthHandlerFunc(cfg.HealthChecks, log))
	r.Handle("/metrics", cfg.Metrics)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(cfg.Token))

		r.Get("/api/v1/briefings", handlers.ListBriefings)
		r.Get("/api/v1/briefings/{icao}", handlers.GetBriefing)
		r.Post("/api/v1/briefings/{icao}/refresh", handlers.RefreshBriefing)

		r.Get("/api/v1/proximity", handlers.Proximity)

		r.Get("/api/v1/airports/{icao}", handlers.GetAirport)
		r.Put("/api/v1/airports/{icao}", handlers.PutAirport)
		r.Get("/api/v1/airports/{from}/distance/{to}", handlers.AirportDistance)

		r.Post("/api/v1/operators", handlers.CreateOperator)
		r.Get("/api/v1/operators/{id}", handlers.GetOperator)
		r.Get("/api/v1/operators/{id}/flights", handlers.ListOperatorFlights)

		r.Post("/api/v1/flights", handlers.CreateFlight)
		r.Get("/api/v1/flights/{id}", handlers.GetFlight)
	})

	return r
}
