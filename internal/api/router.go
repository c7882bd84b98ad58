// Package api provides the HTTP API for HazardMap.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/hazardmap/hazardmap/internal/api/handler"
	"github.com/hazardmap/hazardmap/internal/api/middleware"
	"github.com/hazardmap/hazardmap/internal/hazard"
	"github.com/hazardmap/hazardmap/internal/route"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version       string
	BuildTime     string
	Logger        zerolog.Logger
	ServiceName   string
	Metrics       *middleware.Metrics
	HazardService *hazard.Service
	RouteAnalyzer *route.Analyzer

	// ReadinessChecks maps subsystem names to their probes.
	ReadinessChecks map[string]handler.Pinger
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "hazardmap-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.ReadinessChecks)
	hazardHandler := handler.NewHazardHandler(cfg.HazardService)
	speedHandler := handler.NewSpeedHandler(cfg.RouteAnalyzer)

	// Route compute endpoints do a spatial query per waypoint; they get
	// the stricter limit.
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public, unmetered)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
		})

		// Hazard CRUD and queries
		r.Route("/hazards", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", hazardHandler.QueryHazards)
			r.Post("/", hazardHandler.CreateHazard)
			r.Get("/nearby", hazardHandler.NearbyHazards)
			r.With(expensiveRateLimit).Post("/route", hazardHandler.RouteHazards)
			r.Route("/{hazardId}", func(r chi.Router) {
				r.Get("/", hazardHandler.GetHazard)
				r.Put("/", hazardHandler.UpdateHazard)
				r.Delete("/", hazardHandler.DeleteHazard)
			})
		})

		// Speed recommendations and route analysis
		r.Route("/speed-recommendations", func(r chi.Router) {
			r.With(standardRateLimit).Get("/location", speedHandler.LocationRecommendation)
			r.With(expensiveRateLimit).Post("/", speedHandler.Recommendations)
			r.With(expensiveRateLimit).Post("/route-analysis", speedHandler.RouteAnalysis)
		})
	})

	return r
}
