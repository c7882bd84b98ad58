// Package main provides the entrypoint for the HazardMap API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hazardmap/hazardmap/internal/api"
	"github.com/hazardmap/hazardmap/internal/api/handler"
	"github.com/hazardmap/hazardmap/internal/api/middleware"
	"github.com/hazardmap/hazardmap/internal/cache"
	"github.com/hazardmap/hazardmap/internal/database"
	"github.com/hazardmap/hazardmap/internal/hazard"
	"github.com/hazardmap/hazardmap/internal/route"
	"github.com/hazardmap/hazardmap/internal/speed"
	"github.com/hazardmap/hazardmap/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "hazardmap-api"

	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load()

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting HazardMap API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	var repo hazard.Repository = hazard.NewPostgresRepository(pool)

	readinessChecks := map[string]handler.Pinger{
		"postgres": pool.Ping,
	}

	// Redis is optional: without it queries go straight to Postgres.
	var redisClient *redis.Client
	if os.Getenv("REDIS_DISABLED") != "true" {
		redisClient, err = cache.Connect(ctx, cache.ConfigFromEnv())
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, query caching disabled")
		} else {
			defer redisClient.Close()
			cached := cache.NewHazardRepository(repo, redisClient, cache.DefaultQueryTTL, log)
			if cacheMetrics, merr := telemetry.NewCacheMetrics(); merr != nil {
				log.Warn().Err(merr).Msg("cache metrics unavailable")
			} else {
				cached.WithMetrics(cacheMetrics)
			}
			repo = cached
			readinessChecks["redis"] = func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}
			log.Info().Msg("redis query cache enabled")
		}
	}

	// Initialize domain services
	advisor := speed.NewAdvisor(speed.DefaultConfig())
	hazardService := hazard.NewService(repo, advisor)
	analyzer := route.NewAnalyzer(repo, advisor, route.DefaultAnalyzerConfig())
	log.Info().Msg("hazard and route services initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:         Version,
		BuildTime:       BuildTime,
		Logger:          log,
		ServiceName:     serviceName,
		Metrics:         metrics,
		HazardService:   hazardService,
		RouteAnalyzer:   analyzer,
		ReadinessChecks: readinessChecks,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
