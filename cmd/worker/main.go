// Package main provides the entrypoint for the HazardMap ingest worker.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hazardmap/hazardmap/internal/cache"
	"github.com/hazardmap/hazardmap/internal/database"
	"github.com/hazardmap/hazardmap/internal/detector"
	"github.com/hazardmap/hazardmap/internal/hazard"
	"github.com/hazardmap/hazardmap/internal/speed"
	"github.com/hazardmap/hazardmap/internal/telemetry"
	"github.com/hazardmap/hazardmap/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "hazardmap-worker"

	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting HazardMap worker")

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8081"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	var repo hazard.Repository = hazard.NewPostgresRepository(pool)

	// Redis is optional; ingest writes still bump the cache generation
	// when it is available so API reads stay fresh.
	if os.Getenv("REDIS_DISABLED") != "true" {
		var redisClient *redis.Client
		redisClient, err = cache.Connect(ctx, cache.ConfigFromEnv())
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, continuing without cache")
		} else {
			defer redisClient.Close()
			repo = cache.NewHazardRepository(repo, redisClient, cache.DefaultQueryTTL, log)
		}
	}

	advisor := speed.NewAdvisor(speed.DefaultConfig())
	hazardService := hazard.NewService(repo, advisor)

	// Detection feed client
	feedMetrics, err := telemetry.NewFeedMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("feed metrics unavailable")
	}
	feed := detector.NewClient(detector.ClientConfig{
		BaseURL: os.Getenv("DETECTOR_FEED_URL"),
		Metrics: feedMetrics,
	})

	ingestJob := worker.NewIngestJob(worker.IngestJobConfig{
		Config:        worker.DefaultIngestConfig(),
		Logger:        log,
		Feed:          feed,
		HazardService: hazardService,
	})

	// Pub/Sub subscription is optional; without it the worker runs on a
	// local ticker only.
	var pubsubHandler *worker.PubSubHandler
	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	if projectID != "" {
		subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
		if subscription == "" {
			subscription = "hazardmap-jobs"
		}
		pubsubHandler, err = worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        projectID,
			SubscriptionName: subscription,
			IngestJob:        ingestJob,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer pubsubHandler.Close()

		go func() {
			log.Info().
				Str("project", projectID).
				Str("subscription", subscription).
				Msg("pubsub handler listening")
			if err := pubsubHandler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	}

	// Health endpoint for the orchestrator, with ingest metrics attached.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","version":%q,"breaker":%q}`,
			Version, feed.BreakerState().String())
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Periodic ingest loop. The first run happens immediately so a fresh
	// deployment does not wait a full interval for data.
	interval := 5 * time.Minute
	if raw := os.Getenv("INGEST_INTERVAL_SECONDS"); raw != "" {
		if secs, parseErr := strconv.Atoi(raw); parseErr == nil && secs > 0 {
			interval = time.Duration(secs) * time.Second
		}
	}

	go func() {
		runIngest := func() {
			result := ingestJob.Run(ctx)
			log.Info().
				Int("fetched", result.Fetched).
				Int("created", result.Created).
				Int("rejected", result.Rejected).
				Int("duplicates", result.Duplicates).
				Int("failed", result.Failed).
				Msg("ingest run complete")
			ingestJob.WarmCache(ctx)
		}

		runIngest()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runIngest()
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
