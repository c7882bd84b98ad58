// Package main provides the demo-data seeder for HazardMap. It generates
// a realistic Peshawar hazard set and loads it through the hazard service.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/hazardmap/hazardmap/internal/database"
	"github.com/hazardmap/hazardmap/internal/hazard"
	"github.com/hazardmap/hazardmap/internal/seed"
	"github.com/hazardmap/hazardmap/internal/speed"
)

func main() {
	count := flag.Int("count", 250, "number of hazards to generate")
	rngSeed := flag.Int64("seed", 0, "random seed (0 = from clock)")
	flag.Parse()

	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", "hazardmap-seed").
		Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.Connect(ctx, database.ConfigFromEnv())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	service := hazard.NewService(
		hazard.NewPostgresRepository(pool),
		speed.NewAdvisor(speed.DefaultConfig()),
	)

	generator := seed.NewGenerator(seed.GeneratorConfig{
		Count: *count,
		Seed:  *rngSeed,
	})

	result, err := seed.NewSeeder(service, log).Run(ctx, generator.Generate())
	if err != nil {
		log.Fatal().Err(err).Int("created", result.Created).Msg("seeding aborted")
	}
	if result.Failed > 0 {
		os.Exit(1)
	}
}
