package seed_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazardmap/hazardmap/internal/hazard"
	"github.com/hazardmap/hazardmap/internal/seed"
	"github.com/hazardmap/hazardmap/internal/speed"
)

func TestGenerator_CountAndValidity(t *testing.T) {
	gen := seed.NewGenerator(seed.GeneratorConfig{Count: 100, Seed: 42})
	inputs := gen.Generate()

	require.Len(t, inputs, 100)
	for _, in := range inputs {
		assert.True(t, in.Location.Valid(), "coordinates in range")
		_, err := hazard.ParseType(in.Type)
		assert.NoError(t, err)
		_, err = hazard.ParseSeverity(in.Severity)
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, in.Confidence, 0.6)
		assert.LessOrEqual(t, in.Confidence, 0.95)
		assert.Positive(t, in.SpeedLimit)
		assert.NotEmpty(t, in.RoadName)
		assert.NotEmpty(t, in.Area)
		assert.False(t, in.DetectedAt.After(time.Now().Add(time.Minute)))
		assert.Zero(t, in.RecommendedSpeed, "left for the service to derive")
	}
}

func TestGenerator_Reproducible(t *testing.T) {
	a := seed.NewGenerator(seed.GeneratorConfig{Count: 20, Seed: 7}).Generate()
	b := seed.NewGenerator(seed.GeneratorConfig{Count: 20, Seed: 7}).Generate()

	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].Location, b[i].Location)
		assert.Equal(t, a[i].Type, b[i].Type)
		assert.Equal(t, a[i].Severity, b[i].Severity)
	}
}

func TestGenerator_RoadFraction(t *testing.T) {
	gen := seed.NewGenerator(seed.GeneratorConfig{Count: 200, NearRoadFraction: 0.7, Seed: 11})
	inputs := gen.Generate()

	known := make(map[string]bool)
	for _, road := range seed.PeshawarRoads() {
		known[road.Name] = true
	}

	onRoad := 0
	for _, in := range inputs {
		if known[in.RoadName] {
			onRoad++
		}
	}
	assert.Equal(t, 140, onRoad)
}

func TestSeeder_LoadsThroughService(t *testing.T) {
	service := hazard.NewService(hazard.NewMemoryRepository(), speed.NewAdvisor(speed.DefaultConfig()))
	seeder := seed.NewSeeder(service, zerolog.Nop())

	inputs := seed.NewGenerator(seed.GeneratorConfig{Count: 50, Seed: 3}).Generate()
	result, err := seeder.Run(context.Background(), inputs)

	require.NoError(t, err)
	assert.Equal(t, 50, result.Created)
	assert.Zero(t, result.Failed)
}

func TestSeeder_StopsOnCanceledContext(t *testing.T) {
	service := hazard.NewService(hazard.NewMemoryRepository(), speed.NewAdvisor(speed.DefaultConfig()))
	seeder := seed.NewSeeder(service, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inputs := seed.NewGenerator(seed.GeneratorConfig{Count: 10, Seed: 3}).Generate()
	result, err := seeder.Run(ctx, inputs)

	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, result.Created)
}
