package seed

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/hazardmap/hazardmap/internal/hazard"
)

// Result summarizes one seeding run.
type Result struct {
	Created int
	Failed  int
}

// Seeder loads generated hazards through the hazard service so every
// record is validated and gets a derived recommended speed.
type Seeder struct {
	service *hazard.Service
	logger  zerolog.Logger
}

// NewSeeder creates a Seeder.
func NewSeeder(service *hazard.Service, logger zerolog.Logger) *Seeder {
	return &Seeder{service: service, logger: logger}
}

// Run creates every input, logging and counting failures instead of
// aborting. A canceled context stops the run early.
func (s *Seeder) Run(ctx context.Context, inputs []hazard.CreateInput) (*Result, error) {
	result := &Result{}
	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if _, err := s.service.Create(ctx, input); err != nil {
			result.Failed++
			s.logger.Warn().
				Err(err).
				Str("road", input.RoadName).
				Msg("seed record rejected")
			continue
		}
		result.Created++
	}

	s.logger.Info().
		Int("created", result.Created).
		Int("failed", result.Failed).
		Msg("seeding complete")
	return result, nil
}
