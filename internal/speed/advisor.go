// Package speed derives safe driving speeds from nearby road hazards.
package speed

import (
	"math"

	"github.com/hazardmap/hazardmap/internal/hazard"
)

// Config holds the tuning knobs of the advisor. The severity retentions
// are the fraction of the posted limit a driver should keep when directly
// on top of a hazard of that severity.
type Config struct {
	// HighRetention is the retained fraction for high severity.
	// Default: 0.50 (midpoint of the 40-60% band).
	HighRetention float64

	// MediumRetention is the retained fraction for medium severity.
	// Default: 0.75 (midpoint of the 70-80% band).
	MediumRetention float64

	// LowRetention is the retained fraction for low severity.
	// Default: 0.90 (midpoint of the 85-95% band).
	LowRetention float64

	// MinSpeedKmh is the floor below which no recommendation drops, unless
	// the posted limit itself is lower. Default: 20.
	MinSpeedKmh int

	// MinConfidence excludes hazards below this confidence from the
	// computation. Default: 0 (confidence never gates inclusion).
	MinConfidence float64
}

// DefaultConfig returns the documented default configuration.
func DefaultConfig() Config {
	return Config{
		HighRetention:   0.50,
		MediumRetention: 0.75,
		LowRetention:    0.90,
		MinSpeedKmh:     20,
	}
}

// Recommendation is the advisor output for one location.
type Recommendation struct {
	// SpeedLimit is the posted limit the recommendation is relative to.
	SpeedLimit int

	// RecommendedSpeed is the derived safe speed in km/h. Always positive
	// and never above SpeedLimit.
	RecommendedSpeed int

	// Contributing lists the hazards that were inside the search radius,
	// sorted by ascending distance.
	Contributing []hazard.Nearby
}

// SpeedReduction returns the reduction relative to the posted limit.
func (r Recommendation) SpeedReduction() int {
	return r.SpeedLimit - r.RecommendedSpeed
}

// Advisor computes speed recommendations. It is pure and safe for
// concurrent use.
type Advisor struct {
	cfg Config
}

// NewAdvisor creates an Advisor, backfilling zero config values with the
// defaults.
func NewAdvisor(cfg Config) *Advisor {
	def := DefaultConfig()
	if cfg.HighRetention <= 0 {
		cfg.HighRetention = def.HighRetention
	}
	if cfg.MediumRetention <= 0 {
		cfg.MediumRetention = def.MediumRetention
	}
	if cfg.LowRetention <= 0 {
		cfg.LowRetention = def.LowRetention
	}
	if cfg.MinSpeedKmh <= 0 {
		cfg.MinSpeedKmh = def.MinSpeedKmh
	}
	return &Advisor{cfg: cfg}
}

// Recommend derives the safe speed for a location given the hazards within
// searchRadiusKm. A hazard's reduction weakens linearly with distance: full
// effect at the location, no effect at the radius boundary. When several
// hazards are in range the most conservative one wins.
func (a *Advisor) Recommend(speedLimit int, nearby []hazard.Nearby, searchRadiusKm float64) Recommendation {
	rec := Recommendation{
		SpeedLimit:       speedLimit,
		RecommendedSpeed: speedLimit,
	}
	if speedLimit <= 0 || searchRadiusKm <= 0 {
		return rec
	}

	minFraction := 1.0
	for _, n := range nearby {
		if n.DistanceKm > searchRadiusKm {
			continue
		}
		if a.cfg.MinConfidence > 0 && n.Hazard.Confidence < a.cfg.MinConfidence {
			continue
		}

		base := a.retention(n.Hazard.Severity)
		// Linear falloff: a hazard at the radius boundary has no effect.
		effective := 1 - (1-base)*(1-n.DistanceKm/searchRadiusKm)
		if effective < minFraction {
			minFraction = effective
		}

		rec.Contributing = append(rec.Contributing, n)
	}

	hazard.SortNearby(rec.Contributing)
	rec.RecommendedSpeed = a.clamp(int(math.Round(float64(speedLimit)*minFraction)), speedLimit)
	return rec
}

// RecommendAtHazard derives the stored recommendation for a hazard record
// itself: the hazard is the only obstacle, at distance zero, so the base
// severity retention applies in full.
func (a *Advisor) RecommendAtHazard(speedLimit int, severity hazard.Severity) int {
	if speedLimit <= 0 {
		return 0
	}
	raw := int(math.Round(float64(speedLimit) * a.retention(severity)))
	return a.clamp(raw, speedLimit)
}

func (a *Advisor) retention(sev hazard.Severity) float64 {
	switch sev {
	case hazard.SeverityHigh:
		return a.cfg.HighRetention
	case hazard.SeverityMedium:
		return a.cfg.MediumRetention
	default:
		return a.cfg.LowRetention
	}
}

// clamp bounds the recommendation to [min(MinSpeedKmh, limit), limit],
// keeping it positive even for limits below the safety floor.
func (a *Advisor) clamp(speed, limit int) int {
	floor := a.cfg.MinSpeedKmh
	if limit < floor {
		floor = limit
	}
	if floor < 1 {
		floor = 1
	}
	if speed < floor {
		return floor
	}
	if speed > limit {
		return limit
	}
	return speed
}
