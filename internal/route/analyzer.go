package route

import (
	"context"
	"fmt"
	"math"

	"github.com/hazardmap/hazardmap/internal/geo"
	"github.com/hazardmap/hazardmap/internal/hazard"
	"github.com/hazardmap/hazardmap/internal/speed"
)

// HazardSource answers radius queries against the hazard store. Satisfied
// by hazard.Repository.
type HazardSource interface {
	QueryRadius(ctx context.Context, center geo.Point, radiusKm float64) ([]hazard.Nearby, error)
}

// AnalyzerConfig holds the analyzer policy constants.
type AnalyzerConfig struct {
	// DefaultSpeedLimit applies when a waypoint has no override and no
	// hazard nearby carries a stored limit. Default: 50 km/h.
	DefaultSpeedLimit int

	// DefaultSearchRadiusKm applies when the caller passes a zero radius.
	// Default: 1.0.
	DefaultSearchRadiusKm float64

	// Safety classification cut points, as ratios of average speed
	// reduction over average speed limit. Ratios keep the verdict
	// consistent across 30 km/h and 80 km/h roads.
	SafeRatio         float64 // default 0.05
	LowRiskRatio      float64 // default 0.15
	ModerateRiskRatio float64 // default 0.30
}

// DefaultAnalyzerConfig returns the documented default policy.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		DefaultSpeedLimit:     50,
		DefaultSearchRadiusKm: 1.0,
		SafeRatio:             0.05,
		LowRiskRatio:          0.15,
		ModerateRiskRatio:     0.30,
	}
}

// Analyzer computes per-waypoint recommendations and route-level safety
// summaries. It is stateless and safe for concurrent use.
type Analyzer struct {
	source  HazardSource
	advisor *speed.Advisor
	cfg     AnalyzerConfig
}

// NewAnalyzer creates an Analyzer, backfilling zero config values with the
// defaults.
func NewAnalyzer(source HazardSource, advisor *speed.Advisor, cfg AnalyzerConfig) *Analyzer {
	def := DefaultAnalyzerConfig()
	if cfg.DefaultSpeedLimit <= 0 {
		cfg.DefaultSpeedLimit = def.DefaultSpeedLimit
	}
	if cfg.DefaultSearchRadiusKm <= 0 {
		cfg.DefaultSearchRadiusKm = def.DefaultSearchRadiusKm
	}
	if cfg.SafeRatio <= 0 {
		cfg.SafeRatio = def.SafeRatio
	}
	if cfg.LowRiskRatio <= 0 {
		cfg.LowRiskRatio = def.LowRiskRatio
	}
	if cfg.ModerateRiskRatio <= 0 {
		cfg.ModerateRiskRatio = def.ModerateRiskRatio
	}
	return &Analyzer{source: source, advisor: advisor, cfg: cfg}
}

// Recommendations computes one SpeedRecommendation per waypoint, in route
// order. A zero searchRadiusKm selects the configured default; a negative
// one is an input error.
func (a *Analyzer) Recommendations(ctx context.Context, waypoints []Waypoint, searchRadiusKm float64) ([]SpeedRecommendation, error) {
	radius, err := a.validate(waypoints, searchRadiusKm)
	if err != nil {
		return nil, err
	}

	recs := make([]SpeedRecommendation, 0, len(waypoints))
	for i, wp := range waypoints {
		nearby, err := a.source.QueryRadius(ctx, wp.Location, radius)
		if err != nil {
			// Store failures propagate unmodified: an empty result must
			// always mean "no hazards found".
			return nil, fmt.Errorf("query hazards for waypoint %d: %w", i, err)
		}

		limit := a.effectiveLimit(wp, nearby)
		rec := a.advisor.Recommend(limit, nearby, radius)

		recs = append(recs, SpeedRecommendation{
			WaypointIndex:    i,
			Location:         wp.Location,
			SpeedLimit:       limit,
			RecommendedSpeed: rec.RecommendedSpeed,
			SpeedReduction:   rec.SpeedReduction(),
			Hazards:          rec.Contributing,
		})
	}
	return recs, nil
}

// Analyze runs Recommendations and aggregates them into a route-level
// Analysis. A single waypoint yields a degenerate analysis with zero
// segments and zero extra time.
func (a *Analyzer) Analyze(ctx context.Context, waypoints []Waypoint, searchRadiusKm float64) (*Analysis, error) {
	recs, err := a.Recommendations(ctx, waypoints, searchRadiusKm)
	if err != nil {
		return nil, err
	}

	path := make([]geo.Point, len(waypoints))
	for i, wp := range waypoints {
		path[i] = wp.Location
	}

	analysis := &Analysis{
		TotalWaypoints:       len(waypoints),
		TotalDistanceKm:      geo.PathLength(path),
		HazardDistribution:   make(map[hazard.Type]int),
		SeverityDistribution: make(map[hazard.Severity]int),
		Recommendations:      recs,
	}

	// De-duplicate hazards across waypoints before counting.
	seen := make(map[string]*hazard.Hazard)
	for _, rec := range recs {
		for _, n := range rec.Hazards {
			if _, ok := seen[n.Hazard.ID]; !ok {
				seen[n.Hazard.ID] = n.Hazard
			}
		}
	}
	analysis.TotalHazards = len(seen)
	for _, h := range seen {
		analysis.HazardDistribution[h.Type]++
		analysis.SeverityDistribution[h.Severity]++
	}

	var totalReduction, totalLimit int
	for i := range recs {
		totalReduction += recs[i].SpeedReduction
		totalLimit += recs[i].SpeedLimit

		if analysis.MostDangerousSegment == nil ||
			recs[i].SpeedReduction > analysis.MostDangerousSegment.SpeedReduction {
			analysis.MostDangerousSegment = &recs[i]
		}
	}
	analysis.AverageSpeedReduction = float64(totalReduction) / float64(len(recs))

	avgLimit := float64(totalLimit) / float64(len(recs))
	analysis.SafetyLevel = a.classify(analysis.AverageSpeedReduction / avgLimit)

	analysis.EstimatedExtraTimeMinutes = extraTravelMinutes(recs)
	return analysis, nil
}

func (a *Analyzer) validate(waypoints []Waypoint, searchRadiusKm float64) (float64, error) {
	if len(waypoints) == 0 {
		return 0, fmt.Errorf("%w: route has no waypoints", ErrInvalidInput)
	}
	if searchRadiusKm < 0 {
		return 0, fmt.Errorf("%w: search radius must not be negative", ErrInvalidInput)
	}
	for i, wp := range waypoints {
		if !wp.Location.Valid() {
			return 0, fmt.Errorf("%w: waypoint %d has out-of-range coordinates", ErrInvalidInput, i)
		}
		if wp.SpeedLimit != nil && *wp.SpeedLimit <= 0 {
			return 0, fmt.Errorf("%w: waypoint %d has a non-positive speed limit", ErrInvalidInput, i)
		}
	}
	if searchRadiusKm == 0 {
		return a.cfg.DefaultSearchRadiusKm, nil
	}
	return searchRadiusKm, nil
}

// effectiveLimit resolves the speed limit at a waypoint: explicit override,
// else the stored limit of the nearest hazard, else the default.
func (a *Analyzer) effectiveLimit(wp Waypoint, nearby []hazard.Nearby) int {
	if wp.SpeedLimit != nil {
		return *wp.SpeedLimit
	}

	nearestDist := math.Inf(1)
	limit := 0
	for _, n := range nearby {
		if n.DistanceKm < nearestDist && n.Hazard.SpeedLimit > 0 {
			nearestDist = n.DistanceKm
			limit = n.Hazard.SpeedLimit
		}
	}
	if limit > 0 {
		return limit
	}
	return a.cfg.DefaultSpeedLimit
}

func (a *Analyzer) classify(reductionRatio float64) SafetyLevel {
	switch {
	case reductionRatio < a.cfg.SafeRatio:
		return SafetySafe
	case reductionRatio < a.cfg.LowRiskRatio:
		return SafetyLowRisk
	case reductionRatio < a.cfg.ModerateRiskRatio:
		return SafetyModerateRisk
	default:
		return SafetyHighRisk
	}
}

// extraTravelMinutes estimates the added travel time of driving each
// segment at its recommended speed instead of the posted limit. Each
// segment is governed by its starting waypoint's recommendation.
func extraTravelMinutes(recs []SpeedRecommendation) float64 {
	var extraHours float64
	for i := 0; i < len(recs)-1; i++ {
		d := geo.Distance(recs[i].Location, recs[i+1].Location)
		rec := float64(recs[i].RecommendedSpeed)
		limit := float64(recs[i].SpeedLimit)
		if rec <= 0 || limit <= 0 {
			continue
		}
		extraHours += d/rec - d/limit
	}
	return extraHours * 60
}
