// Package route analyzes planned routes against the hazard map, producing
// per-waypoint speed recommendations and a route-level safety verdict.
package route

import (
	"errors"

	"github.com/hazardmap/hazardmap/internal/geo"
	"github.com/hazardmap/hazardmap/internal/hazard"
)

// Analyzer errors.
var (
	ErrInvalidInput = errors.New("invalid route input")
)

// Waypoint is one point of an ordered route, optionally carrying a local
// speed-limit override.
type Waypoint struct {
	Location geo.Point

	// SpeedLimit overrides the effective limit at this waypoint. When nil
	// the analyzer falls back to the nearest hazard's stored limit, then
	// to the configured default.
	SpeedLimit *int
}

// SafetyLevel is the discrete classification of overall route risk.
type SafetyLevel string

const (
	SafetySafe         SafetyLevel = "safe"
	SafetyLowRisk      SafetyLevel = "low_risk"
	SafetyModerateRisk SafetyLevel = "moderate_risk"
	SafetyHighRisk     SafetyLevel = "high_risk"
)

// SpeedRecommendation is the per-waypoint advisor output. It is transient:
// owned by the caller, never persisted.
type SpeedRecommendation struct {
	WaypointIndex    int
	Location         geo.Point
	SpeedLimit       int
	RecommendedSpeed int
	SpeedReduction   int

	// Hazards lists the contributing hazards sorted by ascending distance
	// to the waypoint.
	Hazards []hazard.Nearby
}

// Analysis aggregates the recommendations of a whole route.
type Analysis struct {
	TotalWaypoints int

	// TotalDistanceKm is the great-circle length of the waypoint polyline.
	TotalDistanceKm float64

	// TotalHazards counts distinct hazards across all waypoints; a hazard
	// near several consecutive waypoints counts once.
	TotalHazards int

	AverageSpeedReduction float64
	SafetyLevel           SafetyLevel

	// HazardDistribution and SeverityDistribution count the de-duplicated
	// hazard set by type and severity.
	HazardDistribution   map[hazard.Type]int
	SeverityDistribution map[hazard.Severity]int

	// MostDangerousSegment is the recommendation with the largest speed
	// reduction; ties resolve to the earliest waypoint. Nil for routes
	// with no waypoints is impossible since empty routes are rejected.
	MostDangerousSegment *SpeedRecommendation

	EstimatedExtraTimeMinutes float64

	Recommendations []SpeedRecommendation
}
