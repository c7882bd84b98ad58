package models

import (
	"github.com/hazardmap/hazardmap/internal/route"
)

// RouteWaypoint is one waypoint of a recommendation request, optionally
// carrying a local speed-limit override.
type RouteWaypoint struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	SpeedLimit *int    `json:"speedLimit,omitempty"`
}

// SpeedRecommendationsRequest is the body of POST /v1/speed-recommendations
// and POST /v1/speed-recommendations/route-analysis. Exactly one of
// Waypoints or Polyline must be set.
type SpeedRecommendationsRequest struct {
	Waypoints      []RouteWaypoint `json:"waypoints,omitempty"`
	Polyline       string          `json:"polyline,omitempty"`
	SearchRadiusKm float64         `json:"searchRadiusKm,omitempty"`
}

// SpeedRecommendation is the per-waypoint advisor output.
type SpeedRecommendation struct {
	WaypointIndex    int            `json:"waypointIndex"`
	Latitude         float64        `json:"latitude"`
	Longitude        float64        `json:"longitude"`
	SpeedLimit       int            `json:"speedLimit"`
	RecommendedSpeed int            `json:"recommendedSpeed"`
	SpeedReduction   int            `json:"speedReduction"`
	Hazards          []NearbyHazard `json:"hazards"`
}

// NewSpeedRecommendation converts a domain recommendation.
func NewSpeedRecommendation(rec route.SpeedRecommendation) SpeedRecommendation {
	return SpeedRecommendation{
		WaypointIndex:    rec.WaypointIndex,
		Latitude:         rec.Location.Lat,
		Longitude:        rec.Location.Lng,
		SpeedLimit:       rec.SpeedLimit,
		RecommendedSpeed: rec.RecommendedSpeed,
		SpeedReduction:   rec.SpeedReduction,
		Hazards:          NewNearbyHazards(rec.Hazards),
	}
}

// NewSpeedRecommendations converts a slice of domain recommendations.
func NewSpeedRecommendations(recs []route.SpeedRecommendation) []SpeedRecommendation {
	out := make([]SpeedRecommendation, 0, len(recs))
	for _, rec := range recs {
		out = append(out, NewSpeedRecommendation(rec))
	}
	return out
}

// SpeedRecommendationList is the response of POST /v1/speed-recommendations.
type SpeedRecommendationList struct {
	Recommendations []SpeedRecommendation `json:"recommendations"`
	Count           int                   `json:"count"`
}

// LocationRecommendation is the response of
// GET /v1/speed-recommendations/location.
type LocationRecommendation struct {
	Latitude         float64        `json:"latitude"`
	Longitude        float64        `json:"longitude"`
	SpeedLimit       int            `json:"speedLimit"`
	RecommendedSpeed int            `json:"recommendedSpeed"`
	SafetyStatus     SafetyStatus   `json:"safetyStatus"`
	Hazards          []NearbyHazard `json:"hazards"`
}

// RouteAnalysis is the response of
// POST /v1/speed-recommendations/route-analysis.
type RouteAnalysis struct {
	TotalWaypoints            int                   `json:"totalWaypoints"`
	TotalDistanceKm           float64               `json:"totalDistanceKm"`
	TotalHazards              int                   `json:"totalHazards"`
	AverageSpeedReduction     float64               `json:"averageSpeedReduction"`
	SafetyLevel               string                `json:"safetyLevel"`
	HazardDistribution        map[string]int        `json:"hazardDistribution"`
	SeverityDistribution      map[string]int        `json:"severityDistribution"`
	MostDangerousSegment      *SpeedRecommendation  `json:"mostDangerousSegment,omitempty"`
	EstimatedExtraTimeMinutes float64               `json:"estimatedExtraTimeMinutes"`
	Recommendations           []SpeedRecommendation `json:"recommendations"`
}

// NewRouteAnalysis converts a domain analysis.
func NewRouteAnalysis(a *route.Analysis) RouteAnalysis {
	hazardDist := make(map[string]int, len(a.HazardDistribution))
	for typ, n := range a.HazardDistribution {
		hazardDist[string(typ)] = n
	}
	severityDist := make(map[string]int, len(a.SeverityDistribution))
	for sev, n := range a.SeverityDistribution {
		severityDist[string(sev)] = n
	}

	analysis := RouteAnalysis{
		TotalWaypoints:            a.TotalWaypoints,
		TotalDistanceKm:           a.TotalDistanceKm,
		TotalHazards:              a.TotalHazards,
		AverageSpeedReduction:     a.AverageSpeedReduction,
		SafetyLevel:               string(a.SafetyLevel),
		HazardDistribution:        hazardDist,
		SeverityDistribution:      severityDist,
		EstimatedExtraTimeMinutes: a.EstimatedExtraTimeMinutes,
		Recommendations:           NewSpeedRecommendations(a.Recommendations),
	}
	if a.MostDangerousSegment != nil {
		seg := NewSpeedRecommendation(*a.MostDangerousSegment)
		analysis.MostDangerousSegment = &seg
	}
	return analysis
}
