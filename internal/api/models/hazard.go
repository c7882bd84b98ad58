package models

import (
	"github.com/hazardmap/hazardmap/internal/hazard"
)

// Hazard is the API representation of a stored hazard.
type Hazard struct {
	ID               string    `json:"id"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	Type             string    `json:"type"`
	Severity         string    `json:"severity"`
	Confidence       float64   `json:"confidence"`
	DetectedAt       Timestamp `json:"detectedAt"`
	SpeedLimit       int       `json:"speedLimit"`
	RecommendedSpeed int       `json:"recommendedSpeed"`
	Verified         bool      `json:"verified"`
	RoadName         string    `json:"roadName"`
	Area             string    `json:"area"`
	ImagePath        *string   `json:"imagePath,omitempty"`
	WeatherCondition *string   `json:"weatherCondition,omitempty"`
	CreatedAt        Timestamp `json:"createdAt"`
	UpdatedAt        Timestamp `json:"updatedAt"`
}

// NewHazard converts a domain hazard to its API representation.
func NewHazard(h *hazard.Hazard) Hazard {
	return Hazard{
		ID:               h.ID,
		Latitude:         h.Location.Lat,
		Longitude:        h.Location.Lng,
		Type:             string(h.Type),
		Severity:         string(h.Severity),
		Confidence:       h.Confidence,
		DetectedAt:       Timestamp(h.DetectedAt),
		SpeedLimit:       h.SpeedLimit,
		RecommendedSpeed: h.RecommendedSpeed,
		Verified:         h.Verified,
		RoadName:         h.RoadName,
		Area:             h.Area,
		ImagePath:        h.ImagePath,
		WeatherCondition: h.WeatherCondition,
		CreatedAt:        Timestamp(h.CreatedAt),
		UpdatedAt:        Timestamp(h.UpdatedAt),
	}
}

// NewHazards converts a slice of domain hazards.
func NewHazards(hs []*hazard.Hazard) []Hazard {
	out := make([]Hazard, 0, len(hs))
	for _, h := range hs {
		out = append(out, NewHazard(h))
	}
	return out
}

// HazardCreateRequest is the body of POST /v1/hazards.
type HazardCreateRequest struct {
	Latitude         float64    `json:"latitude"`
	Longitude        float64    `json:"longitude"`
	Type             string     `json:"type"`
	Severity         string     `json:"severity"`
	Confidence       float64    `json:"confidence"`
	DetectedAt       *Timestamp `json:"detectedAt,omitempty"`
	SpeedLimit       int        `json:"speedLimit"`
	RecommendedSpeed int        `json:"recommendedSpeed,omitempty"`
	RoadName         string     `json:"roadName"`
	Area             string     `json:"area"`
	ImagePath        *string    `json:"imagePath,omitempty"`
	WeatherCondition *string    `json:"weatherCondition,omitempty"`
}

// HazardUpdateRequest is the body of PUT /v1/hazards/{hazardId}.
// Absent fields are left unchanged.
type HazardUpdateRequest struct {
	Severity         *string `json:"severity,omitempty"`
	RecommendedSpeed *int    `json:"recommendedSpeed,omitempty"`
	Verified         *bool   `json:"verified,omitempty"`
	WeatherCondition *string `json:"weatherCondition,omitempty"`
}

// HazardList is the response of the hazard query endpoints.
type HazardList struct {
	Hazards []Hazard `json:"hazards"`
	Count   int      `json:"count"`
}

// NearbyHazard is a hazard with its distance to the query center or
// route.
type NearbyHazard struct {
	Hazard
	DistanceKm float64 `json:"distanceKm"`
}

// NewNearbyHazards converts domain nearby results.
func NewNearbyHazards(ns []hazard.Nearby) []NearbyHazard {
	out := make([]NearbyHazard, 0, len(ns))
	for _, n := range ns {
		out = append(out, NearbyHazard{
			Hazard:     NewHazard(n.Hazard),
			DistanceKm: n.DistanceKm,
		})
	}
	return out
}

// NearbyHazardList is the response of GET /v1/hazards/nearby and
// POST /v1/hazards/route.
type NearbyHazardList struct {
	Hazards []NearbyHazard `json:"hazards"`
	Count   int            `json:"count"`
}

// RouteHazardsRequest is the body of POST /v1/hazards/route. Exactly one
// of Waypoints or Polyline must be set.
type RouteHazardsRequest struct {
	Waypoints []Point `json:"waypoints,omitempty"`
	Polyline  string  `json:"polyline,omitempty"`
	BufferKm  float64 `json:"bufferKm,omitempty"`
}
