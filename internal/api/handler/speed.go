package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/hazardmap/hazardmap/internal/api/models"
	"github.com/hazardmap/hazardmap/internal/api/response"
	"github.com/hazardmap/hazardmap/internal/geo"
	"github.com/hazardmap/hazardmap/internal/route"
)

// cautionRetention is the recommendation-to-limit ratio above which a
// location with hazards still reads as caution rather than danger.
const cautionRetention = 0.8

// SpeedHandler handles speed recommendation and route analysis endpoints.
type SpeedHandler struct {
	analyzer *route.Analyzer
}

// NewSpeedHandler creates a new SpeedHandler.
func NewSpeedHandler(analyzer *route.Analyzer) *SpeedHandler {
	return &SpeedHandler{analyzer: analyzer}
}

// Recommendations handles POST /v1/speed-recommendations.
func (h *SpeedHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	waypoints, radius, ok := h.decodeRouteRequest(w, r)
	if !ok {
		return
	}

	recs, err := h.analyzer.Recommendations(r.Context(), waypoints, radius)
	if err != nil {
		writeRouteError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.SpeedRecommendationList{
		Recommendations: models.NewSpeedRecommendations(recs),
		Count:           len(recs),
	})
}

// LocationRecommendation handles GET /v1/speed-recommendations/location -
// a single-point recommendation with a coarse safety status.
func (h *SpeedHandler) LocationRecommendation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var fieldErrs []models.FieldError
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "lat", Message: "must be a number"})
	}
	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if err != nil {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "lng", Message: "must be a number"})
	}

	var radius float64
	if raw := q.Get("searchRadiusKm"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			fieldErrs = append(fieldErrs, models.FieldError{Field: "searchRadiusKm", Message: "must be a number"})
		}
	}

	var speedLimit *int
	if raw := q.Get("speedLimit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			fieldErrs = append(fieldErrs, models.FieldError{Field: "speedLimit", Message: "must be an integer"})
		} else {
			speedLimit = &parsed
		}
	}

	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid query parameters", fieldErrs)
		return
	}

	waypoint := route.Waypoint{
		Location:   geo.Point{Lat: lat, Lng: lng},
		SpeedLimit: speedLimit,
	}
	recs, err := h.analyzer.Recommendations(r.Context(), []route.Waypoint{waypoint}, radius)
	if err != nil {
		writeRouteError(w, r, err)
		return
	}

	rec := recs[0]
	response.JSON(w, r, http.StatusOK, models.LocationRecommendation{
		Latitude:         lat,
		Longitude:        lng,
		SpeedLimit:       rec.SpeedLimit,
		RecommendedSpeed: rec.RecommendedSpeed,
		SafetyStatus:     safetyStatus(rec),
		Hazards:          models.NewNearbyHazards(rec.Hazards),
	})
}

// RouteAnalysis handles POST /v1/speed-recommendations/route-analysis.
func (h *SpeedHandler) RouteAnalysis(w http.ResponseWriter, r *http.Request) {
	waypoints, radius, ok := h.decodeRouteRequest(w, r)
	if !ok {
		return
	}

	analysis, err := h.analyzer.Analyze(r.Context(), waypoints, radius)
	if err != nil {
		writeRouteError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.NewRouteAnalysis(analysis))
}

// decodeRouteRequest parses the shared request body of the route
// endpoints. Reports false after writing an error response.
func (h *SpeedHandler) decodeRouteRequest(w http.ResponseWriter, r *http.Request) ([]route.Waypoint, float64, bool) {
	var input models.SpeedRecommendationsRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return nil, 0, false
	}

	if len(input.Waypoints) > 0 && input.Polyline != "" {
		response.BadRequest(w, r, "invalid route", []models.FieldError{
			{Field: "waypoints", Message: "provide either waypoints or polyline, not both"},
		})
		return nil, 0, false
	}

	var waypoints []route.Waypoint
	if input.Polyline != "" {
		decoded := geo.DecodePolyline(input.Polyline)
		if len(decoded) == 0 {
			response.BadRequest(w, r, "invalid route", []models.FieldError{
				{Field: "polyline", Message: "polyline decodes to no points"},
			})
			return nil, 0, false
		}
		for _, p := range decoded {
			waypoints = append(waypoints, route.Waypoint{Location: p})
		}
	} else {
		for _, wp := range input.Waypoints {
			waypoints = append(waypoints, route.Waypoint{
				Location:   geo.Point{Lat: wp.Latitude, Lng: wp.Longitude},
				SpeedLimit: wp.SpeedLimit,
			})
		}
	}

	return waypoints, input.SearchRadiusKm, true
}

// safetyStatus classifies a single-location recommendation: safe with no
// hazards around, caution while the recommendation retains most of the
// limit, danger otherwise.
func safetyStatus(rec route.SpeedRecommendation) models.SafetyStatus {
	switch {
	case len(rec.Hazards) == 0:
		return models.SafetyStatusSafe
	case float64(rec.RecommendedSpeed) > cautionRetention*float64(rec.SpeedLimit):
		return models.SafetyStatusCaution
	default:
		return models.SafetyStatusDanger
	}
}

// writeRouteError maps analyzer errors to problem responses.
func writeRouteError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, route.ErrInvalidInput) {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	response.InternalError(w, r, "internal error")
}
