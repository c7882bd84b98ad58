// Package handler provides HTTP handlers for the HazardMap API.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazardmap/hazardmap/internal/api/models"
	"github.com/hazardmap/hazardmap/internal/api/response"
	"github.com/hazardmap/hazardmap/internal/geo"
	"github.com/hazardmap/hazardmap/internal/hazard"
)

const (
	defaultHoursBack   = 24
	defaultNearbyKm    = 1.0
	defaultRouteBuffer = 0.5
)

// HazardHandler handles hazard CRUD and query endpoints.
type HazardHandler struct {
	service *hazard.Service
}

// NewHazardHandler creates a new HazardHandler.
func NewHazardHandler(service *hazard.Service) *HazardHandler {
	return &HazardHandler{service: service}
}

// CreateHazard handles POST /v1/hazards.
func (h *HazardHandler) CreateHazard(w http.ResponseWriter, r *http.Request) {
	var input models.HazardCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	in := hazard.CreateInput{
		Location:         geo.Point{Lat: input.Latitude, Lng: input.Longitude},
		Type:             input.Type,
		Severity:         input.Severity,
		Confidence:       input.Confidence,
		SpeedLimit:       input.SpeedLimit,
		RecommendedSpeed: input.RecommendedSpeed,
		RoadName:         input.RoadName,
		Area:             input.Area,
		ImagePath:        input.ImagePath,
		WeatherCondition: input.WeatherCondition,
	}
	if input.DetectedAt != nil {
		in.DetectedAt = input.DetectedAt.Time()
	}

	created, err := h.service.Create(r.Context(), in)
	if err != nil {
		writeHazardError(w, r, err)
		return
	}

	location := fmt.Sprintf("/v1/hazards/%s", created.ID)
	response.Created(w, r, location, models.NewHazard(created))
}

// GetHazard handles GET /v1/hazards/{hazardId}.
func (h *HazardHandler) GetHazard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "hazardId")

	found, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeHazardError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.NewHazard(found))
}

// UpdateHazard handles PUT /v1/hazards/{hazardId}.
func (h *HazardHandler) UpdateHazard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "hazardId")

	var input models.HazardUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	updated, err := h.service.Update(r.Context(), id, hazard.UpdateInput{
		Severity:         input.Severity,
		RecommendedSpeed: input.RecommendedSpeed,
		Verified:         input.Verified,
		WeatherCondition: input.WeatherCondition,
	})
	if err != nil {
		writeHazardError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.NewHazard(updated))
}

// DeleteHazard handles DELETE /v1/hazards/{hazardId}. Deletes are
// idempotent: an absent id still returns 204.
func (h *HazardHandler) DeleteHazard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "hazardId")

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeHazardError(w, r, err)
		return
	}
	response.NoContent(w, r)
}

// QueryHazards handles GET /v1/hazards - bounding box query with filters.
func (h *HazardHandler) QueryHazards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	box, fieldErrs := parseBounds(q.Get("minLat"), q.Get("minLng"), q.Get("maxLat"), q.Get("maxLng"))
	filter, filterErrs := parseFilter(q.Get("type"), q.Get("severity"), q.Get("hoursBack"), q.Get("verifiedOnly"))
	fieldErrs = append(fieldErrs, filterErrs...)
	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid query parameters", fieldErrs)
		return
	}

	hazards, err := h.service.QueryBounds(r.Context(), box, filter)
	if err != nil {
		writeHazardError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.HazardList{
		Hazards: models.NewHazards(hazards),
		Count:   len(hazards),
	})
}

// NearbyHazards handles GET /v1/hazards/nearby - radius query.
func (h *HazardHandler) NearbyHazards(w http.ResponseWriter, r *http.Request) {
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

	radiusKm := defaultNearbyKm
	if raw := q.Get("radiusKm"); raw != "" {
		radiusKm, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			fieldErrs = append(fieldErrs, models.FieldError{Field: "radiusKm", Message: "must be a number"})
		}
	}

	filter, filterErrs := parseFilter(q.Get("type"), q.Get("severity"), q.Get("hoursBack"), q.Get("verifiedOnly"))
	fieldErrs = append(fieldErrs, filterErrs...)
	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid query parameters", fieldErrs)
		return
	}

	nearby, err := h.service.QueryNearby(r.Context(), geo.Point{Lat: lat, Lng: lng}, radiusKm, filter)
	if err != nil {
		writeHazardError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.NearbyHazardList{
		Hazards: models.NewNearbyHazards(nearby),
		Count:   len(nearby),
	})
}

// RouteHazards handles POST /v1/hazards/route - hazards along a route.
func (h *HazardHandler) RouteHazards(w http.ResponseWriter, r *http.Request) {
	var input models.RouteHazardsRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	waypoints, fieldErr := routeWaypoints(input.Waypoints, input.Polyline)
	if fieldErr != nil {
		response.BadRequest(w, r, "invalid route", []models.FieldError{*fieldErr})
		return
	}

	bufferKm := input.BufferKm
	if bufferKm == 0 {
		bufferKm = defaultRouteBuffer
	}

	nearby, err := h.service.QueryAlongRoute(r.Context(), waypoints, bufferKm)
	if err != nil {
		writeHazardError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.NearbyHazardList{
		Hazards: models.NewNearbyHazards(nearby),
		Count:   len(nearby),
	})
}

// routeWaypoints resolves a waypoint list from either explicit points or
// an encoded polyline.
func routeWaypoints(points []models.Point, polyline string) ([]geo.Point, *models.FieldError) {
	if len(points) > 0 && polyline != "" {
		return nil, &models.FieldError{Field: "waypoints", Message: "provide either waypoints or polyline, not both"}
	}
	if polyline != "" {
		decoded := geo.DecodePolyline(polyline)
		if len(decoded) == 0 {
			return nil, &models.FieldError{Field: "polyline", Message: "polyline decodes to no points"}
		}
		return decoded, nil
	}
	waypoints := make([]geo.Point, 0, len(points))
	for _, p := range points {
		waypoints = append(waypoints, geo.Point{Lat: p.Lat, Lng: p.Lng})
	}
	return waypoints, nil
}

func parseBounds(minLat, minLng, maxLat, maxLng string) (geo.BoundingBox, []models.FieldError) {
	var fieldErrs []models.FieldError
	parse := func(field, raw string) float64 {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fieldErrs = append(fieldErrs, models.FieldError{Field: field, Message: "must be a number"})
		}
		return v
	}

	box := geo.BoundingBox{
		South: parse("minLat", minLat),
		West:  parse("minLng", minLng),
		North: parse("maxLat", maxLat),
		East:  parse("maxLng", maxLng),
	}
	return box, fieldErrs
}

func parseFilter(typ, severity, hoursBack, verifiedOnly string) (hazard.Filter, []models.FieldError) {
	var fieldErrs []models.FieldError
	var filter hazard.Filter

	if typ != "" {
		parsed, err := hazard.ParseType(typ)
		if err != nil {
			fieldErrs = append(fieldErrs, models.FieldError{Field: "type", Message: err.Error()})
		} else {
			filter.Type = &parsed
		}
	}
	if severity != "" {
		parsed, err := hazard.ParseSeverity(severity)
		if err != nil {
			fieldErrs = append(fieldErrs, models.FieldError{Field: "severity", Message: err.Error()})
		} else {
			filter.Severity = &parsed
		}
	}

	hours := defaultHoursBack
	if hoursBack != "" {
		parsed, err := strconv.Atoi(hoursBack)
		if err != nil || parsed < 0 {
			fieldErrs = append(fieldErrs, models.FieldError{Field: "hoursBack", Message: "must be a non-negative integer"})
		} else {
			hours = parsed
		}
	}
	// hoursBack=0 disables the recency cutoff.
	if hours > 0 {
		filter.Since = time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	}

	if verifiedOnly != "" {
		parsed, err := strconv.ParseBool(verifiedOnly)
		if err != nil {
			fieldErrs = append(fieldErrs, models.FieldError{Field: "verifiedOnly", Message: "must be a boolean"})
		} else {
			filter.VerifiedOnly = parsed
		}
	}

	return filter, fieldErrs
}

// writeHazardError maps domain errors to problem responses.
func writeHazardError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *hazard.ValidationError
	switch {
	case errors.As(err, &ve):
		fieldErrs := make([]models.FieldError, 0, len(ve.Fields))
		for _, f := range ve.Fields {
			fieldErrs = append(fieldErrs, models.FieldError{Field: f.Field, Message: f.Message})
		}
		response.BadRequest(w, r, "validation failed", fieldErrs)
	case errors.Is(err, hazard.ErrNotFound):
		response.NotFound(w, r, "hazard not found")
	case errors.Is(err, hazard.ErrEmptyRoute):
		response.BadRequest(w, r, "route has no waypoints", nil)
	case errors.Is(err, hazard.ErrInvalidBuffer):
		response.BadRequest(w, r, "bufferKm must be positive", nil)
	default:
		response.InternalError(w, r, "internal error")
	}
}
