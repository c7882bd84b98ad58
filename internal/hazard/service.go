package hazard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hazardmap/hazardmap/internal/geo"
)

// Route query errors.
var (
	ErrEmptyRoute    = errors.New("route has no waypoints")
	ErrInvalidBuffer = errors.New("route buffer must be positive")
)

// SpeedAdvisor derives the stored recommended speed for a hazard, treating
// the hazard itself as the only nearby obstacle at distance zero.
type SpeedAdvisor interface {
	RecommendAtHazard(speedLimit int, severity Severity) int
}

// Service is the typed CRUD and query façade over the hazard repository.
// It owns validation: no record reaches the store without satisfying the
// hazard invariants.
type Service struct {
	repo    Repository
	advisor SpeedAdvisor
}

// NewService creates a new hazard service.
func NewService(repo Repository, advisor SpeedAdvisor) *Service {
	return &Service{repo: repo, advisor: advisor}
}

// CreateInput carries the caller-supplied fields of a new hazard.
type CreateInput struct {
	Location   geo.Point
	Type       string
	Severity   string
	Confidence float64

	// DetectedAt defaults to the current time when zero.
	DetectedAt time.Time

	SpeedLimit int

	// RecommendedSpeed is derived from the severity when zero.
	RecommendedSpeed int

	RoadName         string
	Area             string
	ImagePath        *string
	WeatherCondition *string
}

// UpdateInput carries the updatable fields of a hazard. Nil fields are
// left unchanged.
type UpdateInput struct {
	Severity         *string
	RecommendedSpeed *int
	Verified         *bool
	WeatherCondition *string
}

// Create validates the input, derives the recommended speed if absent,
// assigns an id, and stores the hazard. All violated fields are reported
// in a single *ValidationError.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Hazard, error) {
	var fields []FieldError

	typ, err := ParseType(in.Type)
	if err != nil {
		fields = append(fields, FieldError{Field: "type", Message: err.Error()})
	}
	sev, err := ParseSeverity(in.Severity)
	if err != nil {
		fields = append(fields, FieldError{Field: "severity", Message: err.Error()})
	}

	now := time.Now().UTC()
	detectedAt := in.DetectedAt
	if detectedAt.IsZero() {
		detectedAt = now
	}

	h := &Hazard{
		ID:               "hzd_" + uuid.New().String(),
		Location:         in.Location,
		Type:             typ,
		Severity:         sev,
		Confidence:       in.Confidence,
		DetectedAt:       detectedAt.UTC(),
		SpeedLimit:       in.SpeedLimit,
		RecommendedSpeed: in.RecommendedSpeed,
		RoadName:         in.RoadName,
		Area:             in.Area,
		ImagePath:        in.ImagePath,
		WeatherCondition: in.WeatherCondition,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if h.RecommendedSpeed == 0 && sev != "" && h.SpeedLimit > 0 {
		h.RecommendedSpeed = s.advisor.RecommendAtHazard(h.SpeedLimit, sev)
	}

	fields = append(fields, validate(h)...)
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	if err := s.repo.Create(ctx, h); err != nil {
		return nil, fmt.Errorf("create hazard: %w", err)
	}
	return h, nil
}

// Get retrieves a hazard by id.
func (s *Service) Get(ctx context.Context, id string) (*Hazard, error) {
	return s.repo.Get(ctx, id)
}

// Update merges the partial input into the stored hazard, re-validates the
// result, and persists it. A severity change without an explicit
// recommended speed re-derives the stored recommendation.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Hazard, error) {
	h, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var fields []FieldError

	if in.Severity != nil {
		sev, err := ParseSeverity(*in.Severity)
		if err != nil {
			fields = append(fields, FieldError{Field: "severity", Message: err.Error()})
		} else if sev != h.Severity {
			h.Severity = sev
			if in.RecommendedSpeed == nil {
				h.RecommendedSpeed = s.advisor.RecommendAtHazard(h.SpeedLimit, sev)
			}
		}
	}
	if in.RecommendedSpeed != nil {
		h.RecommendedSpeed = *in.RecommendedSpeed
	}
	if in.Verified != nil {
		h.Verified = *in.Verified
	}
	if in.WeatherCondition != nil {
		h.WeatherCondition = in.WeatherCondition
	}
	h.UpdatedAt = time.Now().UTC()

	fields = append(fields, validate(h)...)
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	if err := s.repo.Update(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// Delete removes a hazard. Deleting an absent id is a no-op.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// QueryBounds returns hazards inside the box matching the filter, most
// recently detected first (repository order).
func (s *Service) QueryBounds(ctx context.Context, box geo.BoundingBox, f Filter) ([]*Hazard, error) {
	if !box.Valid() {
		return nil, &ValidationError{Fields: []FieldError{
			{Field: "bounds", Message: "bounding box corners must be in range and ordered"},
		}}
	}
	return s.repo.QueryBounds(ctx, box, f)
}

// QueryNearby returns hazards within radiusKm of center matching the
// filter, sorted by ascending distance.
func (s *Service) QueryNearby(ctx context.Context, center geo.Point, radiusKm float64, f Filter) ([]Nearby, error) {
	var fields []FieldError
	if !center.Valid() {
		fields = append(fields, FieldError{Field: "location", Message: "latitude/longitude out of range"})
	}
	if radiusKm <= 0 {
		fields = append(fields, FieldError{Field: "radiusKm", Message: "must be positive"})
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	nearby, err := s.repo.QueryRadius(ctx, center, radiusKm)
	if err != nil {
		return nil, err
	}

	if f != (Filter{}) {
		filtered := nearby[:0]
		for _, n := range nearby {
			if matchesFilter(n.Hazard, f) {
				filtered = append(filtered, n)
			}
		}
		nearby = filtered
	}

	SortNearby(nearby)
	return nearby, nil
}

// QueryAlongRoute returns hazards within bufferKm of any segment of the
// route, de-duplicated by id and sorted by ascending distance to the
// route. Distance is true point-to-segment, so hazards near the middle of
// long segments are detected.
func (s *Service) QueryAlongRoute(ctx context.Context, waypoints []geo.Point, bufferKm float64) ([]Nearby, error) {
	if len(waypoints) == 0 {
		return nil, ErrEmptyRoute
	}
	if bufferKm <= 0 {
		return nil, ErrInvalidBuffer
	}
	for _, wp := range waypoints {
		if !wp.Valid() {
			return nil, &ValidationError{Fields: []FieldError{
				{Field: "waypoints", Message: "latitude/longitude out of range"},
			}}
		}
	}

	// Candidate set from the covering box, refined per segment.
	box := geo.BoundsAround(waypoints, bufferKm)
	candidates, err := s.repo.QueryBounds(ctx, box, Filter{})
	if err != nil {
		return nil, err
	}

	var matches []Nearby
	for _, h := range candidates {
		d := geo.RouteDistance(h.Location, waypoints)
		if d > bufferKm {
			continue
		}
		matches = append(matches, Nearby{Hazard: h, DistanceKm: d})
	}

	SortNearby(matches)
	return matches, nil
}

// validate checks the hazard invariants and returns one FieldError per
// violation.
func validate(h *Hazard) []FieldError {
	var fields []FieldError

	if h.Location.Lat < -90 || h.Location.Lat > 90 {
		fields = append(fields, FieldError{Field: "latitude", Message: "must be between -90 and 90"})
	}
	if h.Location.Lng < -180 || h.Location.Lng > 180 {
		fields = append(fields, FieldError{Field: "longitude", Message: "must be between -180 and 180"})
	}
	if h.Confidence < 0 || h.Confidence > 1 {
		fields = append(fields, FieldError{Field: "confidence", Message: "must be between 0 and 1"})
	}
	if h.SpeedLimit <= 0 {
		fields = append(fields, FieldError{Field: "speedLimit", Message: "must be positive"})
	}
	if h.RecommendedSpeed <= 0 {
		fields = append(fields, FieldError{Field: "recommendedSpeed", Message: "must be positive"})
	} else if h.SpeedLimit > 0 && h.RecommendedSpeed > h.SpeedLimit {
		fields = append(fields, FieldError{Field: "recommendedSpeed", Message: "must not exceed speedLimit"})
	}
	if h.RoadName == "" {
		fields = append(fields, FieldError{Field: "roadName", Message: "is required"})
	}
	if h.Area == "" {
		fields = append(fields, FieldError{Field: "area", Message: "is required"})
	}

	return fields
}
