// Package hazard provides the road-hazard domain model and its
// persistence contract.
package hazard

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hazardmap/hazardmap/internal/geo"
)

// Repository errors.
var (
	ErrNotFound = errors.New("hazard not found")
)

// Type classifies a detected road-condition anomaly.
type Type string

const (
	TypePothole      Type = "pothole"
	TypeCrack        Type = "crack"
	TypeDebris       Type = "debris"
	TypeConstruction Type = "construction"
	TypeFlooding     Type = "flooding"
)

// Types lists every valid hazard type.
func Types() []Type {
	return []Type{TypePothole, TypeCrack, TypeDebris, TypeConstruction, TypeFlooding}
}

// ParseType converts a transport-layer string into a Type.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(s))
	for _, known := range Types() {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown hazard type %q", s)
}

// Severity is the ordered hazard-risk tier: low < medium < high.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Severities lists every valid severity in ascending order.
func Severities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh}
}

// ParseSeverity converts a transport-layer string into a Severity.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(s))
	for _, known := range Severities() {
		if sev == known {
			return sev, nil
		}
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// Rank returns the ordinal position of the severity, low first. Unknown
// severities rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

// Hazard represents a single detected road-condition anomaly.
type Hazard struct {
	ID               string
	Location         geo.Point
	Type             Type
	Severity         Severity
	Confidence       float64
	DetectedAt       time.Time
	SpeedLimit       int
	RecommendedSpeed int
	Verified         bool
	RoadName         string
	Area             string
	ImagePath        *string
	WeatherCondition *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Nearby pairs a hazard with its distance from a query point.
type Nearby struct {
	Hazard     *Hazard
	DistanceKm float64
}

// SortNearby orders hazards by ascending distance, breaking ties by id so
// callers get a stable, deterministic order.
func SortNearby(hazards []Nearby) {
	sort.Slice(hazards, func(a, b int) bool {
		if hazards[a].DistanceKm != hazards[b].DistanceKm {
			return hazards[a].DistanceKm < hazards[b].DistanceKm
		}
		return hazards[a].Hazard.ID < hazards[b].Hazard.ID
	})
}

// FieldError describes a single violated validation constraint.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError reports every violated field of a hazard write. It is
// never raised partially: all violations are collected before failing.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return "validation failed: " + strings.Join(names, ", ")
}

// AsValidationError unwraps err into a *ValidationError if possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
