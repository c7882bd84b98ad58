package hazard

import (
	"context"
	"time"

	"github.com/hazardmap/hazardmap/internal/geo"
)

// Filter narrows a bounds query. All supplied predicates are intersected.
type Filter struct {
	// Type restricts results to one hazard type.
	Type *Type

	// Severity restricts results to one severity tier.
	Severity *Severity

	// Since excludes hazards detected before this instant. The zero value
	// disables the recency cutoff.
	Since time.Time

	// VerifiedOnly excludes unverified hazards.
	VerifiedOnly bool
}

// Repository defines the persistence contract for hazards. It doubles as
// the geospatial index: implementations must answer bounding-box and
// radius queries, but callers must not depend on iteration order or on
// the underlying storage structure.
type Repository interface {
	// Get retrieves a hazard by id. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*Hazard, error)

	// Create stores a new hazard. The caller assigns the id.
	Create(ctx context.Context, h *Hazard) error

	// Update replaces an existing hazard. Returns ErrNotFound if absent.
	Update(ctx context.Context, h *Hazard) error

	// Delete removes a hazard by id. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error

	// QueryBounds returns every hazard inside the box (boundaries
	// inclusive) that matches the filter.
	QueryBounds(ctx context.Context, box geo.BoundingBox, f Filter) ([]*Hazard, error)

	// QueryRadius returns every hazard whose great-circle distance to
	// center is at most radiusKm, paired with that distance.
	QueryRadius(ctx context.Context, center geo.Point, radiusKm float64) ([]Nearby, error)
}
