package hazard

import (
	"context"
	"sync"

	"github.com/hazardmap/hazardmap/internal/geo"
)

// MemoryRepository is an in-memory implementation of Repository backed by
// a linear scan. It suits tests and small deployments; larger hazard sets
// belong in PostgresRepository.
type MemoryRepository struct {
	mu      sync.RWMutex
	hazards map[string]*Hazard
}

// NewMemoryRepository creates an empty in-memory hazard repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		hazards: make(map[string]*Hazard),
	}
}

// Get retrieves a hazard by id.
func (r *MemoryRepository) Get(_ context.Context, id string) (*Hazard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.hazards[id]
	if !ok {
		return nil, ErrNotFound
	}

	cpy := *h
	return &cpy, nil
}

// Create stores a new hazard.
func (r *MemoryRepository) Create(_ context.Context, h *Hazard) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *h
	r.hazards[h.ID] = &cpy
	return nil
}

// Update replaces an existing hazard.
func (r *MemoryRepository) Update(_ context.Context, h *Hazard) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.hazards[h.ID]; !ok {
		return ErrNotFound
	}

	cpy := *h
	r.hazards[h.ID] = &cpy
	return nil
}

// Delete removes a hazard by id. Absent ids are a no-op.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.hazards, id)
	return nil
}

// QueryBounds returns hazards inside the box matching the filter.
func (r *MemoryRepository) QueryBounds(_ context.Context, box geo.BoundingBox, f Filter) ([]*Hazard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []*Hazard
	for _, h := range r.hazards {
		if !box.Contains(h.Location) {
			continue
		}
		if !matchesFilter(h, f) {
			continue
		}
		cpy := *h
		matches = append(matches, &cpy)
	}
	return matches, nil
}

// QueryRadius returns hazards within radiusKm of center.
func (r *MemoryRepository) QueryRadius(_ context.Context, center geo.Point, radiusKm float64) ([]Nearby, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []Nearby
	for _, h := range r.hazards {
		d := geo.Distance(center, h.Location)
		if d > radiusKm {
			continue
		}
		cpy := *h
		matches = append(matches, Nearby{Hazard: &cpy, DistanceKm: d})
	}
	return matches, nil
}

func matchesFilter(h *Hazard, f Filter) bool {
	if f.Type != nil && h.Type != *f.Type {
		return false
	}
	if f.Severity != nil && h.Severity != *f.Severity {
		return false
	}
	if !f.Since.IsZero() && h.DetectedAt.Before(f.Since) {
		return false
	}
	if f.VerifiedOnly && !h.Verified {
		return false
	}
	return true
}

// Ensure MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)
