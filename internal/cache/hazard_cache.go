package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hazardmap/hazardmap/internal/geo"
	"github.com/hazardmap/hazardmap/internal/hazard"
	"github.com/hazardmap/hazardmap/internal/telemetry"
)

// DefaultQueryTTL bounds staleness of cached query results. Invalidation
// is generation-based, so the TTL only matters for keys orphaned by a
// lost generation bump.
const DefaultQueryTTL = 5 * time.Minute

// generationKey versions the whole hazard set. Every write bumps it,
// which makes all previously cached query results unreachable.
const generationKey = "hazards:generation"

// HazardRepository caches geospatial query results in Redis in front of
// another hazard.Repository. Point reads and writes pass through; writes
// invalidate all cached queries.
//
// Cache failures degrade to the backing store and are logged, never
// returned.
type HazardRepository struct {
	inner   hazard.Repository
	client  *redis.Client
	ttl     time.Duration
	logger  zerolog.Logger
	metrics *telemetry.CacheMetrics
}

// NewHazardRepository wraps repo with a Redis query cache.
func NewHazardRepository(repo hazard.Repository, client *redis.Client, ttl time.Duration, logger zerolog.Logger) *HazardRepository {
	if ttl <= 0 {
		ttl = DefaultQueryTTL
	}
	return &HazardRepository{
		inner:  repo,
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "hazard_cache").Logger(),
	}
}

// WithMetrics attaches hit/miss counters and returns the repository.
func (r *HazardRepository) WithMetrics(m *telemetry.CacheMetrics) *HazardRepository {
	r.metrics = m
	return r
}

// Get retrieves a hazard by id from the backing store.
func (r *HazardRepository) Get(ctx context.Context, id string) (*hazard.Hazard, error) {
	return r.inner.Get(ctx, id)
}

// Create stores a hazard and invalidates cached queries.
func (r *HazardRepository) Create(ctx context.Context, h *hazard.Hazard) error {
	if err := r.inner.Create(ctx, h); err != nil {
		return err
	}
	r.bumpGeneration(ctx)
	return nil
}

// Update replaces a hazard and invalidates cached queries.
func (r *HazardRepository) Update(ctx context.Context, h *hazard.Hazard) error {
	if err := r.inner.Update(ctx, h); err != nil {
		return err
	}
	r.bumpGeneration(ctx)
	return nil
}

// Delete removes a hazard and invalidates cached queries.
func (r *HazardRepository) Delete(ctx context.Context, id string) error {
	if err := r.inner.Delete(ctx, id); err != nil {
		return err
	}
	r.bumpGeneration(ctx)
	return nil
}

// QueryBounds serves bounding-box queries from the cache when possible.
func (r *HazardRepository) QueryBounds(ctx context.Context, box geo.BoundingBox, f hazard.Filter) ([]*hazard.Hazard, error) {
	key := r.queryKey(ctx, fmt.Sprintf("bounds:%.5f:%.5f:%.5f:%.5f:%s",
		box.South, box.West, box.North, box.East, filterKey(f)))

	var cached []*hazard.Hazard
	if r.lookup(ctx, key, &cached) {
		r.recordCache("query_bounds", true)
		return cached, nil
	}
	r.recordCache("query_bounds", false)

	result, err := r.inner.QueryBounds(ctx, box, f)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, result)
	return result, nil
}

// QueryRadius serves radius queries from the cache when possible.
func (r *HazardRepository) QueryRadius(ctx context.Context, center geo.Point, radiusKm float64) ([]hazard.Nearby, error) {
	key := r.queryKey(ctx, fmt.Sprintf("radius:%.5f:%.5f:%.3f", center.Lat, center.Lng, radiusKm))

	var cached []hazard.Nearby
	if r.lookup(ctx, key, &cached) {
		r.recordCache("query_radius", true)
		return cached, nil
	}
	r.recordCache("query_radius", false)

	result, err := r.inner.QueryRadius(ctx, center, radiusKm)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, result)
	return result, nil
}

// queryKey prefixes a query fingerprint with the current generation.
func (r *HazardRepository) queryKey(ctx context.Context, fingerprint string) string {
	gen, err := r.client.Get(ctx, generationKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn().Err(err).Msg("read cache generation")
		}
		gen = "0"
	}
	return fmt.Sprintf("hazards:q:%s:%s", gen, fingerprint)
}

// lookup reports whether key held a cached value and decoded cleanly.
func (r *HazardRepository) lookup(ctx context.Context, key string, dest any) bool {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("cache entry corrupt")
		return false
	}
	return true
}

func (r *HazardRepository) store(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (r *HazardRepository) recordCache(operation string, hit bool) {
	if r.metrics == nil {
		return
	}
	if hit {
		r.metrics.RecordHit(operation)
		return
	}
	r.metrics.RecordMiss(operation)
}

func (r *HazardRepository) bumpGeneration(ctx context.Context) {
	if err := r.client.Incr(ctx, generationKey).Err(); err != nil {
		r.logger.Warn().Err(err).Msg("cache invalidation failed")
	}
}

func filterKey(f hazard.Filter) string {
	typ, sev := "", ""
	if f.Type != nil {
		typ = string(*f.Type)
	}
	if f.Severity != nil {
		sev = string(*f.Severity)
	}
	since := ""
	if !f.Since.IsZero() {
		since = f.Since.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%s:%s:%s:%t", typ, sev, since, f.VerifiedOnly)
}

// Ensure HazardRepository implements hazard.Repository.
var _ hazard.Repository = (*HazardRepository)(nil)
