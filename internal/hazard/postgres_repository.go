package hazard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hazardmap/hazardmap/internal/geo"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
// Bounding-box predicates ride the (lat, lng) index; radius queries
// prefilter with a bounding box and refine with the haversine distance.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL hazard repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const hazardColumns = `
	id, lat, lng, hazard_type, severity, confidence, detected_at,
	speed_limit, recommended_speed, verified, road_name, area,
	image_path, weather_condition, created_at, updated_at
`

// Get retrieves a hazard by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Hazard, error) {
	query := `SELECT ` + hazardColumns + ` FROM hazards WHERE id = $1`

	var h Hazard
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&h.ID,
		&h.Location.Lat,
		&h.Location.Lng,
		&h.Type,
		&h.Severity,
		&h.Confidence,
		&h.DetectedAt,
		&h.SpeedLimit,
		&h.RecommendedSpeed,
		&h.Verified,
		&h.RoadName,
		&h.Area,
		&h.ImagePath,
		&h.WeatherCondition,
		&h.CreatedAt,
		&h.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

// Create stores a new hazard.
func (r *PostgresRepository) Create(ctx context.Context, h *Hazard) error {
	query := `
		INSERT INTO hazards (` + hazardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.pool.Exec(ctx, query,
		h.ID,
		h.Location.Lat,
		h.Location.Lng,
		h.Type,
		h.Severity,
		h.Confidence,
		h.DetectedAt,
		h.SpeedLimit,
		h.RecommendedSpeed,
		h.Verified,
		h.RoadName,
		h.Area,
		h.ImagePath,
		h.WeatherCondition,
		h.CreatedAt,
		h.UpdatedAt,
	)
	return err
}

// Update replaces an existing hazard.
func (r *PostgresRepository) Update(ctx context.Context, h *Hazard) error {
	query := `
		UPDATE hazards SET
			lat = $2,
			lng = $3,
			hazard_type = $4,
			severity = $5,
			confidence = $6,
			detected_at = $7,
			speed_limit = $8,
			recommended_speed = $9,
			verified = $10,
			road_name = $11,
			area = $12,
			image_path = $13,
			weather_condition = $14,
			updated_at = $15
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		h.ID,
		h.Location.Lat,
		h.Location.Lng,
		h.Type,
		h.Severity,
		h.Confidence,
		h.DetectedAt,
		h.SpeedLimit,
		h.RecommendedSpeed,
		h.Verified,
		h.RoadName,
		h.Area,
		h.ImagePath,
		h.WeatherCondition,
		h.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a hazard by id. Absent ids are a no-op.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM hazards WHERE id = $1`, id)
	return err
}

// QueryBounds returns hazards inside the box matching the filter.
func (r *PostgresRepository) QueryBounds(ctx context.Context, box geo.BoundingBox, f Filter) ([]*Hazard, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + hazardColumns + ` FROM hazards
		WHERE lat BETWEEN $1 AND $2 AND lng BETWEEN $3 AND $4`)

	args := []interface{}{box.South, box.North, box.West, box.East}

	if f.Type != nil {
		args = append(args, *f.Type)
		fmt.Fprintf(&sb, " AND hazard_type = $%d", len(args))
	}
	if f.Severity != nil {
		args = append(args, *f.Severity)
		fmt.Fprintf(&sb, " AND severity = $%d", len(args))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		fmt.Fprintf(&sb, " AND detected_at >= $%d", len(args))
	}
	if f.VerifiedOnly {
		sb.WriteString(" AND verified")
	}
	sb.WriteString(" ORDER BY detected_at DESC")

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanHazards(rows)
}

// QueryRadius returns hazards within radiusKm of center.
func (r *PostgresRepository) QueryRadius(ctx context.Context, center geo.Point, radiusKm float64) ([]Nearby, error) {
	box := geo.BoundingBox{
		South: center.Lat, North: center.Lat,
		West: center.Lng, East: center.Lng,
	}.Expand(radiusKm)

	candidates, err := r.QueryBounds(ctx, box, Filter{})
	if err != nil {
		return nil, err
	}

	var matches []Nearby
	for _, h := range candidates {
		d := geo.Distance(center, h.Location)
		if d > radiusKm {
			continue
		}
		matches = append(matches, Nearby{Hazard: h, DistanceKm: d})
	}
	return matches, nil
}

func scanHazards(rows pgx.Rows) ([]*Hazard, error) {
	var hazards []*Hazard
	for rows.Next() {
		var h Hazard
		err := rows.Scan(
			&h.ID,
			&h.Location.Lat,
			&h.Location.Lng,
			&h.Type,
			&h.Severity,
			&h.Confidence,
			&h.DetectedAt,
			&h.SpeedLimit,
			&h.RecommendedSpeed,
			&h.Verified,
			&h.RoadName,
			&h.Area,
			&h.ImagePath,
			&h.WeatherCondition,
			&h.CreatedAt,
			&h.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		hazards = append(hazards, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return hazards, nil
}

// Ensure PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)
