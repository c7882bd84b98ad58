// Package geo provides the geographic primitives used across HazardMap:
// points, bounding boxes, great-circle distance, and point-to-segment
// distance for route corridor queries.
package geo

import "math"

// EarthRadiusKm is the mean earth radius used for spherical distance math.
const EarthRadiusKm = 6371.0

// Point represents a geographic coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Valid reports whether the point lies within the valid lat/lng ranges.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// BoundingBox represents an axis-aligned lat/lng box. Boundaries are
// inclusive.
type BoundingBox struct {
	South float64
	West  float64
	North float64
	East  float64
}

// Contains reports whether the point falls inside the box, boundaries
// included.
func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.South && p.Lat <= b.North &&
		p.Lng >= b.West && p.Lng <= b.East
}

// Valid reports whether the box corners are in range and ordered.
func (b BoundingBox) Valid() bool {
	if b.South < -90 || b.North > 90 || b.West < -180 || b.East > 180 {
		return false
	}
	return b.South <= b.North && b.West <= b.East
}

// Expand grows the box by roughly km kilometers on every side. The
// longitude expansion widens toward the poles so the buffer never
// under-covers.
func (b BoundingBox) Expand(km float64) BoundingBox {
	latDelta := km / 111.0
	// Use the latitude closest to a pole for the longitude scale.
	absLat := math.Max(math.Abs(b.South), math.Abs(b.North))
	cos := math.Cos(absLat * math.Pi / 180)
	if cos < 0.01 {
		cos = 0.01
	}
	lngDelta := km / (111.0 * cos)

	return BoundingBox{
		South: math.Max(b.South-latDelta, -90),
		West:  math.Max(b.West-lngDelta, -180),
		North: math.Min(b.North+latDelta, 90),
		East:  math.Min(b.East+lngDelta, 180),
	}
}

// BoundsAround returns the smallest bounding box covering all points,
// expanded by bufferKm on every side.
func BoundsAround(points []Point, bufferKm float64) BoundingBox {
	if len(points) == 0 {
		return BoundingBox{}
	}

	box := BoundingBox{
		South: points[0].Lat,
		North: points[0].Lat,
		West:  points[0].Lng,
		East:  points[0].Lng,
	}
	for _, p := range points[1:] {
		box.South = math.Min(box.South, p.Lat)
		box.North = math.Max(box.North, p.Lat)
		box.West = math.Min(box.West, p.Lng)
		box.East = math.Max(box.East, p.Lng)
	}
	return box.Expand(bufferKm)
}

// Distance calculates the great-circle distance between two points in
// kilometers using the haversine formula.
func Distance(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	deltaLat := (b.Lat - a.Lat) * math.Pi / 180
	deltaLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}
