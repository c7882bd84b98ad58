package geo

import "math"

// SegmentDistance calculates the great-circle distance in kilometers from
// point p to the segment between a and b.
//
// The point is projected onto the segment in a local tangent-plane
// approximation centered on a, the projection is clamped to the segment
// bounds, and the distance to the clamped point is computed with the
// haversine formula. At city scale the tangent-plane error is far below
// the buffer widths used for corridor queries.
func SegmentDistance(p, a, b Point) float64 {
	// Degenerate segment: both endpoints coincide.
	if a.Lat == b.Lat && a.Lng == b.Lng {
		return Distance(p, a)
	}

	// Project into a local equirectangular plane around a. Longitude is
	// scaled by cos(lat) so both axes are in comparable units.
	cosLat := math.Cos(a.Lat * math.Pi / 180)

	px := (p.Lng - a.Lng) * cosLat
	py := p.Lat - a.Lat
	bx := (b.Lng - a.Lng) * cosLat
	by := b.Lat - a.Lat

	// Fraction of the segment where the perpendicular foot lands.
	t := (px*bx + py*by) / (bx*bx + by*by)
	t = math.Max(0, math.Min(1, t))

	closest := Point{
		Lat: a.Lat + t*by,
		Lng: a.Lng + t*bx/cosLat,
	}
	return Distance(p, closest)
}

// RouteDistance calculates the minimum distance in kilometers from p to any
// segment of the polyline formed by the ordered points. A single point is
// treated as a degenerate route.
func RouteDistance(p Point, route []Point) float64 {
	if len(route) == 0 {
		return math.Inf(1)
	}
	if len(route) == 1 {
		return Distance(p, route[0])
	}

	min := math.Inf(1)
	for i := 0; i < len(route)-1; i++ {
		if d := SegmentDistance(p, route[i], route[i+1]); d < min {
			min = d
		}
	}
	return min
}

// PathLength calculates the total great-circle length of the polyline in
// kilometers.
func PathLength(route []Point) float64 {
	var total float64
	for i := 0; i < len(route)-1; i++ {
		total += Distance(route[i], route[i+1])
	}
	return total
}
