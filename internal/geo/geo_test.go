package geo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazardmap/hazardmap/internal/geo"
)

func TestDistance_KnownValues(t *testing.T) {
	// 0.01 degrees of latitude is ~1.112 km regardless of longitude.
	a := geo.Point{Lat: 34.0151, Lng: 71.5249}
	b := geo.Point{Lat: 34.0251, Lng: 71.5249}

	d := geo.Distance(a, b)
	assert.InDelta(t, 1.112, d, 0.005)

	// Symmetry and identity.
	assert.Equal(t, geo.Distance(a, b), geo.Distance(b, a))
	assert.Zero(t, geo.Distance(a, a))
}

func TestDistance_CityScale(t *testing.T) {
	// Peshawar city center to Hayatabad, roughly 6.5 km.
	center := geo.Point{Lat: 34.0151, Lng: 71.5249}
	hayatabad := geo.Point{Lat: 33.9889, Lng: 71.4756}

	d := geo.Distance(center, hayatabad)
	assert.Greater(t, d, 5.0)
	assert.Less(t, d, 8.0)
}

func TestBoundingBox_Contains(t *testing.T) {
	box := geo.BoundingBox{South: 33.9, West: 71.4, North: 34.1, East: 71.7}

	tests := []struct {
		name string
		p    geo.Point
		want bool
	}{
		{"inside", geo.Point{Lat: 34.0, Lng: 71.5}, true},
		{"on south boundary", geo.Point{Lat: 33.9, Lng: 71.5}, true},
		{"on east boundary", geo.Point{Lat: 34.0, Lng: 71.7}, true},
		{"corner", geo.Point{Lat: 34.1, Lng: 71.7}, true},
		{"north of box", geo.Point{Lat: 34.2, Lng: 71.5}, false},
		{"west of box", geo.Point{Lat: 34.0, Lng: 71.3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, box.Contains(tt.p))
		})
	}
}

func TestBoundingBox_Valid(t *testing.T) {
	assert.True(t, geo.BoundingBox{South: 33.9, West: 71.4, North: 34.1, East: 71.7}.Valid())
	assert.False(t, geo.BoundingBox{South: 34.1, West: 71.4, North: 33.9, East: 71.7}.Valid(), "inverted latitudes")
	assert.False(t, geo.BoundingBox{South: -91, West: 71.4, North: 34.1, East: 71.7}.Valid(), "latitude out of range")
}

func TestBoundsAround_CoversAllPointsWithBuffer(t *testing.T) {
	points := []geo.Point{
		{Lat: 34.0151, Lng: 71.5249},
		{Lat: 34.0089, Lng: 71.5456},
		{Lat: 34.0023, Lng: 71.5678},
	}

	box := geo.BoundsAround(points, 0.5)
	for _, p := range points {
		assert.True(t, box.Contains(p))
	}

	// The buffer must cover a point 400m north of a waypoint.
	north := geo.Point{Lat: points[0].Lat + 0.4/111.0, Lng: points[0].Lng}
	assert.True(t, box.Contains(north))
}

func TestSegmentDistance_MidSegmentPoint(t *testing.T) {
	// A long straight segment running east along a parallel. A point just
	// north of the middle must be detected even though it is far from both
	// endpoints.
	a := geo.Point{Lat: 34.0, Lng: 71.50}
	b := geo.Point{Lat: 34.0, Lng: 71.60}
	mid := geo.Point{Lat: 34.005, Lng: 71.55}

	d := geo.SegmentDistance(mid, a, b)
	assert.InDelta(t, 0.556, d, 0.01, "perpendicular distance to the segment")

	// Both endpoints are much farther away than the segment itself.
	assert.Greater(t, geo.Distance(mid, a), 4.0)
	assert.Greater(t, geo.Distance(mid, b), 4.0)
}

func TestSegmentDistance_ClampsToEndpoints(t *testing.T) {
	a := geo.Point{Lat: 34.0, Lng: 71.50}
	b := geo.Point{Lat: 34.0, Lng: 71.52}

	// Point beyond b projects past the segment end; distance is to b.
	beyond := geo.Point{Lat: 34.0, Lng: 71.54}
	assert.InDelta(t, geo.Distance(beyond, b), geo.SegmentDistance(beyond, a, b), 1e-9)

	// Point before a clamps to a.
	before := geo.Point{Lat: 34.0, Lng: 71.48}
	assert.InDelta(t, geo.Distance(before, a), geo.SegmentDistance(before, a, b), 1e-9)
}

func TestSegmentDistance_DegenerateSegment(t *testing.T) {
	a := geo.Point{Lat: 34.0, Lng: 71.5}
	p := geo.Point{Lat: 34.01, Lng: 71.5}
	assert.Equal(t, geo.Distance(p, a), geo.SegmentDistance(p, a, a))
}

func TestRouteDistance(t *testing.T) {
	route := []geo.Point{
		{Lat: 34.0151, Lng: 71.5249},
		{Lat: 34.0089, Lng: 71.5456},
		{Lat: 34.0023, Lng: 71.5678},
	}

	// A point on the first waypoint has distance zero.
	assert.InDelta(t, 0, geo.RouteDistance(route[0], route), 1e-9)

	// A single-point route degrades to point distance.
	p := geo.Point{Lat: 34.02, Lng: 71.5249}
	assert.Equal(t, geo.Distance(p, route[0]), geo.RouteDistance(p, route[:1]))
}

func TestPathLength(t *testing.T) {
	route := []geo.Point{
		{Lat: 34.00, Lng: 71.52},
		{Lat: 34.01, Lng: 71.52},
		{Lat: 34.02, Lng: 71.52},
	}
	// Two segments of ~1.112 km each.
	assert.InDelta(t, 2.224, geo.PathLength(route), 0.01)
	assert.Zero(t, geo.PathLength(route[:1]))
}

func TestPolyline_RoundTrip(t *testing.T) {
	points := []geo.Point{
		{Lat: 34.0151, Lng: 71.5249},
		{Lat: 34.0089, Lng: 71.5456},
		{Lat: -33.86744, Lng: 151.20700},
	}

	encoded := geo.EncodePolyline(points)
	require.NotEmpty(t, encoded)

	decoded := geo.DecodePolyline(encoded)
	require.Len(t, decoded, len(points))
	for i := range points {
		assert.InDelta(t, points[i].Lat, decoded[i].Lat, 1e-5)
		assert.InDelta(t, points[i].Lng, decoded[i].Lng, 1e-5)
	}
}

func TestPolyline_GoogleReferenceVector(t *testing.T) {
	// Reference example from the polyline algorithm documentation.
	decoded := geo.DecodePolyline("_p~iF~ps|U_ulLnnqC_mqNvxq`@")
	require.Len(t, decoded, 3)
	assert.InDelta(t, 38.5, decoded[0].Lat, 1e-5)
	assert.InDelta(t, -120.2, decoded[0].Lng, 1e-5)
	assert.InDelta(t, 43.252, decoded[2].Lat, 1e-5)
	assert.InDelta(t, -126.453, decoded[2].Lng, 1e-5)
}

func TestPolyline_Empty(t *testing.T) {
	assert.Nil(t, geo.DecodePolyline(""))
	assert.Empty(t, geo.EncodePolyline(nil))
}
