package simulator_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazardmap/hazardmap/internal/geo"
	"github.com/hazardmap/hazardmap/internal/simulator"
)

func TestGPS_MovesRoughlyAtConfiguredSpeed(t *testing.T) {
	start := geo.Point{Lat: 34.0151, Lng: 71.5249}
	gps := simulator.NewGPS(simulator.GPSConfig{Start: start, SpeedKmh: 50, Seed: 1})

	for i := 0; i < 60; i++ {
		gps.Move(time.Second)
	}

	// 60 s at up to 80 km/h is at most ~1.4 km from the start; the track
	// bends, so only an upper bound is meaningful.
	traveled := geo.Distance(start, gps.Current().Location)
	assert.Less(t, traveled, 1.5)
	assert.Positive(t, traveled)
}

func TestGPS_FixCarriesPlausibleFields(t *testing.T) {
	gps := simulator.NewGPS(simulator.GPSConfig{
		Start:    geo.Point{Lat: 34.0151, Lng: 71.5249},
		SpeedKmh: 50,
		Seed:     2,
	})

	fix := gps.Current()
	assert.True(t, fix.Location.Valid())
	assert.GreaterOrEqual(t, fix.AccuracyM, 3.0)
	assert.LessOrEqual(t, fix.AccuracyM, 8.0)
	assert.GreaterOrEqual(t, fix.AltitudeM, 300.0)
	assert.LessOrEqual(t, fix.AltitudeM, 600.0)
	assert.NotEmpty(t, fix.RoadName)
	assert.GreaterOrEqual(t, fix.HeadingDeg, 0.0)
	assert.Less(t, fix.HeadingDeg, 360.0)
}

func TestRoute_ReachesEnd(t *testing.T) {
	waypoints := []geo.Point{
		{Lat: 34.0151, Lng: 71.5249},
		{Lat: 34.0089, Lng: 71.5456},
		{Lat: 34.0023, Lng: 71.5678},
	}
	route := simulator.NewRoute(waypoints, 60, 3)
	require.False(t, route.Done())

	// The whole route is under 5 km; driving 10 minutes at 60 km/h must
	// finish it.
	for i := 0; i < 600 && !route.Done(); i++ {
		route.Move(time.Second)
	}
	assert.True(t, route.Done())
}

func TestRoute_StaysNearSegments(t *testing.T) {
	waypoints := []geo.Point{
		{Lat: 34.0, Lng: 71.50},
		{Lat: 34.0, Lng: 71.60},
	}
	route := simulator.NewRoute(waypoints, 60, 4)

	for i := 0; i < 30; i++ {
		route.Move(time.Second)
		fix := route.Current()
		// Interpolated along a constant-latitude segment; only GPS noise
		// moves the fix off it.
		assert.InDelta(t, 34.0, fix.Location.Lat, 0.001)
		assert.GreaterOrEqual(t, fix.Location.Lng, 71.49)
		assert.LessOrEqual(t, fix.Location.Lng, 71.61)
	}
}

func TestRoute_MoveAfterDoneIsNoop(t *testing.T) {
	waypoints := []geo.Point{{Lat: 34.0, Lng: 71.5}}
	route := simulator.NewRoute(waypoints, 60, 5)

	assert.True(t, route.Done())
	route.Move(time.Second)
	assert.True(t, route.Done())
}
