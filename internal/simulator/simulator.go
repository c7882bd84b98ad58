// Package simulator produces synthetic GPS tracks through Peshawar for
// demos and integration testing. It is not wired into the serving path.
package simulator

import (
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/hazardmap/hazardmap/internal/geo"
)

const metersPerDegree = 111320.0

// Position is a single simulated GPS fix.
type Position struct {
	Timestamp  time.Time
	Location   geo.Point
	SpeedKmh   float64
	HeadingDeg float64
	AccuracyM  float64
	AltitudeM  float64
	RoadName   string
}

// GPSConfig holds the starting state of a GPS simulation.
type GPSConfig struct {
	Start    geo.Point
	SpeedKmh float64

	// Seed makes the track reproducible. Zero seeds from the clock.
	Seed int64
}

// GPS simulates a single vehicle moving with a drifting heading and
// speed, emitting fixes with realistic noise.
type GPS struct {
	location geo.Point
	speedKmh float64
	heading  float64
	accuracy float64
	rng      *rand.Rand
}

// NewGPS creates a GPS simulator at the given start point.
func NewGPS(cfg GPSConfig) *GPS {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	speedKmh := cfg.SpeedKmh
	if speedKmh <= 0 {
		speedKmh = 50
	}

	rng := rand.New(rand.NewSource(seed))
	return &GPS{
		location: cfg.Start,
		speedKmh: speedKmh,
		heading:  rng.Float64() * 360,
		accuracy: 3 + rng.Float64()*5,
		rng:      rng,
	}
}

// Move advances the vehicle along its heading, occasionally turning and
// adjusting speed the way city traffic does.
func (g *GPS) Move(dt time.Duration) {
	distanceM := g.speedKmh * 1000 / 3600 * dt.Seconds()
	distanceDeg := distanceM / metersPerDegree

	g.location.Lat += distanceDeg * math.Cos(g.heading*math.Pi/180)
	g.location.Lng += distanceDeg * math.Sin(g.heading*math.Pi/180)

	// 10% chance to turn, 5% chance the speed drifts.
	if g.rng.Float64() < 0.1 {
		g.heading = math.Mod(g.heading+g.rng.Float64()*60-30+360, 360)
	}
	if g.rng.Float64() < 0.05 {
		g.speedKmh = clamp(g.speedKmh+g.rng.Float64()*20-10, 20, 80)
	}
	g.accuracy = 3 + g.rng.Float64()*5
}

// Current returns the current fix with GPS noise applied.
func (g *GPS) Current() Position {
	noiseDeg := g.accuracy / metersPerDegree
	noisy := geo.Point{
		Lat: g.location.Lat + (g.rng.Float64()*2-1)*noiseDeg,
		Lng: g.location.Lng + (g.rng.Float64()*2-1)*noiseDeg,
	}

	return Position{
		Timestamp:  time.Now().UTC(),
		Location:   noisy,
		SpeedKmh:   g.speedKmh,
		HeadingDeg: g.heading,
		AccuracyM:  g.accuracy,
		AltitudeM:  300 + g.rng.Float64()*300,
		RoadName:   roadNameAt(noisy, g.rng),
	}
}

// Route simulates a vehicle following fixed waypoints at constant speed,
// interpolating linearly between them.
type Route struct {
	waypoints []geo.Point
	index     int
	progress  float64
	gps       *GPS
}

// NewRoute creates a Route simulator. Waypoints must not be empty.
func NewRoute(waypoints []geo.Point, speedKmh float64, rngSeed int64) *Route {
	return &Route{
		waypoints: waypoints,
		gps: NewGPS(GPSConfig{
			Start:    waypoints[0],
			SpeedKmh: speedKmh,
			Seed:     rngSeed,
		}),
	}
}

// Done reports whether the vehicle has reached the final waypoint.
func (r *Route) Done() bool {
	return r.index >= len(r.waypoints)-1
}

// Move advances the vehicle along the route.
func (r *Route) Move(dt time.Duration) {
	if r.Done() {
		return
	}

	distanceKm := r.gps.speedKmh * dt.Hours()
	segmentKm := geo.Distance(r.waypoints[r.index], r.waypoints[r.index+1])
	if segmentKm <= 0 {
		r.index++
		r.progress = 0
		return
	}

	r.progress += distanceKm / segmentKm
	if r.progress >= 1 {
		r.index++
		r.progress = 0
	}
}

// Current returns the current fix, interpolated along the active segment.
func (r *Route) Current() Position {
	if !r.Done() {
		from := r.waypoints[r.index]
		to := r.waypoints[r.index+1]
		r.gps.location = geo.Point{
			Lat: from.Lat + (to.Lat-from.Lat)*r.progress,
			Lng: from.Lng + (to.Lng-from.Lng)*r.progress,
		}
	}
	return r.gps.Current()
}

// roadNameAt maps coordinates to a road name using coarse bounding boxes.
// A reverse geocoder would do this properly; the simulator only needs
// plausible labels.
func roadNameAt(p geo.Point, rng *rand.Rand) string {
	switch {
	case p.Lat >= 34.01 && p.Lat <= 34.02 && p.Lng >= 71.51 && p.Lng <= 71.53:
		return "University Road"
	case p.Lat >= 34.00 && p.Lat <= 34.01 && p.Lng >= 71.54 && p.Lng <= 71.57:
		return "GT Road"
	case p.Lat >= 33.98 && p.Lat < 34.00 && p.Lng >= 71.47 && p.Lng <= 71.50:
		return "Ring Road"
	case p.Lat >= 34.00 && p.Lat <= 34.01 && p.Lng >= 71.53 && p.Lng < 71.55:
		return "Jamrud Road"
	default:
		return "Local Road " + strconv.Itoa(rng.Intn(100)+1)
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
