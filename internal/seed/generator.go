// Package seed generates realistic demo hazard data for the Peshawar road
// network and loads it through the hazard service so every record passes
// the same validation as production writes.
package seed

import (
	"math/rand"
	"strconv"
	"time"

	"github.com/hazardmap/hazardmap/internal/geo"
	"github.com/hazardmap/hazardmap/internal/hazard"
)

// Peshawar geographic bounds.
const (
	boundsLatMin = 33.9
	boundsLatMax = 34.1
	boundsLngMin = 71.4
	boundsLngMax = 71.7
)

// Road describes a major road used as a hazard anchor.
type Road struct {
	Name       string
	Area       string
	SpeedLimit int
	Points     []geo.Point
}

// PeshawarRoads returns the major roads hazards cluster around.
func PeshawarRoads() []Road {
	return []Road{
		{
			Name: "GT Road", Area: "Cantonment", SpeedLimit: 80,
			Points: []geo.Point{{Lat: 34.0151, Lng: 71.5249}, {Lat: 34.0089, Lng: 71.5456}, {Lat: 34.0023, Lng: 71.5678}},
		},
		{
			Name: "University Road", Area: "University Town", SpeedLimit: 60,
			Points: []geo.Point{{Lat: 34.0151, Lng: 71.5249}, {Lat: 34.0198, Lng: 71.5156}, {Lat: 34.0245, Lng: 71.5089}},
		},
		{
			Name: "Ring Road", Area: "Hayatabad", SpeedLimit: 80,
			Points: []geo.Point{{Lat: 33.9889, Lng: 71.4756}, {Lat: 33.9945, Lng: 71.4689}, {Lat: 34.0012, Lng: 71.4623}},
		},
		{
			Name: "Jamrud Road", Area: "Board Bazaar", SpeedLimit: 50,
			Points: []geo.Point{{Lat: 34.0151, Lng: 71.5249}, {Lat: 34.0089, Lng: 71.5356}, {Lat: 34.0023, Lng: 71.5478}},
		},
		{
			Name: "Peshawar Road", Area: "Saddar", SpeedLimit: 40,
			Points: []geo.Point{{Lat: 34.0151, Lng: 71.5249}, {Lat: 34.0198, Lng: 71.5356}, {Lat: 34.0245, Lng: 71.5478}},
		},
		{
			Name: "Charsadda Road", Area: "Charsadda", SpeedLimit: 60,
			Points: []geo.Point{{Lat: 34.0312, Lng: 71.5234}, {Lat: 34.0378, Lng: 71.5156}, {Lat: 34.0445, Lng: 71.5089}},
		},
		{
			Name: "Kohat Road", Area: "Kohat", SpeedLimit: 70,
			Points: []geo.Point{{Lat: 34.0089, Lng: 71.5456}, {Lat: 34.0023, Lng: 71.5578}, {Lat: 33.9956, Lng: 71.5689}},
		},
		{
			Name: "Warsak Road", Area: "Warsak", SpeedLimit: 50,
			Points: []geo.Point{{Lat: 34.0456, Lng: 71.5123}, {Lat: 34.0523, Lng: 71.5056}, {Lat: 34.0589, Lng: 71.4989}},
		},
	}
}

// typeWeight pairs a hazard type with its sampling probability.
type typeWeight struct {
	typ    hazard.Type
	weight float64
}

// Potholes dominate, flooding is rare outside monsoon season.
var typeWeights = []typeWeight{
	{hazard.TypePothole, 0.45},
	{hazard.TypeCrack, 0.25},
	{hazard.TypeDebris, 0.15},
	{hazard.TypeConstruction, 0.10},
	{hazard.TypeFlooding, 0.05},
}

type severityWeight struct {
	sev    hazard.Severity
	weight float64
}

var severityWeights = []severityWeight{
	{hazard.SeverityLow, 0.60},
	{hazard.SeverityMedium, 0.30},
	{hazard.SeverityHigh, 0.10},
}

var weatherConditions = []string{
	"Clear", "Partly Cloudy", "Cloudy", "Light Rain", "Heavy Rain",
	"Dust Storm", "Foggy", "Hot", "Mild", "Cold",
}

// GeneratorConfig holds the tunable knobs of the generator.
type GeneratorConfig struct {
	// Count is the number of hazards to generate. Default: 250.
	Count int

	// NearRoadFraction is the share of hazards anchored to a major road
	// rather than scattered across the city. Default: 0.7.
	NearRoadFraction float64

	// Seed makes the output reproducible. Zero seeds from the clock.
	Seed int64
}

// DefaultGeneratorConfig returns the documented defaults.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Count:            250,
		NearRoadFraction: 0.7,
	}
}

// Generator produces hazard create inputs with a realistic Peshawar
// distribution.
type Generator struct {
	cfg   GeneratorConfig
	roads []Road
	rng   *rand.Rand
}

// NewGenerator creates a Generator, backfilling zero config values with the
// defaults.
func NewGenerator(cfg GeneratorConfig) *Generator {
	def := DefaultGeneratorConfig()
	if cfg.Count <= 0 {
		cfg.Count = def.Count
	}
	if cfg.NearRoadFraction <= 0 || cfg.NearRoadFraction > 1 {
		cfg.NearRoadFraction = def.NearRoadFraction
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		cfg:   cfg,
		roads: PeshawarRoads(),
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Generate produces the configured number of create inputs. Recommended
// speeds are left zero so the hazard service derives them from severity.
func (g *Generator) Generate() []hazard.CreateInput {
	nearRoad := int(float64(g.cfg.Count) * g.cfg.NearRoadFraction)

	inputs := make([]hazard.CreateInput, 0, g.cfg.Count)
	for i := 0; i < nearRoad; i++ {
		inputs = append(inputs, g.roadHazard())
	}
	for i := nearRoad; i < g.cfg.Count; i++ {
		inputs = append(inputs, g.scatteredHazard())
	}
	return inputs
}

// roadHazard anchors a hazard near a random point of a major road, with
// about 100 m of jitter.
func (g *Generator) roadHazard() hazard.CreateInput {
	road := g.roads[g.rng.Intn(len(g.roads))]
	anchor := road.Points[g.rng.Intn(len(road.Points))]

	location := geo.Point{
		Lat: anchor.Lat + g.uniform(-0.001, 0.001),
		Lng: anchor.Lng + g.uniform(-0.001, 0.001),
	}

	weather := weatherConditions[g.rng.Intn(len(weatherConditions))]
	return hazard.CreateInput{
		Location:         location,
		Type:             string(g.pickType()),
		Severity:         string(g.pickSeverity()),
		Confidence:       g.uniform(0.7, 0.95),
		DetectedAt:       g.detectionTime(),
		SpeedLimit:       road.SpeedLimit,
		RoadName:         road.Name,
		Area:             road.Area,
		WeatherCondition: &weather,
	}
}

// scatteredHazard places a hazard anywhere inside the city bounds.
func (g *Generator) scatteredHazard() hazard.CreateInput {
	location := geo.Point{
		Lat: g.uniform(boundsLatMin, boundsLatMax),
		Lng: g.uniform(boundsLngMin, boundsLngMax),
	}
	limits := []int{30, 40, 50, 60}

	weather := weatherConditions[g.rng.Intn(len(weatherConditions))]
	return hazard.CreateInput{
		Location:         location,
		Type:             string(g.pickType()),
		Severity:         string(g.pickSeverity()),
		Confidence:       g.uniform(0.6, 0.9),
		DetectedAt:       g.detectionTime(),
		SpeedLimit:       limits[g.rng.Intn(len(limits))],
		RoadName:         "Local Road " + strconv.Itoa(g.rng.Intn(100)+1),
		Area:             areaFor(location),
		WeatherCondition: &weather,
	}
}

func (g *Generator) pickType() hazard.Type {
	r := g.rng.Float64()
	cumulative := 0.0
	for _, tw := range typeWeights {
		cumulative += tw.weight
		if r <= cumulative {
			return tw.typ
		}
	}
	return hazard.TypePothole
}

func (g *Generator) pickSeverity() hazard.Severity {
	r := g.rng.Float64()
	cumulative := 0.0
	for _, sw := range severityWeights {
		cumulative += sw.weight
		if r <= cumulative {
			return sw.sev
		}
	}
	return hazard.SeverityLow
}

// detectionTime spreads detections over the last 30 days.
func (g *Generator) detectionTime() time.Time {
	back := time.Duration(g.rng.Int63n(int64(30 * 24 * time.Hour)))
	return time.Now().UTC().Add(-back)
}

func (g *Generator) uniform(min, max float64) float64 {
	return min + g.rng.Float64()*(max-min)
}

// areaFor assigns a coarse area name to a scattered location.
func areaFor(p geo.Point) string {
	switch {
	case p.Lat > 34.02:
		return "University Town"
	case p.Lat < 33.95:
		return "Hayatabad"
	case p.Lng > 71.6:
		return "Board Bazaar"
	default:
		return "Cantonment"
	}
}
