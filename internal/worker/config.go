// Package worker provides background job processing for the hazard map.
package worker

import (
	"sort"
	"time"

	"github.com/hazardmap/hazardmap/internal/geo"
)

// WarmTarget is a geographic hotspot whose nearby-hazard queries are kept
// warm in the cache.
type WarmTarget struct {
	// Name is the human-readable name of the hotspot.
	Name string

	// Points are the query centers to warm. Typically the busiest
	// junctions and corridor entry points of an area.
	Points []geo.Point

	// Priority determines warm order (lower = higher priority).
	Priority int
}

// IngestConfig holds configuration for the detection ingest job.
type IngestConfig struct {
	// WarmTargets are the hotspots to warm after each ingest.
	// If empty, uses DefaultWarmTargets.
	WarmTargets []WarmTarget

	// Concurrency is the number of concurrent ingest workers.
	// Default: 3
	Concurrency int

	// Timeout bounds each store operation.
	// Default: 30 seconds
	Timeout time.Duration

	// WarmRadiusKm is the radius used for cache-warming queries.
	// Default: 2.0
	WarmRadiusKm float64

	// Lookback is how far back the first fetch reaches when no
	// checkpoint exists yet. Default: 24 hours.
	Lookback time.Duration
}

// DefaultIngestConfig returns the default ingest configuration.
func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		WarmTargets:  DefaultWarmTargets(),
		Concurrency:  3,
		Timeout:      30 * time.Second,
		WarmRadiusKm: 2.0,
		Lookback:     24 * time.Hour,
	}
}

// DefaultWarmTargets returns the default warm targets for Peshawar.
// Focuses on the arterial corridors with the densest traffic.
func DefaultWarmTargets() []WarmTarget {
	return []WarmTarget{
		{
			Name:     "City Centre",
			Priority: 1,
			Points: []geo.Point{
				{Lat: 34.0151, Lng: 71.5249}, // Chowk Yadgar
				{Lat: 34.0083, Lng: 71.5448}, // Saddar Bazaar
				{Lat: 34.0046, Lng: 71.5362}, // Peshawar Cantt station
			},
		},
		{
			Name:     "University Road",
			Priority: 1,
			Points: []geo.Point{
				{Lat: 34.0077, Lng: 71.4913}, // University of Peshawar
				{Lat: 34.0012, Lng: 71.5190}, // Board Bazaar
			},
		},
		{
			Name:     "Hayatabad",
			Priority: 2,
			Points: []geo.Point{
				{Lat: 33.9876, Lng: 71.4355}, // Phase 3 chowk
				{Lat: 33.9773, Lng: 71.4169}, // Karkhano Market
			},
		},
		{
			Name:     "Ring Road",
			Priority: 2,
			Points: []geo.Point{
				{Lat: 34.0437, Lng: 71.5622}, // Charsadda Road interchange
				{Lat: 33.9705, Lng: 71.5513}, // Kohat Road interchange
			},
		},
		{
			Name:     "GT Road East",
			Priority: 3,
			Points: []geo.Point{
				{Lat: 34.0179, Lng: 71.5903}, // Chamkani
			},
		},
	}
}

// AllPoints returns all warm points ordered by target priority, lowest
// number first. Targets with equal priority keep their configured order.
func (c IngestConfig) AllPoints() []geo.Point {
	targets := make([]WarmTarget, len(c.WarmTargets))
	copy(targets, c.WarmTargets)
	sort.SliceStable(targets, func(a, b int) bool {
		return targets[a].Priority < targets[b].Priority
	})

	var points []geo.Point
	for _, target := range targets {
		points = append(points, target.Points...)
	}
	return points
}

// TotalPoints returns the total number of warm points.
func (c IngestConfig) TotalPoints() int {
	total := 0
	for _, target := range c.WarmTargets {
		total += len(target.Points)
	}
	return total
}
