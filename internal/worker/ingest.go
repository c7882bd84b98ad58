package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hazardmap/hazardmap/internal/detector"
	"github.com/hazardmap/hazardmap/internal/geo"
	"github.com/hazardmap/hazardmap/internal/hazard"
)

// DetectionFeed supplies candidate hazards from the detection pipeline.
// Satisfied by detector.Client.
type DetectionFeed interface {
	FetchSince(ctx context.Context, since time.Time) ([]detector.Detection, error)
}

// dedupRadiusKm bounds the query that checks whether a refetched
// detection is already stored. Natural-key matching is exact; the radius
// only narrows the candidate set.
const dedupRadiusKm = 0.01

// IngestJob pulls detections from the feed, stores them as hazards, and
// warms the query cache for configured hotspots.
type IngestJob struct {
	config  IngestConfig
	logger  zerolog.Logger
	feed    DetectionFeed
	hazards *hazard.Service

	mu         sync.Mutex
	checkpoint time.Time
	metrics    IngestMetrics
}

// IngestMetrics tracks ingest job statistics.
type IngestMetrics struct {
	TotalRuns            int64
	DetectionsFetched    int64
	HazardsCreated       int64
	DetectionsRejected   int64
	DetectionsDuplicated int64
	StoreFailures        int64
	WarmQueries          int64
	WarmFailures         int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
}

// IngestJobConfig holds configuration for creating an IngestJob.
type IngestJobConfig struct {
	Config        IngestConfig
	Logger        zerolog.Logger
	Feed          DetectionFeed
	HazardService *hazard.Service
}

// NewIngestJob creates a new detection ingest job.
func NewIngestJob(cfg IngestJobConfig) *IngestJob {
	config := cfg.Config
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultIngestConfig().Concurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultIngestConfig().Timeout
	}
	if config.WarmRadiusKm <= 0 {
		config.WarmRadiusKm = DefaultIngestConfig().WarmRadiusKm
	}
	if config.Lookback <= 0 {
		config.Lookback = DefaultIngestConfig().Lookback
	}
	if len(config.WarmTargets) == 0 {
		config.WarmTargets = DefaultWarmTargets()
	}

	return &IngestJob{
		config:  config,
		logger:  cfg.Logger,
		feed:    cfg.Feed,
		hazards: cfg.HazardService,
	}
}

// IngestResult contains the result of one ingest run.
type IngestResult struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Fetched    int
	Created    int
	Rejected   int
	Duplicates int
	Failed     int
	Errors     []IngestError
}

// IngestError records one detection that could not be stored.
type IngestError struct {
	RoadName string
	Error    string
}

// Run fetches new detections since the last checkpoint and stores them
// with a bounded worker pool. Validation rejects are logged and skipped.
// Store failures hold the checkpoint just before the oldest failed
// detection so it is fetched again; detections that already landed on an
// earlier attempt are recognized by their natural key and skipped.
func (j *IngestJob) Run(ctx context.Context) *IngestResult {
	startTime := time.Now()
	result := &IngestResult{StartTime: startTime}

	since := j.currentCheckpoint()

	j.logger.Info().
		Time("since", since).
		Int("concurrency", j.config.Concurrency).
		Msg("starting detection ingest")

	detections, err := j.feed.FetchSince(ctx, since)
	if err != nil {
		j.logger.Error().Err(err).Msg("detection fetch failed")
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(startTime)
		result.Errors = append(result.Errors, IngestError{Error: err.Error()})
		result.Failed = 1
		j.record(result)
		return result
	}
	result.Fetched = len(detections)

	detectionsChan := make(chan detector.Detection, len(detections))
	resultsChan := make(chan ingestOutcome, len(detections))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.ingestWorker(ctx, detectionsChan, resultsChan)
		}()
	}

	for _, d := range detections {
		detectionsChan <- d
	}
	close(detectionsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	latest := since
	var oldestFailed time.Time
	for outcome := range resultsChan {
		switch {
		case outcome.created:
			result.Created++
			if outcome.detectedAt.After(latest) {
				latest = outcome.detectedAt
			}
		case outcome.duplicate:
			result.Duplicates++
			if outcome.detectedAt.After(latest) {
				latest = outcome.detectedAt
			}
		case outcome.rejected:
			result.Rejected++
		default:
			result.Failed++
			if oldestFailed.IsZero() || outcome.detectedAt.Before(oldestFailed) {
				oldestFailed = outcome.detectedAt
			}
		}
		if outcome.err != nil {
			result.Errors = append(result.Errors, IngestError{
				RoadName: outcome.roadName,
				Error:    outcome.err.Error(),
			})
		}
	}

	// Advance past detections that landed, but never past one that still
	// needs a retry.
	if len(detections) > 0 {
		watermark := latest
		if result.Failed > 0 {
			retryFrom := oldestFailed.Add(-time.Millisecond)
			if retryFrom.Before(watermark) {
				watermark = retryFrom
			}
		}
		j.advanceCheckpoint(watermark)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)
	j.record(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("fetched", result.Fetched).
		Int("created", result.Created).
		Int("rejected", result.Rejected).
		Int("duplicates", result.Duplicates).
		Int("failed", result.Failed).
		Msg("detection ingest completed")

	return result
}

type ingestOutcome struct {
	roadName   string
	detectedAt time.Time
	created    bool
	rejected   bool
	duplicate  bool
	err        error
}

func (j *IngestJob) ingestWorker(ctx context.Context, detections <-chan detector.Detection, results chan<- ingestOutcome) {
	for d := range detections {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.ingestOne(ctx, d)
		}
	}
}

func (j *IngestJob) ingestOne(ctx context.Context, d detector.Detection) ingestOutcome {
	storeCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	if j.alreadyStored(storeCtx, d) {
		j.logger.Debug().
			Str("road", d.RoadName).
			Time("detected_at", d.DetectedAt).
			Msg("detection already stored, skipping")
		return ingestOutcome{roadName: d.RoadName, detectedAt: d.DetectedAt, duplicate: true}
	}

	h, err := j.hazards.Create(storeCtx, d.Input())
	if err != nil {
		if _, ok := hazard.AsValidationError(err); ok {
			j.logger.Warn().Err(err).
				Str("road", d.RoadName).
				Str("type", d.Type).
				Msg("detection rejected")
			return ingestOutcome{roadName: d.RoadName, rejected: true, err: err}
		}
		return ingestOutcome{roadName: d.RoadName, detectedAt: d.DetectedAt, err: err}
	}

	return ingestOutcome{roadName: h.RoadName, detectedAt: h.DetectedAt, created: true}
}

// alreadyStored reports whether a hazard with the same location, type and
// detection time is already in the store. Refetches after a partial run
// overlap detections that landed on the earlier attempt; matching on the
// natural key keeps them from landing twice.
func (j *IngestJob) alreadyStored(ctx context.Context, d detector.Detection) bool {
	if d.DetectedAt.IsZero() {
		return false
	}

	nearby, err := j.hazards.QueryNearby(ctx, d.Location, dedupRadiusKm, hazard.Filter{})
	if err != nil {
		return false
	}
	for _, n := range nearby {
		h := n.Hazard
		if string(h.Type) == d.Type &&
			h.DetectedAt.Equal(d.DetectedAt) &&
			h.Location.Lat == d.Location.Lat &&
			h.Location.Lng == d.Location.Lng {
			return true
		}
	}
	return false
}

// WarmCache runs a nearby query for every configured hotspot so that
// cached results are fresh after an ingest. Failures are logged, never
// fatal.
func (j *IngestJob) WarmCache(ctx context.Context) {
	points := j.config.AllPoints()
	j.logger.Debug().Int("points", len(points)).Msg("warming hotspot queries")

	for _, p := range points {
		warmCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
		_, err := j.hazards.QueryNearby(warmCtx, p, j.config.WarmRadiusKm, hazard.Filter{})
		cancel()

		j.mu.Lock()
		j.metrics.WarmQueries++
		if err != nil {
			j.metrics.WarmFailures++
		}
		j.mu.Unlock()

		if err != nil {
			j.logger.Warn().Err(err).
				Float64("lat", p.Lat).
				Float64("lng", p.Lng).
				Msg("cache warm query failed")
		}
	}
}

func (j *IngestJob) currentCheckpoint() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.checkpoint.IsZero() {
		return time.Now().UTC().Add(-j.config.Lookback)
	}
	return j.checkpoint
}

func (j *IngestJob) advanceCheckpoint(to time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if to.After(j.checkpoint) {
		j.checkpoint = to
	}
}

func (j *IngestJob) record(result *IngestResult) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.DetectionsFetched += int64(result.Fetched)
	j.metrics.HazardsCreated += int64(result.Created)
	j.metrics.DetectionsRejected += int64(result.Rejected)
	j.metrics.DetectionsDuplicated += int64(result.Duplicates)
	j.metrics.StoreFailures += int64(result.Failed)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *IngestJob) GetMetrics() IngestMetrics {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.metrics
}

// MetricsSnapshot returns the current metrics as a map for ops endpoints.
func (j *IngestJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":            m.TotalRuns,
		"detections_fetched":    m.DetectionsFetched,
		"hazards_created":       m.HazardsCreated,
		"detections_rejected":   m.DetectionsRejected,
		"detections_duplicated": m.DetectionsDuplicated,
		"store_failures":        m.StoreFailures,
		"warm_queries":          m.WarmQueries,
		"warm_failures":         m.WarmFailures,
		"last_run_at":           m.LastRunAt,
		"last_run_duration":     m.LastRunDuration.String(),
	}
}

// nearestWarmPoint is used by health checks to pick a representative
// query center.
func (j *IngestJob) nearestWarmPoint() geo.Point {
	points := j.config.AllPoints()
	if len(points) == 0 {
		return geo.Point{Lat: 34.0151, Lng: 71.5249}
	}
	return points[0]
}
