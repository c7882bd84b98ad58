package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/hazardmap/hazardmap/internal/telemetry"

// FeedMetrics holds metrics for detection feed calls.
type FeedMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
}

// NewFeedMetrics creates metrics for monitoring detection feed calls.
func NewFeedMetrics() (*FeedMetrics, error) {
	meter := otel.Meter(meterName)

	requestDuration, err := meter.Float64Histogram(
		"feed.request.duration",
		metric.WithDescription("Duration of detection feed requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"feed.request.total",
		metric.WithDescription("Total number of detection feed requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &FeedMetrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
	}, nil
}

// RecordRequest records one feed request.
func (m *FeedMetrics) RecordRequest(feed, operation string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("feed.name", feed),
		attribute.String("feed.operation", operation),
	}
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}

	// Background context so a canceled request context cannot drop the sample.
	ctx := context.Background()
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// CacheMetrics holds hit/miss counters for the hazard query cache.
type CacheMetrics struct {
	hits   metric.Int64Counter
	misses metric.Int64Counter
}

// NewCacheMetrics creates metrics for monitoring the query cache.
func NewCacheMetrics() (*CacheMetrics, error) {
	meter := otel.Meter(meterName)

	hits, err := meter.Int64Counter(
		"cache.hit",
		metric.WithDescription("Number of query cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	misses, err := meter.Int64Counter(
		"cache.miss",
		metric.WithDescription("Number of query cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, err
	}

	return &CacheMetrics{hits: hits, misses: misses}, nil
}

// RecordHit records a cache hit for an operation.
func (m *CacheMetrics) RecordHit(operation string) {
	m.hits.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("cache.operation", operation),
	))
}

// RecordMiss records a cache miss for an operation.
func (m *CacheMetrics) RecordMiss(operation string) {
	m.misses.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("cache.operation", operation),
	))
}
