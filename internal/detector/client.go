// Package detector provides a client for the road hazard detection feed,
// the external vision pipeline that turns dashcam frames into candidate
// hazards.
package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/hazardmap/hazardmap/internal/geo"
	"github.com/hazardmap/hazardmap/internal/hazard"
	"github.com/hazardmap/hazardmap/internal/telemetry"
)

const (
	// DefaultBaseURL is the base URL of the detection feed.
	DefaultBaseURL = "http://localhost:8500/api"

	// FeedName identifies this feed for circuit breaker naming.
	FeedName = "hazard-detector"
)

// Detection is one candidate hazard produced by the vision pipeline.
// It carries raw strings for type and severity; validation happens when
// the detection is turned into a hazard record.
type Detection struct {
	Location         geo.Point
	Type             string
	Severity         string
	Confidence       float64
	DetectedAt       time.Time
	SpeedLimit       int
	RoadName         string
	Area             string
	ImagePath        *string
	WeatherCondition *string
}

// Input converts the detection into a hazard create request.
func (d Detection) Input() hazard.CreateInput {
	return hazard.CreateInput{
		Location:         d.Location,
		Type:             d.Type,
		Severity:         d.Severity,
		Confidence:       d.Confidence,
		DetectedAt:       d.DetectedAt,
		SpeedLimit:       d.SpeedLimit,
		RoadName:         d.RoadName,
		Area:             d.Area,
		ImagePath:        d.ImagePath,
		WeatherCondition: d.WeatherCondition,
	}
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the detection feed client.
type ClientConfig struct {
	// BaseURL is the feed base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient overrides the transport. If nil, a resilient client
	// with circuit breaker and retries is created.
	HTTPClient HTTPDoer

	// Resilience tunes the default transport. Ignored when HTTPClient
	// is set.
	Resilience *ResilientConfig

	// Metrics records request durations and outcomes. Nil disables
	// recording.
	Metrics *telemetry.FeedMetrics
}

// Client fetches detections from the feed.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	metrics    *telemetry.FeedMetrics
}

// NewClient creates a detection feed client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		rcfg := DefaultResilientConfig(FeedName)
		if cfg.Resilience != nil {
			rcfg = *cfg.Resilience
		}
		httpClient = newResilientClient(rcfg)
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		metrics:    cfg.Metrics,
	}
}

// Feed wire types.

type detectionsResponse struct {
	Pagination paginationInfo  `json:"pagination"`
	Data       []detectionData `json:"data"`
}

type paginationInfo struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
}

type detectionData struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	Type             string  `json:"hazard_type"`
	Severity         string  `json:"severity"`
	Confidence       float64 `json:"confidence"`
	DetectedAt       string  `json:"detected_at"`
	SpeedLimit       int     `json:"speed_limit"`
	RoadName         string  `json:"road_name"`
	Area             string  `json:"area"`
	ImagePath        *string `json:"image_path"`
	WeatherCondition *string `json:"weather_condition"`
}

// FetchSince retrieves all detections reported after the given time,
// following pagination to the last page.
func (c *Client) FetchSince(ctx context.Context, since time.Time) ([]Detection, error) {
	var all []Detection
	page := 1

	for {
		detections, lastPage, err := c.fetchPage(ctx, since, page)
		if err != nil {
			return nil, err
		}
		all = append(all, detections...)

		if page >= lastPage {
			break
		}
		page++
	}

	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, since time.Time, page int) ([]Detection, int, error) {
	start := time.Now()
	detections, lastPage, err := c.doFetchPage(ctx, since, page)
	if c.metrics != nil {
		c.metrics.RecordRequest(FeedName, "fetch_detections", time.Since(start), err)
	}
	return detections, lastPage, err
}

func (c *Client) doFetchPage(ctx context.Context, since time.Time, page int) ([]Detection, int, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprintf("%d", page))
	if !since.IsZero() {
		q.Set("since", since.UTC().Format(time.RFC3339))
	}

	endpoint := fmt.Sprintf("%s/detections?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch detections: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("unexpected status %d from detections endpoint", resp.StatusCode)
	}

	var result detectionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, 0, fmt.Errorf("decode detections response: %w", err)
	}

	detections := make([]Detection, 0, len(result.Data))
	for i := range result.Data {
		det, err := toDetection(&result.Data[i])
		if err != nil {
			return nil, 0, fmt.Errorf("detection %d on page %d: %w", i, page, err)
		}
		detections = append(detections, det)
	}

	lastPage := result.Pagination.LastPage
	if lastPage == 0 {
		lastPage = page
	}
	return detections, lastPage, nil
}

// BreakerState exposes the transport circuit state for readiness checks,
// or the closed state when a custom transport is in use.
func (c *Client) BreakerState() gobreaker.State {
	if rc, ok := c.httpClient.(*resilientClient); ok {
		return rc.BreakerState()
	}
	return gobreaker.StateClosed
}

func toDetection(d *detectionData) (Detection, error) {
	detectedAt, err := time.Parse(time.RFC3339, d.DetectedAt)
	if err != nil {
		return Detection{}, fmt.Errorf("parse detected_at %q: %w", d.DetectedAt, err)
	}

	return Detection{
		Location:         geo.Point{Lat: d.Latitude, Lng: d.Longitude},
		Type:             d.Type,
		Severity:         d.Severity,
		Confidence:       d.Confidence,
		DetectedAt:       detectedAt,
		SpeedLimit:       d.SpeedLimit,
		RoadName:         d.RoadName,
		Area:             d.Area,
		ImagePath:        d.ImagePath,
		WeatherCondition: d.WeatherCondition,
	}, nil
}
