package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazardmap/hazardmap/internal/api"
	"github.com/hazardmap/hazardmap/internal/api/handler"
	"github.com/hazardmap/hazardmap/internal/api/models"
	"github.com/hazardmap/hazardmap/internal/geo"
	"github.com/hazardmap/hazardmap/internal/hazard"
	"github.com/hazardmap/hazardmap/internal/route"
	"github.com/hazardmap/hazardmap/internal/speed"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	repo := hazard.NewMemoryRepository()
	advisor := speed.NewAdvisor(speed.DefaultConfig())

	return api.NewRouter(api.RouterConfig{
		Version:       "test",
		BuildTime:     "now",
		Logger:        zerolog.Nop(),
		HazardService: hazard.NewService(repo, advisor),
		RouteAnalyzer: route.NewAnalyzer(repo, advisor, route.DefaultAnalyzerConfig()),
	})
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createRequestBody() models.HazardCreateRequest {
	return models.HazardCreateRequest{
		Latitude:   34.0151,
		Longitude:  71.5249,
		Type:       "pothole",
		Severity:   "high",
		Confidence: 0.9,
		SpeedLimit: 50,
		RoadName:   "GT Road",
		Area:       "Cantonment",
	}
}

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/v1/ops/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var health models.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Details["version"])
}

func TestRouter_ReadinessReportsFailingSubsystem(t *testing.T) {
	repo := hazard.NewMemoryRepository()
	advisor := speed.NewAdvisor(speed.DefaultConfig())
	router := api.NewRouter(api.RouterConfig{
		Logger:        zerolog.Nop(),
		HazardService: hazard.NewService(repo, advisor),
		RouteAnalyzer: route.NewAnalyzer(repo, advisor, route.DefaultAnalyzerConfig()),
		ReadinessChecks: map[string]handler.Pinger{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		},
	})

	rec := doJSON(t, router, http.MethodGet, "/v1/ops/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, models.HealthStatusFail, status.Status)
	assert.Len(t, status.Subsystems, 2)
}

func TestRouter_CreateAndGetHazard(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/hazards", createRequestBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.Hazard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 25, created.RecommendedSpeed, "derived from severity")
	assert.Equal(t, "/v1/hazards/"+created.ID, rec.Header().Get("Location"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = doJSON(t, router, http.MethodGet, "/v1/hazards/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched models.Hazard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, "GT Road", fetched.RoadName)
}

func TestRouter_CreateHazard_ValidationProblem(t *testing.T) {
	router := newTestRouter(t)

	body := createRequestBody()
	body.Latitude = 95
	body.Severity = "catastrophic"
	body.RoadName = ""

	rec := doJSON(t, router, http.MethodPost, "/v1/hazards", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var problem models.Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, models.ProblemTypeValidation, problem.Type)

	fields := make(map[string]bool)
	for _, fe := range problem.Errors {
		fields[fe.Field] = true
	}
	assert.True(t, fields["latitude"])
	assert.True(t, fields["severity"])
	assert.True(t, fields["roadName"])
}

func TestRouter_GetHazard_NotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/v1/hazards/hzd_missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestRouter_UpdateHazard(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/hazards", createRequestBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Hazard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	verified := true
	sev := "low"
	rec = doJSON(t, router, http.MethodPut, "/v1/hazards/"+created.ID, models.HazardUpdateRequest{
		Severity: &sev,
		Verified: &verified,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.Hazard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.True(t, updated.Verified)
	assert.Equal(t, "low", updated.Severity)
	assert.Equal(t, 45, updated.RecommendedSpeed, "re-derived for new severity")
}

func TestRouter_DeleteHazard_Idempotent(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/hazards", createRequestBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Hazard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, router, http.MethodDelete, "/v1/hazards/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/v1/hazards/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code, "repeated delete is still 204")
}

func TestRouter_QueryHazardsByBounds(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/hazards", createRequestBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	outside := createRequestBody()
	outside.Latitude = 35.5
	rec = doJSON(t, router, http.MethodPost, "/v1/hazards", outside)
	require.Equal(t, http.StatusCreated, rec.Code)

	url := "/v1/hazards/?minLat=33.9&minLng=71.4&maxLat=34.1&maxLng=71.7"
	rec = doJSON(t, router, http.MethodGet, url, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var list models.HazardList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
}

func TestRouter_QueryHazards_BadParams(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/v1/hazards/?minLat=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_NearbyHazards(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/hazards", createRequestBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	url := "/v1/hazards/nearby?lat=34.0151&lng=71.5249&radiusKm=1.0"
	rec = doJSON(t, router, http.MethodGet, url, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var list models.NearbyHazardList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.InDelta(t, 0, list.Hazards[0].DistanceKm, 0.001)
}

func TestRouter_RouteHazards(t *testing.T) {
	router := newTestRouter(t)

	// Hazard halfway along the segment, off both endpoints.
	body := createRequestBody()
	body.Latitude = 34.003
	body.Longitude = 71.55
	rec := doJSON(t, router, http.MethodPost, "/v1/hazards", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/v1/hazards/route", models.RouteHazardsRequest{
		Waypoints: []models.Point{
			{Lat: 34.0, Lng: 71.50},
			{Lat: 34.0, Lng: 71.60},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var list models.NearbyHazardList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count, "default 0.5 km buffer catches mid-segment hazards")
}

func TestRouter_RouteHazards_RejectsBothInputs(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/hazards/route", models.RouteHazardsRequest{
		Waypoints: []models.Point{{Lat: 34.0, Lng: 71.5}},
		Polyline:  "_p~iF~ps|U",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_SpeedRecommendations(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/hazards", createRequestBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	limit := 50
	rec = doJSON(t, router, http.MethodPost, "/v1/speed-recommendations", models.SpeedRecommendationsRequest{
		Waypoints: []models.RouteWaypoint{
			{Latitude: 34.0151, Longitude: 71.5249, SpeedLimit: &limit},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var list models.SpeedRecommendationList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Less(t, list.Recommendations[0].RecommendedSpeed, 50)
	assert.NotEmpty(t, list.Recommendations[0].Hazards)
}

func TestRouter_SpeedRecommendations_Polyline(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/hazards", createRequestBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	encoded := geo.EncodePolyline([]geo.Point{{Lat: 34.0151, Lng: 71.5249}})
	rec = doJSON(t, router, http.MethodPost, "/v1/speed-recommendations", models.SpeedRecommendationsRequest{
		Polyline: encoded,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var list models.SpeedRecommendationList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
}

func TestRouter_SpeedRecommendations_EmptyRoute(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/speed-recommendations", models.SpeedRecommendationsRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_LocationRecommendation(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/hazards", createRequestBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	url := "/v1/speed-recommendations/location?lat=34.0151&lng=71.5249&speedLimit=50"
	rec = doJSON(t, router, http.MethodGet, url, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var loc models.LocationRecommendation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loc))
	assert.Equal(t, models.SafetyStatusDanger, loc.SafetyStatus)
	assert.Less(t, loc.RecommendedSpeed, loc.SpeedLimit)

	// Far from everything the limit is retained and the status is safe.
	url = "/v1/speed-recommendations/location?lat=33.5&lng=70.5"
	rec = doJSON(t, router, http.MethodGet, url, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loc))
	assert.Equal(t, models.SafetyStatusSafe, loc.SafetyStatus)
	assert.Equal(t, loc.SpeedLimit, loc.RecommendedSpeed)
}

func TestRouter_RouteAnalysis(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/hazards", createRequestBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	limit := 50
	rec = doJSON(t, router, http.MethodPost, "/v1/speed-recommendations/route-analysis", models.SpeedRecommendationsRequest{
		Waypoints: []models.RouteWaypoint{
			{Latitude: 34.0151, Longitude: 71.5249, SpeedLimit: &limit},
			{Latitude: 34.0900, Longitude: 71.6200, SpeedLimit: &limit},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var analysis models.RouteAnalysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	assert.Equal(t, 2, analysis.TotalWaypoints)
	assert.Positive(t, analysis.TotalDistanceKm)
	assert.Equal(t, 1, analysis.TotalHazards)
	assert.Equal(t, 1, analysis.HazardDistribution["pothole"])
	assert.Equal(t, 1, analysis.SeverityDistribution["high"])
	require.NotNil(t, analysis.MostDangerousSegment)
	assert.Equal(t, 0, analysis.MostDangerousSegment.WaypointIndex)
	assert.Positive(t, analysis.EstimatedExtraTimeMinutes)
}

func TestRouter_SecurityHeaders(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/v1/ops/health", nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRouter_UnknownRoute(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/v1/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
