package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activity-planner/internal/observability"
	"activity-planner/internal/planner"
	"activity-planner/internal/sunrise"
)

const providerURL = "https://api.sunrise-sunset.org/json"

// newTestServer wires the real fetcher (behind httpmock) and composer.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	httpClient := &http.Client{}
	httpmock.ActivateNonDefault(httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	client, err := sunrise.NewClient(sunrise.ClientConfig{
		Endpoint:       providerURL,
		Timezone:       "America/Sao_Paulo",
		InitialBackoff: time.Millisecond,
		HTTPClient:     httpClient,
	})
	require.NoError(t, err)

	composer, err := planner.NewComposer("en")
	require.NoError(t, err)

	return NewServer(ServerConfig{
		Port:    0,
		Planner: planner.NewService(client, composer, nil),
	})
}

func postPlan(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/plan-activity", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestPlanActivity_Success(t *testing.T) {
	s := newTestServer(t)
	httpmock.RegisterResponder(http.MethodGet, providerURL,
		httpmock.NewStringResponder(http.StatusOK,
			`{"status": "OK", "results": {"sunrise": "6:00:00 AM", "sunset": "6:00:00 PM", "day_length": "12:00:00"}}`))
	before := testutil.ToFloat64(observability.PlanRequests("200"))

	rr := postPlan(t, s, `{"latitude": -23.5505, "longitude": -46.6333, "date": "2025-03-20"}`)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp planner.ActivityResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "6:00:00 AM", resp.Sunrise)
	assert.Equal(t, "6:00:00 PM", resp.Sunset)
	assert.Equal(t, "12:00:00", resp.DayLength)
	require.Len(t, resp.Activities, 4)
	assert.Contains(t, resp.Activities[0], "6:00 AM")
	assert.Contains(t, resp.Activities[2], "6:00 PM")
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	assert.InDelta(t, before+1, testutil.ToFloat64(observability.PlanRequests("200")), 0.001)
	assert.NotEmpty(t, rr.Header().Get(requestIDHeader))
}

func TestPlanActivity_ZeroCoordinatesAreValid(t *testing.T) {
	s := newTestServer(t)
	httpmock.RegisterResponder(http.MethodGet, providerURL,
		httpmock.NewStringResponder(http.StatusOK,
			`{"status": "OK", "results": {"sunrise": "6:00:00 AM", "sunset": "6:00:00 PM", "day_length": "12:00:00"}}`))

	rr := postPlan(t, s, `{"latitude": 0, "longitude": 0, "date": "2025-03-20"}`)

	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestPlanActivity_ValidationRejectsBeforeOutboundCall(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"latitude_above_range", `{"latitude": 90.5, "longitude": 0, "date": "2025-03-20"}`, "latitude"},
		{"latitude_below_range", `{"latitude": -91, "longitude": 0, "date": "2025-03-20"}`, "latitude"},
		{"longitude_above_range", `{"latitude": 0, "longitude": 180.01, "date": "2025-03-20"}`, "longitude"},
		{"longitude_below_range", `{"latitude": 0, "longitude": -200, "date": "2025-03-20"}`, "longitude"},
		{"missing_latitude", `{"longitude": 0, "date": "2025-03-20"}`, "latitude"},
		{"malformed_date", `{"latitude": 0, "longitude": 0, "date": "20/03/2025"}`, "date"},
		{"impossible_date", `{"latitude": 0, "longitude": 0, "date": "2025-02-30"}`, "date"},
		{"missing_date", `{"latitude": 0, "longitude": 0}`, "date"},
		{"not_json", `latitude=0`, "body"},
		{"wrong_type", `{"latitude": "north", "longitude": 0, "date": "2025-03-20"}`, "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			httpmock.RegisterResponder(http.MethodGet, providerURL,
				httpmock.NewStringResponder(http.StatusOK, `{"status": "OK"}`))

			rr := postPlan(t, s, tt.body)

			assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
			assert.Zero(t, httpmock.GetTotalCallCount())

			var resp struct {
				Detail []FieldError `json:"detail"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			require.NotEmpty(t, resp.Detail)
			assert.Equal(t, tt.field, resp.Detail[0].Field)
		})
	}
}

func TestPlanActivity_UpstreamUnreachable(t *testing.T) {
	s := newTestServer(t)
	httpmock.RegisterResponder(http.MethodGet, providerURL,
		httpmock.NewErrorResponder(errors.New("connection refused")))

	rr := postPlan(t, s, `{"latitude": 10, "longitude": 10, "date": "2025-03-20"}`)

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, 3, httpmock.GetTotalCallCount())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "upstream unavailable", resp["error"])
	assert.Contains(t, resp["detail"], "after 3 attempts")
	assert.Contains(t, resp["detail"], "network error or timeout")
}

func TestPlanActivity_UpstreamDomainError(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		detail string
	}{
		{"invalid_request", `{"status": "INVALID_REQUEST"}`, "returned status 'INVALID_REQUEST'"},
		{"incomplete", `{"status": "OK", "results": {"sunrise": "6:00:00 AM"}}`, "error or incomplete data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			httpmock.RegisterResponder(http.MethodGet, providerURL,
				httpmock.NewStringResponder(http.StatusOK, tt.body))

			rr := postPlan(t, s, `{"latitude": 10, "longitude": 10, "date": "2025-03-20"}`)

			assert.Equal(t, http.StatusBadGateway, rr.Code)
			assert.Equal(t, 1, httpmock.GetTotalCallCount())

			var resp map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, "upstream unavailable", resp["error"])
			assert.Contains(t, resp["detail"], tt.detail)
		})
	}
}

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/", "/health"} {
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rr.Body.String(), "/plan-activity")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	observability.RecordPlanRequest("200")

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "activity_planner_plan_requests_total")
}

func TestRequestIDIsPropagated(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	assert.Equal(t, "abc-123", rr.Header().Get(requestIDHeader))
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/plan-activity", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
