package mapbox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/collision-dashboard/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testToken         = "test-token"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		token:      testToken,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_ReverseGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/-73.910000,40.710000.json", r.URL.Path, "mapbox expects lon,lat")
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, reverseTypes, r.URL.Query().Get("types"))
		assert.Equal(t, testToken, r.URL.Query().Get("access_token"))

		resp := response{
			Features: []feature{
				{
					Center:    []float64{-73.9101, 40.7099},
					PlaceName: "Ridgewood, Queens, New York, United States",
					Text:      "Ridgewood",
					Relevance: 0.98,
				},
			},
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	result, err := c.ReverseGeocode(context.Background(), 40.71, -73.91)
	require.NoError(t, err)

	assert.Equal(t, "Ridgewood, Queens, New York, United States", result.FormattedAddress)
	assert.Equal(t, "Ridgewood", result.PlaceName)
	assert.Equal(t, 0.98, result.Confidence)
	assert.Equal(t, 40.7099, result.Lat)
	assert.Equal(t, -73.9101, result.Lon)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues("success")))
}

func TestClient_ReverseGeocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{Features: []feature{}}))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	result, err := c.ReverseGeocode(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, result.FormattedAddress)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues("empty")))
}

func TestClient_ReverseGeocode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	_, err := c.ReverseGeocode(context.Background(), 40.71, -73.91)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Not Authorized")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues("error")))
}

func TestClient_ReverseGeocode_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"features":`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	_, err := c.ReverseGeocode(context.Background(), 40.71, -73.91)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_ReverseGeocode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 50*time.Millisecond)
	_, err := c.ReverseGeocode(context.Background(), 40.71, -73.91)
	require.Error(t, err)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("tok", 3*time.Second, observability.NewMetricsForTesting(), slog.Default())

	assert.Equal(t, defaultBaseURL, c.baseURL)
	assert.Equal(t, 3*time.Second, c.httpClient.Timeout)
}
