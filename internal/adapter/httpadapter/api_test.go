package httpadapter_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/couchcryptid/collision-dashboard/internal/dashboard"
	"github.com/couchcryptid/collision-dashboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

func TestDashboardEndpoint_Defaults(t *testing.T) {
	srv, _, _ := newTestServer(t, &mockLoader{ds: sampleDataset()})

	rec := do(srv, http.MethodGet, "/api/v1/dashboard")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	view := decode[dashboard.View](t, rec.Body.Bytes())
	assert.Equal(t, 100, view.RowLimit)
	assert.Equal(t, 4, view.InjuryMap.MinInjured)
	assert.Len(t, view.InjuryMap.Points, 2, "default min_injured is 4")
	assert.Equal(t, 0, view.DensityMap.Hour)
	assert.Empty(t, view.DensityMap.Points)
	assert.Equal(t, domain.CategoryPedestrians, view.TopStreets.Category)
	assert.Nil(t, view.Raw)
}

func TestDashboardEndpoint_Params(t *testing.T) {
	srv, _, _ := newTestServer(t, &mockLoader{ds: sampleDataset()})

	rec := do(srv, http.MethodGet, "/api/v1/dashboard?rows=500&min_injured=0&hour=5&category=Motorists&raw=true")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	view := decode[dashboard.View](t, rec.Body.Bytes())
	assert.Equal(t, 500, view.RowLimit)
	assert.Len(t, view.InjuryMap.Points, 3)
	assert.Len(t, view.DensityMap.Points, 2)
	assert.Equal(t, "5:00 and 6:00", view.DensityMap.Window.Label)
	assert.Equal(t, 2, view.Histogram.Buckets[10].Crashes)
	assert.Equal(t, []domain.StreetCount{{Street: "Main St", Count: 1}}, view.TopStreets.Entries)
	require.NotNil(t, view.Raw)
	assert.Len(t, view.Raw.Records, 2)
}

func TestViewEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t, &mockLoader{ds: sampleDataset()})

	rec := do(srv, http.MethodGet, "/api/v1/injuries?min_injured=5")
	require.Equal(t, http.StatusOK, rec.Code)
	injuries := decode[dashboard.InjuryMapView](t, rec.Body.Bytes())
	assert.Equal(t, []domain.Point{{Lat: 40.70, Lon: -73.90}}, injuries.Points)

	rec = do(srv, http.MethodGet, "/api/v1/density?hour=6")
	require.Equal(t, http.StatusOK, rec.Code)
	density := decode[dashboard.DensityMapView](t, rec.Body.Bytes())
	assert.Len(t, density.Points, 1)
	assert.InDelta(t, 40.71, density.ViewState.Latitude, 1e-9)

	rec = do(srv, http.MethodGet, "/api/v1/histogram?hour=5")
	require.Equal(t, http.StatusOK, rec.Code)
	histogram := decode[dashboard.HistogramView](t, rec.Body.Bytes())
	assert.Len(t, histogram.Buckets, domain.MinutesPerHour)

	rec = do(srv, http.MethodGet, "/api/v1/streets?category=pedestrians&n=1")
	require.Equal(t, http.StatusOK, rec.Code)
	streets := decode[dashboard.StreetRankingView](t, rec.Body.Bytes())
	assert.Equal(t, []domain.StreetCount{{Street: "Main St", Count: 2}}, streets.Entries)
	assert.Equal(t, "injured_pedestrians", streets.Column)
}

func TestEndpoints_BadRequest(t *testing.T) {
	srv, _, _ := newTestServer(t, &mockLoader{ds: sampleDataset()})

	for _, target := range []string{
		"/api/v1/dashboard?rows=abc",
		"/api/v1/dashboard?rows=250",
		"/api/v1/dashboard?hour=24",
		"/api/v1/dashboard?min_injured=20",
		"/api/v1/dashboard?category=trucks",
		"/api/v1/dashboard?raw=maybe",
		"/api/v1/injuries?min_injured=-1",
		"/api/v1/density?hour=-1",
		"/api/v1/histogram?hour=x",
		"/api/v1/streets?n=0",
	} {
		rec := do(srv, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"), target)

		body := decode[map[string]string](t, rec.Body.Bytes())
		assert.NotEmpty(t, body["error"], target)
	}
}

func TestEndpoints_LoadErrorStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrSourceUnavailable, http.StatusServiceUnavailable},
		{domain.ErrSchemaMismatch, http.StatusUnprocessableEntity},
		{fmt.Errorf("wrapped: %w", domain.ErrSchemaMismatch), http.StatusUnprocessableEntity},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			srv, _, _ := newTestServer(t, &mockLoader{err: tc.err})

			rec := do(srv, http.MethodGet, "/api/v1/dashboard")
			assert.Equal(t, tc.status, rec.Code)

			body := decode[map[string]string](t, rec.Body.Bytes())
			assert.Equal(t, tc.err.Error(), body["error"])
		})
	}
}
