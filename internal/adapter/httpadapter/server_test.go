package httpadapter_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/collision-dashboard/internal/adapter/httpadapter"
	"github.com/couchcryptid/collision-dashboard/internal/dashboard"
	"github.com/couchcryptid/collision-dashboard/internal/dataset"
	"github.com/couchcryptid/collision-dashboard/internal/domain"
	"github.com/couchcryptid/collision-dashboard/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockLoader struct {
	ds  *domain.Dataset
	err error
}

func (m *mockLoader) Load(_ context.Context, rowLimit int) (*domain.Dataset, error) {
	if m.err != nil {
		return nil, m.err
	}
	ds := *m.ds
	ds.RowLimit = rowLimit
	return &ds, nil
}

type mockCache struct {
	entries     []dataset.Entry
	invalidated int
}

func (m *mockCache) Entries() []dataset.Entry { return m.entries }

func (m *mockCache) Invalidate() int {
	m.invalidated++
	n := len(m.entries)
	m.entries = nil
	return n
}

func at(hour, minute int) time.Time {
	return time.Date(2019, 7, 31, hour, minute, 0, 0, time.UTC)
}

func sampleDataset() *domain.Dataset {
	return &domain.Dataset{
		Columns: []string{domain.DateTimeColumn, domain.FieldLatitude, domain.FieldLongitude, domain.FieldOnStreetName},
		Records: []domain.CollisionRecord{
			{Row: 0, Timestamp: at(5, 10), Latitude: 40.70, Longitude: -73.90, InjuredPersons: 5, InjuredPedestrians: 2, OnStreetName: "Main St"},
			{Row: 1, Timestamp: at(5, 10), Latitude: 40.71, Longitude: -73.91, InjuredPersons: 1, InjuredMotorists: 1, OnStreetName: "Main St"},
			{Row: 2, Timestamp: at(6, 0), Latitude: 40.72, Longitude: -73.92, InjuredPersons: 4, InjuredPedestrians: 1, OnStreetName: "Oak Ave"},
		},
	}
}

func newTestServer(t *testing.T, loader dashboard.DatasetLoader) (*httpadapter.Server, *dashboard.Service, *mockCache) {
	t.Helper()
	svc := dashboard.New(loader, nil, []int{100, 500}, 100, slog.Default(), observability.NewMetricsForTesting())
	cache := &mockCache{}
	return httpadapter.NewServer(":0", svc, cache, slog.Default()), svc, cache
}

func do(srv *httpadapter.Server, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

// --- tests ---

func TestHealthzReturns200(t *testing.T) {
	srv, _, _ := newTestServer(t, &mockLoader{ds: sampleDataset()})

	rec := do(srv, http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503BeforeFirstLoad(t *testing.T) {
	srv, _, _ := newTestServer(t, &mockLoader{ds: sampleDataset()})

	rec := do(srv, http.MethodGet, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReadyzReturns200AfterPreload(t *testing.T) {
	srv, svc, _ := newTestServer(t, &mockLoader{ds: sampleDataset()})
	require.NoError(t, svc.Preload(context.Background()))

	rec := do(srv, http.MethodGet, "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, &mockLoader{ds: sampleDataset()})

	rec := do(srv, http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestTiersEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, &mockLoader{ds: sampleDataset()})

	rec := do(srv, http.MethodGet, "/api/v1/tiers")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Tiers           []int    `json:"tiers"`
		DefaultRowLimit int      `json:"default_row_limit"`
		MinInjured      [2]int   `json:"min_injured_range"`
		DefaultInjured  int      `json:"default_min_injured"`
		Categories      []string `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []int{100, 500}, body.Tiers)
	assert.Equal(t, 100, body.DefaultRowLimit)
	assert.Equal(t, [2]int{0, 19}, body.MinInjured)
	assert.Equal(t, 4, body.DefaultInjured)
	assert.Equal(t, []string{"pedestrians", "cyclists", "motorists"}, body.Categories)
}

func TestCacheEndpoints(t *testing.T) {
	srv, _, cache := newTestServer(t, &mockLoader{ds: sampleDataset()})
	cache.entries = []dataset.Entry{
		{RowLimit: 100, Fingerprint: "abc", Records: 3},
		{RowLimit: 500, Fingerprint: "abc", Records: 3},
	}

	rec := do(srv, http.MethodGet, "/api/v1/cache")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Entries []dataset.Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed.Entries, 2)
	assert.Equal(t, 500, listed.Entries[1].RowLimit)

	rec = do(srv, http.MethodDelete, "/api/v1/cache")
	require.Equal(t, http.StatusOK, rec.Code)
	var cleared map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cleared))
	assert.Equal(t, 2, cleared["invalidated"])
	assert.Equal(t, 1, cache.invalidated)
}

func TestCacheEndpoint_MethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer(t, &mockLoader{ds: sampleDataset()})

	rec := do(srv, http.MethodPost, "/api/v1/cache")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
