package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/collision-dashboard/internal/dashboard"
	"github.com/couchcryptid/collision-dashboard/internal/dataset"
	"github.com/couchcryptid/collision-dashboard/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dashboard derives the views served under /api/v1.
type Dashboard interface {
	sharedobs.ReadinessChecker
	Tiers() []int
	DefaultParams() dashboard.Params
	Build(ctx context.Context, p dashboard.Params) (*dashboard.View, error)
	InjuryMap(ctx context.Context, rowLimit, minInjured int) (*dashboard.InjuryMapView, error)
	DensityMap(ctx context.Context, rowLimit, hour int) (*dashboard.DensityMapView, error)
	Histogram(ctx context.Context, rowLimit, hour int) (*dashboard.HistogramView, error)
	TopStreets(ctx context.Context, rowLimit int, category domain.Category, n int) (*dashboard.StreetRankingView, error)
}

// DatasetCache is the view of the dataset cache exposed for inspection.
type DatasetCache interface {
	Entries() []dataset.Entry
	Invalidate() int
}

// Server exposes the dashboard API alongside health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	dash       Dashboard
	cache      DatasetCache
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and the
// /api/v1 dashboard routes. The dashboard doubles as the readiness check.
func NewServer(addr string, dash Dashboard, cache DatasetCache, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			// First loads of the largest tier can take a while.
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		dash:   dash,
		cache:  cache,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(dash))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/tiers", s.handleTiers)
	mux.HandleFunc("GET /api/v1/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/v1/injuries", s.handleInjuries)
	mux.HandleFunc("GET /api/v1/density", s.handleDensity)
	mux.HandleFunc("GET /api/v1/histogram", s.handleHistogram)
	mux.HandleFunc("GET /api/v1/streets", s.handleStreets)
	mux.HandleFunc("GET /api/v1/cache", s.handleCacheEntries)
	mux.HandleFunc("DELETE /api/v1/cache", s.handleCacheInvalidate)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
