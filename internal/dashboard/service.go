package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/collision-dashboard/internal/domain"
	"github.com/couchcryptid/collision-dashboard/internal/observability"
)

// Slider bounds and defaults of the dashboard controls.
const (
	MinInjuredLow     = 0
	MinInjuredHigh    = 19
	DefaultMinInjured = 4
	DefaultHour       = 0
	DefaultCategory   = domain.CategoryPedestrians
)

// View names used in metrics.
const (
	viewDashboard  = "dashboard"
	viewInjuryMap  = "injury_map"
	viewDensityMap = "density_map"
	viewHistogram  = "histogram"
	viewTopStreets = "top_streets"
)

// DatasetLoader returns the Dataset for a row limit, typically from a cache.
type DatasetLoader interface {
	Load(ctx context.Context, rowLimit int) (*domain.Dataset, error)
}

// Params are the user-facing dashboard controls.
type Params struct {
	RowLimit   int
	MinInjured int
	Hour       int
	Category   domain.Category
	TopN       int
	ShowRaw    bool
}

// Service derives dashboard views from memoized Datasets.
type Service struct {
	loader          DatasetLoader
	geocoder        domain.Geocoder
	tiers           []int
	defaultRowLimit int
	logger          *slog.Logger
	metrics         *observability.Metrics
	ready           atomic.Bool
}

// New creates a Service. tiers lists the accepted row limits and must contain
// defaultRowLimit. Pass a nil geocoder to leave the map center unlabelled.
func New(loader DatasetLoader, geocoder domain.Geocoder, tiers []int, defaultRowLimit int, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		loader:          loader,
		geocoder:        geocoder,
		tiers:           slices.Clone(tiers),
		defaultRowLimit: defaultRowLimit,
		logger:          logger,
		metrics:         metrics,
	}
}

// Tiers returns the accepted row limits in ascending order.
func (s *Service) Tiers() []int {
	return slices.Clone(s.tiers)
}

// DefaultParams returns the controls as the page first shows them.
func (s *Service) DefaultParams() Params {
	return Params{
		RowLimit:   s.defaultRowLimit,
		MinInjured: DefaultMinInjured,
		Hour:       DefaultHour,
		Category:   DefaultCategory,
		TopN:       domain.DefaultTopN,
	}
}

// CheckReadiness returns nil once any Dataset has loaded.
func (s *Service) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no dataset has been loaded yet")
	}
	return nil
}

// Preload loads the default tier so the first request does not pay for it.
func (s *Service) Preload(ctx context.Context) error {
	_, err := s.dataset(ctx, s.defaultRowLimit)
	return err
}

// ValidateParams rejects controls outside the ranges the dashboard offers.
func (s *Service) ValidateParams(p Params) error {
	if err := s.validateRowLimit(p.RowLimit); err != nil {
		return err
	}
	if err := validateMinInjured(p.MinInjured); err != nil {
		return err
	}
	if err := domain.ValidateHour(p.Hour); err != nil {
		return err
	}
	if !p.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", domain.ErrInvalidParameter, string(p.Category))
	}
	if p.TopN <= 0 {
		return fmt.Errorf("%w: top-n %d must be positive", domain.ErrInvalidParameter, p.TopN)
	}
	return nil
}

func (s *Service) validateRowLimit(rowLimit int) error {
	if !slices.Contains(s.tiers, rowLimit) {
		return fmt.Errorf("%w: row limit %d is not one of %v", domain.ErrInvalidParameter, rowLimit, s.tiers)
	}
	return nil
}

func validateMinInjured(n int) error {
	if n < MinInjuredLow || n > MinInjuredHigh {
		return fmt.Errorf("%w: minimum injured %d outside [%d,%d]", domain.ErrInvalidParameter, n, MinInjuredLow, MinInjuredHigh)
	}
	return nil
}

// Build derives every view of the page from one Dataset.
func (s *Service) Build(ctx context.Context, p Params) (*View, error) {
	if err := s.ValidateParams(p); err != nil {
		return nil, err
	}
	ds, err := s.dataset(ctx, p.RowLimit)
	if err != nil {
		return nil, err
	}

	var view *View
	err = s.observe(viewDashboard, func() error {
		injuryMap, err := buildInjuryMap(ds, p.MinInjured)
		if err != nil {
			return err
		}

		center := s.center(ctx, ds)
		hourly, err := domain.HourFiltered(ds, p.Hour)
		if err != nil {
			return err
		}
		histogram, err := buildHistogram(hourly, p.Hour)
		if err != nil {
			return err
		}
		streets, err := buildStreetRanking(ds, p.Category, p.TopN)
		if err != nil {
			return err
		}

		view = &View{
			RowLimit:   ds.RowLimit,
			Records:    ds.Len(),
			LoadedAt:   ds.LoadedAt,
			InjuryMap:  injuryMap,
			DensityMap: buildDensityMap(hourly, p.Hour, center),
			Histogram:  histogram,
			TopStreets: streets,
		}
		if p.ShowRaw {
			view.Raw = &RawTable{Columns: hourly.Columns, Records: hourly.Records}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// InjuryMap derives only the injury scatter map.
func (s *Service) InjuryMap(ctx context.Context, rowLimit, minInjured int) (*InjuryMapView, error) {
	if err := validateMinInjured(minInjured); err != nil {
		return nil, err
	}
	ds, err := s.dataset(ctx, rowLimit)
	if err != nil {
		return nil, err
	}

	var v InjuryMapView
	err = s.observe(viewInjuryMap, func() error {
		v, err = buildInjuryMap(ds, minInjured)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// DensityMap derives only the hexagon density map for hour.
func (s *Service) DensityMap(ctx context.Context, rowLimit, hour int) (*DensityMapView, error) {
	if err := domain.ValidateHour(hour); err != nil {
		return nil, err
	}
	ds, err := s.dataset(ctx, rowLimit)
	if err != nil {
		return nil, err
	}

	var v DensityMapView
	err = s.observe(viewDensityMap, func() error {
		center := s.center(ctx, ds)
		hourly, err := domain.HourFiltered(ds, hour)
		if err != nil {
			return err
		}
		v = buildDensityMap(hourly, hour, center)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Histogram derives only the per-minute histogram for hour.
func (s *Service) Histogram(ctx context.Context, rowLimit, hour int) (*HistogramView, error) {
	if err := domain.ValidateHour(hour); err != nil {
		return nil, err
	}
	ds, err := s.dataset(ctx, rowLimit)
	if err != nil {
		return nil, err
	}

	var v HistogramView
	err = s.observe(viewHistogram, func() error {
		hourly, err := domain.HourFiltered(ds, hour)
		if err != nil {
			return err
		}
		v, err = buildHistogram(hourly, hour)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// TopStreets derives only the dangerous-streets ranking.
func (s *Service) TopStreets(ctx context.Context, rowLimit int, category domain.Category, n int) (*StreetRankingView, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", domain.ErrInvalidParameter, string(category))
	}
	ds, err := s.dataset(ctx, rowLimit)
	if err != nil {
		return nil, err
	}

	var v StreetRankingView
	err = s.observe(viewTopStreets, func() error {
		v, err = buildStreetRanking(ds, category, n)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// dataset validates the tier and loads it.
func (s *Service) dataset(ctx context.Context, rowLimit int) (*domain.Dataset, error) {
	if err := s.validateRowLimit(rowLimit); err != nil {
		return nil, err
	}
	ds, err := s.loader.Load(ctx, rowLimit)
	if err != nil {
		return nil, err
	}
	s.ready.Store(true)
	return ds, nil
}

// center is the full-dataset midpoint, labelled when a geocoder is set.
func (s *Service) center(ctx context.Context, ds *domain.Dataset) domain.CenterLabel {
	mid, ok := domain.Midpoint(ds)
	if !ok {
		return domain.CenterLabel{}
	}
	return domain.LabelCenter(ctx, mid, s.geocoder, s.logger)
}

func (s *Service) observe(view string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.metrics.ViewDuration.WithLabelValues(view).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.ViewRequests.WithLabelValues(view, "error").Inc()
		return err
	}
	s.metrics.ViewRequests.WithLabelValues(view, "success").Inc()
	return nil
}
