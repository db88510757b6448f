package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "collision_dashboard"

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard.
type Metrics struct {
	// Dataset loading.
	DatasetLoads        *prometheus.CounterVec // labels: outcome={success,error}
	DatasetLoadDuration prometheus.Histogram
	DatasetCache        *prometheus.CounterVec // labels: result={hit,miss}
	DatasetRecords      *prometheus.GaugeVec   // labels: row_limit
	RowsDropped         *prometheus.CounterVec // labels: reason={missing_coordinates,invalid_timestamp}

	// View derivations.
	ViewRequests *prometheus.CounterVec   // labels: view, outcome={success,error}
	ViewDuration *prometheus.HistogramVec // labels: view

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all dashboard metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		DatasetLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_loads_total",
			Help:      "Dataset loads from the collision source by outcome.",
		}, []string{"outcome"}),
		DatasetLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dataset_load_duration_seconds",
			Help:      "Duration of reading and normalizing one row-limit tier.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		DatasetCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_cache_total",
			Help:      "Dataset cache lookups by result.",
		}, []string{"result"}),
		DatasetRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_records",
			Help:      "Records held by the most recent load of each row-limit tier.",
		}, []string{"row_limit"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Source rows excluded at load time by reason.",
		}, []string{"reason"}),
		ViewRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_requests_total",
			Help:      "View derivations by view and outcome.",
		}, []string{"view", "outcome"}),
		ViewDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "view_duration_seconds",
			Help:      "Time to derive a view from a loaded dataset.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"view"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when map center labelling is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.DatasetLoads,
		m.DatasetLoadDuration,
		m.DatasetCache,
		m.DatasetRecords,
		m.RowsDropped,
		m.ViewRequests,
		m.ViewDuration,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		DatasetLoads:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "dataset_loads_total"}, []string{"outcome"}),
		DatasetLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "dataset_load_duration_seconds"}),
		DatasetCache:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "dataset_cache_total"}, []string{"result"}),
		DatasetRecords:      prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: "dataset_records"}, []string{"row_limit"}),
		RowsDropped:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "rows_dropped_total"}, []string{"reason"}),
		ViewRequests:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "view_requests_total"}, []string{"view", "outcome"}),
		ViewDuration:        prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "view_duration_seconds"}, []string{"view"}),
		GeocodeRequests:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "geocode_requests_total"}, []string{"outcome"}),
		GeocodeCache:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "geocode_cache_total"}, []string{"result"}),
		GeocodeAPIDuration:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "geocode_api_duration_seconds"}),
		GeocodeEnabled:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "geocode_enabled"}),
	}
}
