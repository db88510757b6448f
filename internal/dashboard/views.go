package dashboard

import (
	"fmt"
	"time"

	"github.com/couchcryptid/collision-dashboard/internal/domain"
)

// Density map presentation defaults handed to the hexagon layer renderer.
const (
	MapStyle             = "mapbox://styles/mapbox/light-v9"
	defaultZoom          = 11
	defaultPitch         = 50
	hexagonRadius        = 100
	hexagonElevScale     = 4
	hexagonElevRangeHigh = 1000
)

// InjuryMapView is the scatter map of crashes with at least MinInjured injuries.
type InjuryMapView struct {
	MinInjured int            `json:"min_injured"`
	Points     []domain.Point `json:"points"`
}

// HourWindow labels the hour a view covers, e.g. "5:00 and 6:00". The end
// hour wraps to 0 after 23.
type HourWindow struct {
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"`
	Label     string `json:"label"`
}

func hourWindow(hour int) HourWindow {
	end := (hour + 1) % 24
	return HourWindow{
		StartHour: hour,
		EndHour:   end,
		Label:     fmt.Sprintf("%d:00 and %d:00", hour, end),
	}
}

// DensityPoint is one crash as the hexagon layer consumes it.
type DensityPoint struct {
	Timestamp time.Time `json:"date/time"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

// ViewState is the initial camera of the density map.
type ViewState struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      int     `json:"zoom"`
	Pitch     int     `json:"pitch"`
}

// HexagonLayer carries the layer settings of the 3D density map.
type HexagonLayer struct {
	Type           string   `json:"type"`
	GetPosition    []string `json:"get_position"`
	Radius         int      `json:"radius"`
	Extruded       bool     `json:"extruded"`
	Pickable       bool     `json:"pickable"`
	ElevationScale int      `json:"elevation_scale"`
	ElevationRange [2]int   `json:"elevation_range"`
}

func defaultHexagonLayer() HexagonLayer {
	return HexagonLayer{
		Type:           "HexagonLayer",
		GetPosition:    []string{domain.FieldLongitude, domain.FieldLatitude},
		Radius:         hexagonRadius,
		Extruded:       true,
		Pickable:       true,
		ElevationScale: hexagonElevScale,
		ElevationRange: [2]int{0, hexagonElevRangeHigh},
	}
}

// DensityMapView is the 3D hexagon map of crashes within one hour of day.
// Center is the midpoint of the whole loaded dataset, not just this hour.
type DensityMapView struct {
	Hour      int                `json:"hour"`
	Window    HourWindow         `json:"window"`
	MapStyle  string             `json:"map_style"`
	ViewState ViewState          `json:"initial_view_state"`
	Center    domain.CenterLabel `json:"center"`
	Layer     HexagonLayer       `json:"layer"`
	Points    []DensityPoint     `json:"points"`
}

// HistogramView is the per-minute breakdown of crashes in one hour.
type HistogramView struct {
	Hour    int                   `json:"hour"`
	Window  HourWindow            `json:"window"`
	Buckets []domain.MinuteBucket `json:"buckets"`
}

// StreetRankingView is the dangerous-streets table for one category.
type StreetRankingView struct {
	Category domain.Category      `json:"category"`
	Label    string               `json:"label"`
	Column   string               `json:"column"`
	N        int                  `json:"n"`
	Entries  []domain.StreetCount `json:"entries"`
}

// RawTable is the hour-filtered current view shown behind the raw-data toggle.
type RawTable struct {
	Columns []string                 `json:"columns"`
	Records []domain.CollisionRecord `json:"records"`
}

// View is everything the dashboard page renders for one set of parameters.
type View struct {
	RowLimit   int               `json:"row_limit"`
	Records    int               `json:"records"`
	LoadedAt   time.Time         `json:"loaded_at"`
	InjuryMap  InjuryMapView     `json:"injury_map"`
	DensityMap DensityMapView    `json:"density_map"`
	Histogram  HistogramView     `json:"histogram"`
	TopStreets StreetRankingView `json:"top_streets"`
	Raw        *RawTable         `json:"raw,omitempty"`
}

func buildInjuryMap(ds *domain.Dataset, minInjured int) (InjuryMapView, error) {
	points, err := domain.GeoFiltered(ds, minInjured)
	if err != nil {
		return InjuryMapView{}, err
	}
	return InjuryMapView{MinInjured: minInjured, Points: points}, nil
}

// buildDensityMap expects hourly to be ds filtered to hour.
func buildDensityMap(hourly *domain.Dataset, hour int, center domain.CenterLabel) DensityMapView {
	points := make([]DensityPoint, 0, hourly.Len())
	for _, r := range hourly.Records {
		points = append(points, DensityPoint{Timestamp: r.Timestamp, Latitude: r.Latitude, Longitude: r.Longitude})
	}
	return DensityMapView{
		Hour:     hour,
		Window:   hourWindow(hour),
		MapStyle: MapStyle,
		ViewState: ViewState{
			Latitude:  center.Lat,
			Longitude: center.Lon,
			Zoom:      defaultZoom,
			Pitch:     defaultPitch,
		},
		Center: center,
		Layer:  defaultHexagonLayer(),
		Points: points,
	}
}

func buildHistogram(hourly *domain.Dataset, hour int) (HistogramView, error) {
	buckets, err := domain.MinuteHistogram(hourly.Records, hour)
	if err != nil {
		return HistogramView{}, err
	}
	return HistogramView{Hour: hour, Window: hourWindow(hour), Buckets: buckets}, nil
}

func buildStreetRanking(ds *domain.Dataset, category domain.Category, n int) (StreetRankingView, error) {
	entries, err := domain.TopStreets(ds, category, n)
	if err != nil {
		return StreetRankingView{}, err
	}
	return StreetRankingView{
		Category: category,
		Label:    category.Label(),
		Column:   category.Column(),
		N:        n,
		Entries:  entries,
	}, nil
}
