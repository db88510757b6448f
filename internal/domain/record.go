package domain

import (
	"fmt"
	"strings"
	"time"
)

// Point is a WGS-84 latitude/longitude pair.
type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// CollisionRecord is one crash after normalization.
type CollisionRecord struct {
	Row                int               `json:"row"` // zero-based data row in the source file
	Timestamp          time.Time         `json:"date/time"`
	Latitude           float64           `json:"latitude"`
	Longitude          float64           `json:"longitude"`
	InjuredPersons     int               `json:"injured_persons"`
	InjuredPedestrians int               `json:"injured_pedestrians"`
	InjuredCyclists    int               `json:"injured_cyclists"`
	InjuredMotorists   int               `json:"injured_motorists"`
	OnStreetName       string            `json:"on_street_name,omitempty"`
	Extra              map[string]string `json:"extra,omitempty"` // passthrough columns, lowercase keys
}

// Point returns the record's coordinates.
func (r CollisionRecord) Point() Point {
	return Point{Lat: r.Latitude, Lon: r.Longitude}
}

// DropCounts tallies source rows excluded while loading.
type DropCounts struct {
	MissingCoordinates int `json:"missing_coordinates"`
	InvalidTimestamp   int `json:"invalid_timestamp"`
}

// Total returns the number of dropped rows.
func (d DropCounts) Total() int {
	return d.MissingCoordinates + d.InvalidTimestamp
}

// Dataset is an ordered, read-only sequence of collision records. Every record
// has both coordinates; that is enforced when the Dataset is built.
type Dataset struct {
	Records     []CollisionRecord `json:"records"`
	Columns     []string          `json:"columns"`
	RowLimit    int               `json:"row_limit"`
	RowsRead    int               `json:"rows_read"`
	Dropped     DropCounts        `json:"dropped"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	LoadedAt    time.Time         `json:"loaded_at"`
}

// NewDataset stamps a freshly loaded set of records with the current load time.
func NewDataset(records []CollisionRecord, columns []string, rowLimit, rowsRead int, dropped DropCounts, fingerprint string) *Dataset {
	return &Dataset{
		Records:     records,
		Columns:     columns,
		RowLimit:    rowLimit,
		RowsRead:    rowsRead,
		Dropped:     dropped,
		Fingerprint: fingerprint,
		LoadedAt:    clock.Now(),
	}
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// derive returns a new Dataset holding records with d's provenance.
func (d *Dataset) derive(records []CollisionRecord) *Dataset {
	return &Dataset{
		Records:     records,
		Columns:     append([]string(nil), d.Columns...),
		RowLimit:    d.RowLimit,
		RowsRead:    d.RowsRead,
		Dropped:     d.Dropped,
		Fingerprint: d.Fingerprint,
		LoadedAt:    d.LoadedAt,
	}
}

// Category is the affected-person type used to rank dangerous streets.
type Category string

const (
	CategoryPedestrians Category = "pedestrians"
	CategoryCyclists    Category = "cyclists"
	CategoryMotorists   Category = "motorists"
)

// Categories lists the recognized categories in display order.
func Categories() []Category {
	return []Category{CategoryPedestrians, CategoryCyclists, CategoryMotorists}
}

// ParseCategory accepts a category name in any case ("Pedestrians", "cyclists").
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", invalidParameter("unknown category %q", s)
	}
	return c, nil
}

// Valid reports whether c is one of the recognized categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryPedestrians, CategoryCyclists, CategoryMotorists:
		return true
	default:
		return false
	}
}

// Column returns the canonical count column for the category.
func (c Category) Column() string {
	switch c {
	case CategoryPedestrians:
		return FieldInjuredPedestrians
	case CategoryCyclists:
		return FieldInjuredCyclists
	case CategoryMotorists:
		return FieldInjuredMotorists
	default:
		return ""
	}
}

// Label returns the title-cased name shown in the category selector.
func (c Category) Label() string {
	if c == "" {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

// count returns the record's injury count for the category.
func (c Category) count(r CollisionRecord) int {
	switch c {
	case CategoryPedestrians:
		return r.InjuredPedestrians
	case CategoryCyclists:
		return r.InjuredCyclists
	case CategoryMotorists:
		return r.InjuredMotorists
	default:
		panic(fmt.Sprintf("domain: count on invalid category %q", string(c)))
	}
}
