package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// DropReason explains why a source row was excluded from the Dataset.
type DropReason int

const (
	Keep DropReason = iota
	DropMissingCoordinates
	DropInvalidTimestamp
)

func (r DropReason) String() string {
	switch r {
	case Keep:
		return "keep"
	case DropMissingCoordinates:
		return "missing_coordinates"
	case DropInvalidTimestamp:
		return "invalid_timestamp"
	default:
		return "unknown"
	}
}

var (
	dateLayouts = []string{
		"01/02/2006",
		"1/2/2006",
		"2006-01-02",
		"2006-01-02T15:04:05.000",
		"2006-01-02T15:04:05",
	}
	timeLayouts = []string{
		"15:04",
		"15:04:05",
	}

	errEmptyTimestamp = errors.New("empty date or time")
)

// ParseRow converts one CSV row into a CollisionRecord. Coordinates are checked
// first: a row without them is dropped regardless of its other fields.
func ParseRow(s *Schema, row []string, index int) (CollisionRecord, DropReason) {
	lat, okLat := parseCoordinate(s.value(row, FieldLatitude))
	lon, okLon := parseCoordinate(s.value(row, FieldLongitude))
	if !okLat || !okLon {
		return CollisionRecord{}, DropMissingCoordinates
	}

	ts, err := ParseTimestamp(s.value(row, FieldCrashDate), s.value(row, FieldCrashTime))
	if err != nil {
		return CollisionRecord{}, DropInvalidTimestamp
	}

	return CollisionRecord{
		Row:                index,
		Timestamp:          ts,
		Latitude:           lat,
		Longitude:          lon,
		InjuredPersons:     parseCount(s.value(row, FieldInjuredPersons)),
		InjuredPedestrians: parseCount(s.value(row, FieldInjuredPedestrians)),
		InjuredCyclists:    parseCount(s.value(row, FieldInjuredCyclists)),
		InjuredMotorists:   parseCount(s.value(row, FieldInjuredMotorists)),
		OnStreetName:       s.value(row, FieldOnStreetName),
		Extra:              s.extra(row),
	}, Keep
}

// ParseTimestamp combines a crash date and a crash time into one wall-clock
// timestamp, e.g. ("07/31/2019", "17:40") -> 2019-07-31 17:40:00.
func ParseTimestamp(date, clockTime string) (time.Time, error) {
	date = strings.TrimSpace(date)
	clockTime = strings.TrimSpace(clockTime)
	if date == "" || clockTime == "" {
		return time.Time{}, errEmptyTimestamp
	}

	d, err := parseFirst(dateLayouts, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse crash date %q: %w", date, err)
	}
	t, err := parseFirst(timeLayouts, clockTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse crash time %q: %w", clockTime, err)
	}

	return time.Date(
		d.Year(), d.Month(), d.Day(),
		t.Hour(), t.Minute(), t.Second(), 0, time.UTC,
	), nil
}

func parseFirst(layouts []string, value string) (time.Time, error) {
	var firstErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// parseCoordinate returns false for empty or non-numeric values.
func parseCoordinate(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseCount reads an injury count. Empty, malformed and negative values count as zero.
func parseCount(s string) int {
	if s == "" {
		return 0
	}
	// Float parsing stays in base 10: "010" is ten, and "0x2" or "1_000" are malformed.
	f, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}
