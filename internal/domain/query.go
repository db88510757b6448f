package domain

import (
	"sort"
)

const (
	MinHour = 0
	MaxHour = 23

	// MinutesPerHour is the number of histogram buckets.
	MinutesPerHour = 60

	// DefaultTopN is the number of streets ranked when the caller does not say.
	DefaultTopN = 5
)

// MinuteBucket is one bar of the per-minute histogram.
type MinuteBucket struct {
	Minute  int `json:"minute"`
	Crashes int `json:"crashes"`
}

// StreetCount is one row of the dangerous-streets ranking. Each entry is a
// single crash, so a street may appear more than once.
type StreetCount struct {
	Street string `json:"on_street_name"`
	Count  int    `json:"count"`
}

// ValidateHour rejects hours outside [MinHour, MaxHour].
func ValidateHour(hour int) error {
	if hour < MinHour || hour > MaxHour {
		return invalidParameter("hour %d outside [%d,%d]", hour, MinHour, MaxHour)
	}
	return nil
}

// GeoFiltered returns the coordinates of every crash with at least minInjured
// persons injured, in source order.
func GeoFiltered(ds *Dataset, minInjured int) ([]Point, error) {
	if minInjured < 0 {
		return nil, invalidParameter("minimum injured %d is negative", minInjured)
	}

	points := make([]Point, 0, ds.Len())
	if ds == nil {
		return points, nil
	}
	for _, r := range ds.Records {
		if r.InjuredPersons >= minInjured {
			points = append(points, r.Point())
		}
	}
	return points, nil
}

// HourFiltered returns a new Dataset holding the crashes whose timestamp falls
// in the given hour of day.
func HourFiltered(ds *Dataset, hour int) (*Dataset, error) {
	if err := ValidateHour(hour); err != nil {
		return nil, err
	}
	if ds == nil {
		return &Dataset{}, nil
	}

	records := make([]CollisionRecord, 0, len(ds.Records)/24+1)
	for _, r := range ds.Records {
		if r.Timestamp.Hour() == hour {
			records = append(records, r)
		}
	}
	return ds.derive(records), nil
}

// InHistogramWindow reports whether a crash counts toward the histogram for
// hour. The window is hour through hour+1 inclusive; for hour 23 only hour 23 matches.
func InHistogramWindow(r CollisionRecord, hour int) bool {
	h := r.Timestamp.Hour()
	return h >= hour && h <= hour+1
}

// MinuteHistogram counts crashes per minute of the hour. It always returns
// MinutesPerHour buckets in minute order, zero-filled.
func MinuteHistogram(records []CollisionRecord, hour int) ([]MinuteBucket, error) {
	if err := ValidateHour(hour); err != nil {
		return nil, err
	}

	buckets := make([]MinuteBucket, MinutesPerHour)
	for m := range buckets {
		buckets[m].Minute = m
	}
	for _, r := range records {
		if InHistogramWindow(r, hour) {
			buckets[r.Timestamp.Minute()].Crashes++
		}
	}
	return buckets, nil
}

// TopStreets ranks single crashes by the category's injury count, highest
// first, keeping at most n. Crashes with no injuries in the category or no
// street name are skipped. Equal counts keep source order.
func TopStreets(ds *Dataset, category Category, n int) ([]StreetCount, error) {
	if !category.Valid() {
		return nil, invalidParameter("unknown category %q", string(category))
	}
	if n <= 0 {
		return nil, invalidParameter("top-n %d must be positive", n)
	}

	var ranked []StreetCount
	if ds != nil {
		for _, r := range ds.Records {
			c := category.count(r)
			if c < 1 || r.OnStreetName == "" {
				continue
			}
			ranked = append(ranked, StreetCount{Street: r.OnStreetName, Count: c})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	if ranked == nil {
		ranked = []StreetCount{}
	}
	return ranked, nil
}

// Midpoint is the unweighted mean latitude and longitude of the Dataset.
// It returns false for an empty Dataset.
func Midpoint(ds *Dataset) (Point, bool) {
	if ds.Len() == 0 {
		return Point{}, false
	}

	var sumLat, sumLon float64
	for _, r := range ds.Records {
		sumLat += r.Latitude
		sumLon += r.Longitude
	}
	n := float64(len(ds.Records))
	return Point{Lat: sumLat / n, Lon: sumLon / n}, true
}
