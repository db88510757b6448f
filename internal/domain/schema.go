package domain

import (
	"fmt"
	"strings"
)

// DateTimeColumn is the canonical name of the merged crash date and time column.
const DateTimeColumn = "date/time"

// Canonical field names.
const (
	FieldCrashDate          = "crash_date"
	FieldCrashTime          = "crash_time"
	FieldLatitude           = "latitude"
	FieldLongitude          = "longitude"
	FieldInjuredPersons     = "injured_persons"
	FieldInjuredPedestrians = "injured_pedestrians"
	FieldInjuredCyclists    = "injured_cyclists"
	FieldInjuredMotorists   = "injured_motorists"
	FieldOnStreetName       = "on_street_name"
)

// mergedDateTimeKey is the name the merged column gets when the raw date and
// time column names are joined and lowercased.
const mergedDateTimeKey = FieldCrashDate + "_" + FieldCrashTime

type fieldSpec struct {
	name     string
	aliases  []string // header keys, see headerKey
	required bool
}

// collisionSchema maps raw header keys to canonical fields. Order matters only
// for error messages.
var collisionSchema = []fieldSpec{
	{name: FieldCrashDate, aliases: []string{"crash_date", "date"}, required: true},
	{name: FieldCrashTime, aliases: []string{"crash_time", "time"}, required: true},
	{name: FieldLatitude, aliases: []string{"latitude", "lat"}, required: true},
	{name: FieldLongitude, aliases: []string{"longitude", "lon", "lng"}, required: true},
	{name: FieldInjuredPersons, aliases: []string{"injured_persons", "number_of_persons_injured"}},
	{name: FieldInjuredPedestrians, aliases: []string{"injured_pedestrians", "number_of_pedestrians_injured"}},
	{name: FieldInjuredCyclists, aliases: []string{"injured_cyclists", "number_of_cyclist_injured", "number_of_cyclists_injured"}},
	{name: FieldInjuredMotorists, aliases: []string{"injured_motorists", "number_of_motorist_injured", "number_of_motorists_injured"}},
	{name: FieldOnStreetName, aliases: []string{"on_street_name"}},
}

// aliasIndex is collisionSchema keyed by alias.
var aliasIndex = func() map[string]string {
	m := make(map[string]string)
	for _, f := range collisionSchema {
		for _, a := range f.aliases {
			m[a] = f.name
		}
	}
	return m
}()

// headerKey folds a raw header for alias lookup: "CRASH DATE" -> "crash_date".
func headerKey(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return '_'
		}
		return r
	}, name)
}

// NormalizeColumn lowercases a column name and renames the merged crash
// date/time column to DateTimeColumn. Applying it twice gives the same result.
func NormalizeColumn(name string) string {
	name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
	if headerKey(name) == mergedDateTimeKey {
		return DateTimeColumn
	}
	return name
}

type passthroughColumn struct {
	index int
	name  string
}

// Schema is a source header resolved against the collision field table.
type Schema struct {
	fields      map[string]int // canonical field -> column index
	passthrough []passthroughColumn
	columns     []string
}

// ResolveSchema matches a CSV header against the field table. A missing
// required field fails with ErrSchemaMismatch.
func ResolveSchema(header []string) (*Schema, error) {
	s := &Schema{
		fields: make(map[string]int, len(collisionSchema)),
	}

	for i, h := range header {
		if name, ok := aliasIndex[headerKey(h)]; ok {
			if _, dup := s.fields[name]; !dup {
				s.fields[name] = i
				continue
			}
		}
		s.passthrough = append(s.passthrough, passthroughColumn{index: i, name: NormalizeColumn(h)})
	}

	var missing []string
	for _, f := range collisionSchema {
		if _, ok := s.fields[f.name]; f.required && !ok {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required column(s) %s", ErrSchemaMismatch, strings.Join(missing, ", "))
	}

	s.columns = s.buildColumns(header)
	return s, nil
}

// buildColumns lists normalized column names in source order. The date and
// time columns collapse into DateTimeColumn at the position of whichever comes first.
func (s *Schema) buildColumns(header []string) []string {
	canonical := make(map[int]string, len(s.fields))
	for name, idx := range s.fields {
		canonical[idx] = name
	}

	cols := make([]string, 0, len(header))
	dateTimeDone := false
	for i, h := range header {
		name, ok := canonical[i]
		if !ok {
			cols = append(cols, NormalizeColumn(h))
			continue
		}
		if name == FieldCrashDate || name == FieldCrashTime {
			if !dateTimeDone {
				cols = append(cols, DateTimeColumn)
				dateTimeDone = true
			}
			continue
		}
		cols = append(cols, name)
	}
	return cols
}

// Columns returns the normalized column names.
func (s *Schema) Columns() []string {
	return append([]string(nil), s.columns...)
}

// Has reports whether the source carries the canonical field.
func (s *Schema) Has(field string) bool {
	_, ok := s.fields[field]
	return ok
}

// value returns the trimmed cell for a canonical field, or "" if the column is
// absent or the row is short.
func (s *Schema) value(row []string, field string) string {
	idx, ok := s.fields[field]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (s *Schema) extra(row []string) map[string]string {
	if len(s.passthrough) == 0 {
		return nil
	}
	m := make(map[string]string, len(s.passthrough))
	for _, p := range s.passthrough {
		if p.index < len(row) {
			m[p.name] = row[p.index]
		} else {
			m[p.name] = ""
		}
	}
	return m
}
