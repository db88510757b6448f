// Package domain models NYC motor vehicle collision records and the pure
// derivations the dashboard views are built from.
//
// # Data Source
//
// Records come from the NYC Open Data "Motor Vehicle Collisions - Crashes"
// export (https://data.cityofnewyork.us/Public-Safety/Motor-Vehicle-Collisions-Crashes/h9gi-nx95).
// One CSV row per police-reported crash. The export is static for the life of
// the process; the loader only ever reads a bounded prefix of it.
//
// # Column Conventions
//
// Header names vary between exports:
//
//	Socrata CSV:    "CRASH DATE", "NUMBER OF PERSONS INJURED", "ON STREET NAME"
//	Renamed export: "CRASH_DATE", "INJURED_PERSONS", "ON_STREET_NAME"
//
// Headers are matched case-insensitively with spaces and hyphens folded to
// underscores, then mapped through a static alias table ([ResolveSchema]) to
// canonical lowercase field names. The crash date and crash time columns are
// merged into a single column named "date/time" ([DateTimeColumn]).
//
// Date format:
//
//	"MM/DD/YYYY" in the CSV export, "YYYY-MM-DDT00:00:00.000" from the API.
//
// Time format:
//
//	"H:MM" in 24-hour notation, e.g. "0:15", "17:40". Seconds are optional.
//	Timestamps are wall-clock New York time and are kept without conversion.
//
// Missing values:
//
//	Empty cells are common. A row without latitude or longitude is dropped at
//	load time. Empty injury counts read as zero and an empty street name means
//	the street is unknown. Counts exported through pandas may carry a ".0"
//	suffix ("2.0"); they are parsed leniently.
//
// # Derivations
//
// [GeoFiltered], [HourFiltered], [MinuteHistogram], [TopStreets] and
// [Midpoint] never modify the Dataset they are given. Each returns a fresh
// slice or aggregate, so a loaded Dataset can be shared by concurrent requests
// without locking.
package domain
