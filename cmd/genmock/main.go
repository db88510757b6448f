// Command genmock writes a deterministic synthetic collisions CSV in the NYC
// Open Data export layout, then loads it back through the dataset package and
// prints the stats the fixtures and tests are checked against.
//
// Usage:
//
//	go run ./cmd/genmock -rows 50000 -seed 7 -out data/mock/collisions.csv
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/couchcryptid/collision-dashboard/internal/dataset"
	"github.com/couchcryptid/collision-dashboard/internal/domain"
	"github.com/jonboulle/clockwork"
)

var header = []string{
	"CRASH DATE", "CRASH TIME", "BOROUGH", "ZIP CODE", "LATITUDE", "LONGITUDE",
	"ON STREET NAME", "NUMBER OF PERSONS INJURED", "NUMBER OF PEDESTRIANS INJURED",
	"NUMBER OF CYCLIST INJURED", "NUMBER OF MOTORIST INJURED", "COLLISION_ID",
}

type borough struct {
	name    string
	zip     int
	lat     float64
	lon     float64
	spread  float64
	streets []string
}

var boroughs = []borough{
	{"MANHATTAN", 10001, 40.7831, -73.9712, 0.03, []string{"BROADWAY", "2 AVENUE", "3 AVENUE", "FDR DRIVE", "WEST 42 STREET"}},
	{"BROOKLYN", 11201, 40.6782, -73.9442, 0.05, []string{"FLATBUSH AVENUE", "ATLANTIC AVENUE", "EASTERN PARKWAY", "OCEAN PARKWAY"}},
	{"QUEENS", 11368, 40.7282, -73.7949, 0.06, []string{"QUEENS BOULEVARD", "NORTHERN BOULEVARD", "ROOSEVELT AVENUE", "HILLSIDE AVENUE"}},
	{"BRONX", 10451, 40.8448, -73.8648, 0.04, []string{"GRAND CONCOURSE", "FORDHAM ROAD", "BRUCKNER BOULEVARD"}},
	{"STATEN ISLAND", 10301, 40.5795, -74.1502, 0.05, []string{"HYLAN BOULEVARD", "RICHMOND AVENUE", "VICTORY BOULEVARD"}},
}

// Relative crash volume per hour of day, peaking at the evening commute.
var hourWeights = [24]int{3, 2, 2, 1, 2, 3, 5, 7, 9, 8, 7, 7, 8, 8, 9, 10, 11, 11, 10, 8, 6, 5, 4, 3}

type options struct {
	rows        int
	seed        uint64
	out         string
	start       time.Time
	days        int
	missingRate float64
	badTimeRate float64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	rows := flag.Int("rows", 10000, "number of data rows to generate")
	seed := flag.Uint64("seed", 1, "random seed; equal seeds produce identical files")
	out := flag.String("out", "", "output path for the CSV fixture")
	start := flag.String("start", "2019-07-01", "first crash date (YYYY-MM-DD)")
	days := flag.Int("days", 31, "number of days crashes are spread over")
	missing := flag.Float64("missing-rate", 0.02, "fraction of rows with blank coordinates")
	badTime := flag.Float64("bad-time-rate", 0.001, "fraction of rows with an unparseable time")
	flag.Parse()

	if *out == "" || *rows <= 0 || *days <= 0 {
		flag.Usage()
		return fmt.Errorf("missing required flags: -out, positive -rows and -days")
	}
	startDate, err := time.Parse("2006-01-02", *start)
	if err != nil {
		return fmt.Errorf("parse -start: %w", err)
	}

	opts := options{
		rows:        *rows,
		seed:        *seed,
		out:         *out,
		start:       startDate,
		days:        *days,
		missingRate: *missing,
		badTimeRate: *badTime,
	}
	if err := writeCSV(opts); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote %d rows: %s", opts.rows, opts.out)

	return printStats(opts.out, opts.rows)
}

func writeCSV(opts options) error {
	if err := os.MkdirAll(filepath.Dir(opts.out), 0o755); err != nil {
		return err
	}
	f, err := os.Create(opts.out)
	if err != nil {
		return err
	}
	defer f.Close()

	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for i := 0; i < opts.rows; i++ {
		if err := w.Write(synthesize(rng, opts, i)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func synthesize(rng *rand.Rand, opts options, i int) []string {
	b := boroughs[rng.IntN(len(boroughs))]
	day := opts.start.AddDate(0, 0, rng.IntN(opts.days))
	hour := weightedHour(rng)
	minute := rng.IntN(60)

	lat := strconv.FormatFloat(b.lat+rng.NormFloat64()*b.spread, 'f', 6, 64)
	lon := strconv.FormatFloat(b.lon+rng.NormFloat64()*b.spread, 'f', 6, 64)
	if rng.Float64() < opts.missingRate {
		lat, lon = "", ""
	}
	clock := fmt.Sprintf("%d:%02d", hour, minute)
	if rng.Float64() < opts.badTimeRate {
		clock = "unknown"
	}

	var street string
	if rng.IntN(5) > 0 {
		street = b.streets[rng.IntN(len(b.streets))]
	}

	pedestrians := injuries(rng, 0.08)
	cyclists := injuries(rng, 0.04)
	motorists := injuries(rng, 0.25)
	persons := pedestrians + cyclists + motorists

	return []string{
		day.Format("01/02/2006"),
		clock,
		b.name,
		strconv.Itoa(b.zip + rng.IntN(40)),
		lat,
		lon,
		street,
		strconv.Itoa(persons),
		strconv.Itoa(pedestrians),
		strconv.Itoa(cyclists),
		strconv.Itoa(motorists),
		strconv.Itoa(4_000_000 + i),
	}
}

func weightedHour(rng *rand.Rand) int {
	total := 0
	for _, w := range hourWeights {
		total += w
	}
	n := rng.IntN(total)
	for h, w := range hourWeights {
		if n < w {
			return h
		}
		n -= w
	}
	return domain.MaxHour
}

// injuries returns 0 most of the time and occasionally a small count.
func injuries(rng *rand.Rand, p float64) int {
	n := 0
	for rng.Float64() < p && n < 8 {
		n++
		p /= 2
	}
	return n
}

func printStats(path string, rows int) error {
	// Fixed load time keeps the printed provenance stable across runs.
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2019, time.August, 1, 0, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ds, err := dataset.ReadCSV(f, rows, "")
	if err != nil {
		return fmt.Errorf("reload fixture: %w", err)
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Rows read: %d\n", ds.RowsRead)
	fmt.Printf("Kept: %d\n", ds.Len())
	fmt.Printf("Dropped: missing_coordinates=%d, invalid_timestamp=%d\n",
		ds.Dropped.MissingCoordinates, ds.Dropped.InvalidTimestamp)

	fmt.Print("By hour:")
	for hour := domain.MinHour; hour <= domain.MaxHour; hour++ {
		sub, err := domain.HourFiltered(ds, hour)
		if err != nil {
			return err
		}
		fmt.Printf(" %d=%d", hour, sub.Len())
	}
	fmt.Println()

	for _, threshold := range []int{1, 4, 10} {
		points, err := domain.GeoFiltered(ds, threshold)
		if err != nil {
			return err
		}
		fmt.Printf("Injured >= %d: %d\n", threshold, len(points))
	}

	if mid, ok := domain.Midpoint(ds); ok {
		fmt.Printf("Midpoint: %.6f, %.6f\n", mid.Lat, mid.Lon)
	}

	printStreetTotals(ds)
	return nil
}

type streetTotal struct {
	street string
	total  int
}

func printStreetTotals(ds *domain.Dataset) {
	for _, c := range domain.Categories() {
		totals := map[string]int{}
		for _, r := range ds.Records {
			if r.OnStreetName == "" {
				continue
			}
			switch c {
			case domain.CategoryPedestrians:
				totals[r.OnStreetName] += r.InjuredPedestrians
			case domain.CategoryCyclists:
				totals[r.OnStreetName] += r.InjuredCyclists
			case domain.CategoryMotorists:
				totals[r.OnStreetName] += r.InjuredMotorists
			}
		}
		st := make([]streetTotal, 0, len(totals))
		for s, n := range totals {
			st = append(st, streetTotal{s, n})
		}
		sort.Slice(st, func(i, j int) bool {
			if st[i].total != st[j].total {
				return st[i].total > st[j].total
			}
			return st[i].street < st[j].street
		})
		fmt.Printf("%s by street:", c.Label())
		for _, s := range st[:min(3, len(st))] {
			fmt.Printf(" %s=%d", s.street, s.total)
		}
		fmt.Println()
	}
}
