// Command report loads a collisions CSV the same way the dashboard does and
// prints every view for one set of controls as text tables, or as the JSON
// the API would return.
//
// Usage:
//
//	go run ./cmd/report \
//	  --csv Motor_Vehicle_Collisions_-_Crashes.csv \
//	  --rows 100000 --hour 17 --min-injured 4 --category cyclists
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/collision-dashboard/internal/config"
	"github.com/couchcryptid/collision-dashboard/internal/dashboard"
	"github.com/couchcryptid/collision-dashboard/internal/dataset"
	"github.com/couchcryptid/collision-dashboard/internal/domain"
	"github.com/couchcryptid/collision-dashboard/internal/observability"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

const maxRawRows = 20

// heading prints section titles; color turns itself off when stdout is not a terminal.
var heading = color.New(color.Bold, color.FgCyan)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		path     string
		p        dashboard.Params
		category string
		output   string
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:   "report --csv FILE",
		Short: "Print every dashboard view for one set of controls.",
		Long: `Load a collisions CSV through the same loader the dashboard uses and print
the injury map, density map, per-minute histogram, and dangerous-streets
ranking for the given controls.

Examples:
  # Evening rush hour, cyclists
  report --csv crashes.csv --rows 100000 --hour 17 --category cyclists

  # The API payload instead of tables
  report --csv crashes.csv --output json`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := domain.ParseCategory(category)
			if err != nil {
				return err
			}
			p.Category = c
			return run(cmd.OutOrStdout(), path, p, output, verbose)
		},
	}

	f := cmd.Flags()
	f.StringVar(&path, "csv", "", "path to the collisions CSV")
	f.IntVar(&p.RowLimit, "rows", 10000, "row limit to load")
	f.IntVar(&p.MinInjured, "min-injured", dashboard.DefaultMinInjured, "minimum persons injured for the injury map")
	f.IntVar(&p.Hour, "hour", dashboard.DefaultHour, "hour of day for the density map and histogram")
	f.StringVar(&category, "category", string(dashboard.DefaultCategory), "pedestrians, cyclists or motorists")
	f.IntVarP(&p.TopN, "top", "n", domain.DefaultTopN, "number of streets to rank")
	f.BoolVar(&p.ShowRaw, "raw", false, "print the hour-filtered records")
	f.StringVarP(&output, "output", "o", "table", "table or json")
	f.BoolVarP(&verbose, "verbose", "v", false, "log loader activity to stderr")
	_ = cmd.MarkFlagRequired("csv")

	return cmd
}

func run(w io.Writer, path string, p dashboard.Params, output string, verbose bool) error {
	if p.RowLimit <= 0 || p.RowLimit > config.MaxRowLimit {
		return fmt.Errorf("%w: rows must be in [1,%d]", domain.ErrInvalidParameter, config.MaxRowLimit)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	metrics := observability.NewMetricsForTesting()

	loader := dataset.NewCSVLoader(dataset.NewFileSource(path), logger, metrics)
	svc := dashboard.New(loader, nil, []int{p.RowLimit}, p.RowLimit, logger, metrics)

	view, err := svc.Build(context.Background(), p)
	if err != nil {
		return err
	}

	switch strings.ToLower(output) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	case "table":
		return printView(w, view)
	default:
		return fmt.Errorf("unknown output %q: want table or json", output)
	}
}

func printView(w io.Writer, v *dashboard.View) error {
	fmt.Fprintf(w, "Loaded %d collisions from the first %d rows\n\n", v.Records, v.RowLimit)

	heading.Fprintf(w, "Where are the most people injured in NYC? (%d or more injured)\n", v.InjuryMap.MinInjured)
	fmt.Fprintf(w, "  %d crashes on the map\n\n", len(v.InjuryMap.Points))

	d := v.DensityMap
	heading.Fprintf(w, "Vehicle collisions between %s\n", d.Window.Label)
	fmt.Fprintf(w, "  %d crashes, centered on %.5f, %.5f", len(d.Points), d.ViewState.Latitude, d.ViewState.Longitude)
	if d.Center.PlaceName != "" {
		fmt.Fprintf(w, " (%s)", d.Center.PlaceName)
	}
	fmt.Fprint(w, "\n\n")

	heading.Fprintf(w, "Breakdown by minute between %s\n", v.Histogram.Window.Label)
	if err := printHistogram(w, v.Histogram); err != nil {
		return err
	}

	fmt.Fprintln(w)
	heading.Fprintf(w, "Top %d dangerous streets by affected class: %s\n", v.TopStreets.N, v.TopStreets.Label)
	if err := printStreets(w, v.TopStreets); err != nil {
		return err
	}

	if v.Raw != nil {
		fmt.Fprintln(w)
		heading.Fprintf(w, "Raw data (%d records, first %d shown)\n", len(v.Raw.Records), min(maxRawRows, len(v.Raw.Records)))
		return printRaw(w, v.Raw)
	}
	return nil
}

func printHistogram(w io.Writer, h dashboard.HistogramView) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Minute", "Crashes", ""})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	peak := 0
	for _, b := range h.Buckets {
		peak = max(peak, b.Crashes)
	}

	data := make([][]string, 0, len(h.Buckets))
	for _, b := range h.Buckets {
		data = append(data, []string{
			strconv.Itoa(b.Minute),
			strconv.Itoa(b.Crashes),
			bar(b.Crashes, peak, 40),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func bar(n, peak, width int) string {
	if peak == 0 {
		return ""
	}
	return strings.Repeat("#", n*width/peak)
}

func printStreets(w io.Writer, s dashboard.StreetRankingView) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "On Street Name", s.Column})

	data := make([][]string, 0, len(s.Entries))
	for i, e := range s.Entries {
		data = append(data, []string{strconv.Itoa(i + 1), e.Street, strconv.Itoa(e.Count)})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printRaw(w io.Writer, raw *dashboard.RawTable) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{
		domain.DateTimeColumn, domain.FieldLatitude, domain.FieldLongitude,
		domain.FieldInjuredPersons, domain.FieldOnStreetName,
	})

	records := raw.Records[:min(maxRawRows, len(raw.Records))]
	data := make([][]string, 0, len(records))
	for _, r := range records {
		data = append(data, []string{
			r.Timestamp.Format("2006-01-02 15:04"),
			strconv.FormatFloat(r.Latitude, 'f', 6, 64),
			strconv.FormatFloat(r.Longitude, 'f', 6, 64),
			strconv.Itoa(r.InjuredPersons),
			r.OnStreetName,
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
