package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pmctools/cyclotrack/internal/archive"
	"github.com/pmctools/cyclotrack/internal/classify"
	"github.com/pmctools/cyclotrack/internal/config"
	"github.com/pmctools/cyclotrack/internal/density"
	"github.com/pmctools/cyclotrack/internal/loader"
	"github.com/pmctools/cyclotrack/internal/stats"
	"github.com/pmctools/cyclotrack/internal/track"
	"github.com/pmctools/cyclotrack/internal/trackrun"
	"github.com/pmctools/cyclotrack/internal/viz"
)

var (
	configFile string
	outPath    string
	inclusive  bool
	keep       bool
	// percentile flags
	byName string
	perc   float64
	op     string
	subset string
	// stats flags
	startYear int
	nWinters  int
	// density flags
	densityBy    string
	lonMin       float64
	lonMax       float64
	dLon         float64
	latMin       float64
	latMax       float64
	dLat         float64
	areaWeight   bool
	excludeFirst string
	excludeLast  string
	// slice flags
	sliceStart string
	sliceEnd   string
	// match flags
	matchDistKM   float64
	matchTimeFrac float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cyclotrack",
		Short: "polar mesoscale cyclone track analysis",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	infoCmd := &cobra.Command{
		Use:   "info [input]",
		Short: "summarise a run",
		Args:  cobra.ExactArgs(1),
		RunE:  runInfo,
	}

	classifyCmd := &cobra.Command{
		Use:   "classify [input]",
		Short: "categorise tracks with configured rules",
		Args:  cobra.ExactArgs(1),
		RunE:  runClassify,
	}
	classifyCmd.Flags().StringVar(&configFile, "config", "", "rule config file (yaml)")
	classifyCmd.Flags().StringVar(&outPath, "out", "", "write the categorised run to this archive")
	classifyCmd.Flags().BoolVar(&inclusive, "inclusive", false, "chain categories as nested subsets")
	classifyCmd.Flags().BoolVar(&keep, "keep", false, "keep existing category columns")

	percentileCmd := &cobra.Command{
		Use:   "percentile [input]",
		Short: "categorise tracks against a percentile threshold",
		Args:  cobra.ExactArgs(1),
		RunE:  runPercentile,
	}
	percentileCmd.Flags().StringVar(&byName, "by", "max_vort", "track property: lifetime_h|max_vort|mean_vort|total_dist_km|gen_lys_dist_km|avg_speed")
	percentileCmd.Flags().Float64Var(&perc, "perc", 95, "percentile in [0, 100]")
	percentileCmd.Flags().StringVar(&op, "op", "ge", "comparison: lt|le|gt|ge")
	percentileCmd.Flags().StringVar(&subset, "subset", "", "restrict the population to an existing category")
	percentileCmd.Flags().StringVar(&outPath, "out", "", "write the categorised run to this archive")

	statsCmd := &cobra.Command{
		Use:   "stats [input]",
		Short: "climatology charts and aggregates",
		Args:  cobra.ExactArgs(1),
		RunE:  runStats,
	}
	statsCmd.Flags().IntVar(&startYear, "start-year", 0, "first winter season to bin (0 disables)")
	statsCmd.Flags().IntVar(&nWinters, "winters", 1, "number of winter seasons")

	densityCmd := &cobra.Command{
		Use:   "density [input]",
		Short: "grid density of track positions, as CSV on stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  runDensity,
	}
	densityCmd.Flags().StringVar(&densityBy, "by", "point", "counting method: point|track|genesis|lysis")
	densityCmd.Flags().Float64Var(&lonMin, "lon-min", -10, "west edge of the grid")
	densityCmd.Flags().Float64Var(&lonMax, "lon-max", 40, "east edge of the grid")
	densityCmd.Flags().Float64Var(&dLon, "dlon", 2, "cell width in degrees")
	densityCmd.Flags().Float64Var(&latMin, "lat-min", 65, "south edge of the grid")
	densityCmd.Flags().Float64Var(&latMax, "lat-max", 85, "north edge of the grid")
	densityCmd.Flags().Float64Var(&dLat, "dlat", 1, "cell height in degrees")
	densityCmd.Flags().BoolVar(&areaWeight, "area-weight", false, "divide counts by cell area (km^-2)")
	densityCmd.Flags().StringVar(&excludeFirst, "exclude-first", "", "genesis only: skip tracks starting on this day (MM-DD)")
	densityCmd.Flags().StringVar(&excludeLast, "exclude-last", "", "lysis only: skip tracks ending on this day (MM-DD)")

	convertCmd := &cobra.Command{
		Use:   "convert [input] [output]",
		Short: "convert a run between archive formats",
		Args:  cobra.ExactArgs(2),
		RunE:  runConvert,
	}

	mergeCmd := &cobra.Command{
		Use:   "merge [output] [input...]",
		Short: "merge runs into one archive, renumbering tracks",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runMerge,
	}

	sliceCmd := &cobra.Command{
		Use:   "slice [input]",
		Short: "restrict a run to a time window",
		Args:  cobra.ExactArgs(1),
		RunE:  runSlice,
	}
	sliceCmd.Flags().StringVar(&sliceStart, "start", "", "window start (RFC3339 or YYYY-MM-DD)")
	sliceCmd.Flags().StringVar(&sliceEnd, "end", "", "window end (RFC3339 or YYYY-MM-DD)")
	sliceCmd.Flags().StringVar(&outPath, "out", "", "write the sliced run to this archive")
	sliceCmd.MarkFlagRequired("start")
	sliceCmd.MarkFlagRequired("end")
	sliceCmd.MarkFlagRequired("out")

	matchCmd := &cobra.Command{
		Use:   "match [input] [other]",
		Short: "pair up tracks of two runs by spatiotemporal overlap",
		Args:  cobra.ExactArgs(2),
		RunE:  runMatch,
	}
	matchCmd.Flags().Float64Var(&matchDistKM, "dist", 150, "proximity threshold in km")
	matchCmd.Flags().Float64Var(&matchTimeFrac, "time-frac", 0.5, "required overlap fraction of the other track's lifetime")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [input]",
		Short: "export observations to CSV on stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  runExportCSV,
	}

	browseCmd := &cobra.Command{
		Use:   "browse [input]",
		Short: "interactive track browser",
		Args:  cobra.ExactArgs(1),
		RunE:  runBrowse,
	}

	rootCmd.AddCommand(infoCmd, classifyCmd, percentileCmd, statsCmd, densityCmd,
		convertCmd, mergeCmd, sliceCmd, matchCmd, exportCSVCmd, browseCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadInput reads a run from a tracking output directory, an archive file,
// or an observations CSV, chosen by what the path points at.
func loadInput(path string) (*trackrun.Run, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return loader.LoadDir(path)
	}
	if filepath.Ext(path) == ".csv" {
		return loader.LoadCSV(path)
	}
	return archive.Load(path)
}

func saveIfRequested(run *trackrun.Run) error {
	if outPath == "" {
		return nil
	}
	if err := archive.Save(outPath, run); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "saved %s\n", outPath)
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	run, err := loadInput(args[0])
	if err != nil {
		return err
	}

	fmt.Println(viz.SummaryCard(run))
	if srcs := run.Sources(); len(srcs) > 0 {
		fmt.Println("\nsources:")
		for _, s := range srcs {
			fmt.Printf("  %s\n", s)
		}
	}
	return nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	run, err := loadInput(args[0])
	if err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	if configFile != "" {
		cfg, err = config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}
	if !cmd.Flags().Changed("inclusive") {
		inclusive = cfg.Inclusive
	}

	opts := &classify.Options{
		Inclusive: inclusive,
		Keep:      keep,
		Progress: func(done, total int) {
			frac := float64(done) / float64(total)
			fmt.Fprintf(os.Stderr, "\r%s %d/%d", viz.ProgressBar(frac, 30), done, total)
			if done == total {
				fmt.Fprintln(os.Stderr)
			}
		},
	}
	if err := classify.Apply(run, cfg.BuildRules(), opts); err != nil {
		return err
	}

	for _, label := range run.CatLabels() {
		n, err := run.CategorySize(label)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d of %d tracks\n", label, n, run.Size())
	}
	return saveIfRequested(run)
}

// trackProperty maps a CLI name to a per-track scalar.
func trackProperty(name string) (func(*track.Track) float64, error) {
	switch name {
	case "lifetime_h":
		return (*track.Track).LifetimeH, nil
	case "max_vort":
		return (*track.Track).MaxVort, nil
	case "mean_vort":
		return (*track.Track).MeanVort, nil
	case "total_dist_km":
		return (*track.Track).TotalDistKM, nil
	case "gen_lys_dist_km":
		return (*track.Track).GenLysDistKM, nil
	case "avg_speed":
		return (*track.Track).AverageSpeed, nil
	}
	return nil, fmt.Errorf("unknown track property: %s", name)
}

func runPercentile(cmd *cobra.Command, args []string) error {
	run, err := loadInput(args[0])
	if err != nil {
		return err
	}

	by, err := trackProperty(byName)
	if err != nil {
		return err
	}
	var scope []string
	if subset != "" {
		scope = []string{subset}
	}
	label, err := classify.ByPercentile(run, byName, by, perc, classify.Op(op), scope...)
	if err != nil {
		return err
	}

	n, err := run.CategorySize(label)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d of %d tracks\n", label, n, run.Size())
	return saveIfRequested(run)
}

func runStats(cmd *cobra.Command, args []string) error {
	run, err := loadInput(args[0])
	if err != nil {
		return err
	}

	fmt.Println(viz.SummaryCard(run))
	fmt.Println(viz.MonthlyChart(stats.BinByMonth(run)))
	if startYear > 0 {
		counts := stats.BinByWinter(run, startYear, nWinters)
		fmt.Println(viz.WinterChart(counts, startYear))
	}
	return nil
}

// gridCentres builds cell centres from an inclusive edge range and step.
func gridCentres(min, max, step float64) []float64 {
	var centres []float64
	for c := min + step/2; c < max; c += step {
		centres = append(centres, c)
	}
	return centres
}

// parseMonthDay parses an "MM-DD" boundary day; empty means none.
func parseMonthDay(s string) (*density.MonthDay, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("01-02", s)
	if err != nil {
		return nil, fmt.Errorf("boundary day %q: want MM-DD", s)
	}
	return &density.MonthDay{Month: t.Month(), Day: t.Day()}, nil
}

func runDensity(cmd *cobra.Command, args []string) error {
	run, err := loadInput(args[0])
	if err != nil {
		return err
	}

	first, err := parseMonthDay(excludeFirst)
	if err != nil {
		return err
	}
	last, err := parseMonthDay(excludeLast)
	if err != nil {
		return err
	}

	lons := gridCentres(lonMin, lonMax, dLon)
	lats := gridCentres(latMin, latMax, dLat)
	field, err := density.Compute(run, lons, lats, density.Options{
		By:           density.Kind(densityBy),
		WeightByArea: areaWeight,
		ExcludeFirst: first,
		ExcludeLast:  last,
	})
	if err != nil {
		return err
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()
	if err := w.Write([]string{"lon", "lat", "density"}); err != nil {
		return err
	}
	for iLat, lat := range field.Lats {
		for iLon, lon := range field.Lons {
			row := []string{
				strconv.FormatFloat(lon, 'f', 4, 64),
				strconv.FormatFloat(lat, 'f', 4, 64),
				strconv.FormatFloat(field.Values[iLat][iLon], 'g', -1, 64),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	run, err := loadInput(args[0])
	if err != nil {
		return err
	}
	if err := archive.Save(args[1], run); err != nil {
		return err
	}
	fmt.Printf("converted %s -> %s (%d tracks)\n", args[0], args[1], run.Size())
	return nil
}

func runMerge(cmd *cobra.Command, args []string) error {
	out := args[0]
	merged, err := loadInput(args[1])
	if err != nil {
		return err
	}
	for _, path := range args[2:] {
		next, err := loadInput(path)
		if err != nil {
			return err
		}
		if err := merged.Extend(next); err != nil {
			return fmt.Errorf("merging %s: %w", path, err)
		}
	}

	if err := archive.Save(out, merged); err != nil {
		return err
	}
	fmt.Printf("merged %d runs into %s (%d tracks)\n", len(args)-1, out, merged.Size())
	return nil
}

func parseWhen(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func runSlice(cmd *cobra.Command, args []string) error {
	run, err := loadInput(args[0])
	if err != nil {
		return err
	}

	start, err := parseWhen(sliceStart)
	if err != nil {
		return err
	}
	end, err := parseWhen(sliceEnd)
	if err != nil {
		return err
	}

	sliced, err := run.TimeSlice(start, end)
	if err != nil {
		return err
	}
	fmt.Printf("%d of %d tracks inside [%s, %s]\n",
		sliced.Size(), run.Size(), start.Format(time.RFC3339), end.Format(time.RFC3339))
	return archive.Save(outPath, sliced)
}

func runMatch(cmd *cobra.Command, args []string) error {
	run, err := loadInput(args[0])
	if err != nil {
		return err
	}
	other, err := loadInput(args[1])
	if err != nil {
		return err
	}

	pairs := run.Match(other, matchDistKM, matchTimeFrac)
	if len(pairs) == 0 {
		fmt.Println("no matching tracks")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tOTHER_ID")
	for _, p := range pairs {
		fmt.Fprintf(w, "%d\t%d\n", p.ID, p.OtherID)
	}
	return w.Flush()
}

func runExportCSV(cmd *cobra.Command, args []string) error {
	run, err := loadInput(args[0])
	if err != nil {
		return err
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()
	if err := w.Write([]string{"track_id", "lon", "lat", "vort", "time", "area", "vortex_type"}); err != nil {
		return err
	}
	for id, tr := range run.Tracks() {
		for _, o := range tr.Observations() {
			row := []string{
				strconv.Itoa(id),
				strconv.FormatFloat(o.Lon, 'f', 4, 64),
				strconv.FormatFloat(o.Lat, 'f', 4, 64),
				strconv.FormatFloat(o.Vort, 'g', -1, 64),
				o.Time.UTC().Format(time.RFC3339),
				strconv.FormatFloat(o.Area, 'g', -1, 64),
				strconv.Itoa(o.VortexType),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}

func runBrowse(cmd *cobra.Command, args []string) error {
	run, err := loadInput(args[0])
	if err != nil {
		return err
	}
	return viz.RunBrowser(run)
}
