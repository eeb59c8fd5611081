// Package viz renders terminal output for track runs: lipgloss-styled
// summary cards, asciigraph charts of climatology series, and an
// interactive track browser.
package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/pmctools/cyclotrack/internal/stats"
	"github.com/pmctools/cyclotrack/internal/track"
	"github.com/pmctools/cyclotrack/internal/trackrun"
)

var monthAbbrev = []string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// SeriesChart plots a float series with a caption.
func SeriesChart(values []float64, caption string) string {
	if len(values) < 2 {
		return subtleStyle.Render("(not enough data to plot)")
	}
	chart := asciigraph.Plot(values,
		asciigraph.Height(10),
		asciigraph.Width(72),
		asciigraph.Caption(caption),
	)
	return graphStyle.Render(chart)
}

// MonthlyChart plots track counts per calendar month.
func MonthlyChart(counts [12]int) string {
	values := make([]float64, 12)
	for i, c := range counts {
		values[i] = float64(c)
	}
	chart := asciigraph.Plot(values,
		asciigraph.Height(8),
		asciigraph.Width(60),
		asciigraph.Caption("tracks per month"),
	)
	return graphStyle.Render(chart) + "\n" + subtleStyle.Render("        "+strings.Join(monthAbbrev, " "))
}

// WinterChart plots track counts per winter season starting at startYear.
func WinterChart(counts []int, startYear int) string {
	values := make([]float64, len(counts))
	labels := make([]string, len(counts))
	for i, c := range counts {
		values[i] = float64(c)
		labels[i] = fmt.Sprintf("%d/%02d", startYear+i, (startYear+i+1)%100)
	}
	chart := asciigraph.Plot(values,
		asciigraph.Height(8),
		asciigraph.Width(60),
		asciigraph.Caption("tracks per winter"),
	)
	return graphStyle.Render(chart) + "\n" + subtleStyle.Render("        "+strings.Join(labels, "  "))
}

// VorticityChart plots a track's vorticity series scaled to 1e-4 1/s.
func VorticityChart(tr *track.Track) string {
	vorts := tr.Vorts()
	scaled := make([]float64, len(vorts))
	for i, v := range vorts {
		scaled[i] = v * 1e4
	}
	return SeriesChart(scaled, fmt.Sprintf("track %d vorticity (1e-4 1/s)", tr.ID()))
}

// SummaryCard renders a run overview panel.
func SummaryCard(run *trackrun.Run) string {
	var b strings.Builder
	b.WriteString(KVLine("Tracks", fmt.Sprintf("%d", run.Size())) + "\n")
	b.WriteString(KVLine("Time step", fmt.Sprintf("%.1f h", run.TstepH())) + "\n")
	b.WriteString(KVLine("Sources", fmt.Sprintf("%d", len(run.Sources()))) + "\n")

	if run.IsCategorised() {
		mode := "independent"
		if run.Inclusive() {
			mode = "inclusive"
		}
		b.WriteString(KVLine("Categories", mode) + "\n")
		for _, label := range run.CatLabels() {
			n, err := run.CategorySize(label)
			if err != nil {
				continue
			}
			frac := 0.0
			if run.Size() > 0 {
				frac = float64(n) / float64(run.Size())
			}
			line := fmt.Sprintf("%-24s %4d  %s", label, n, ProgressBar(frac, 20))
			b.WriteString("  " + valueStyle.Render(line) + "\n")
		}
	} else {
		b.WriteString(KVLine("Categories", "(none)") + "\n")
	}

	agg := stats.Aggregate(run)
	if agg.N > 0 {
		b.WriteString(Separator(48) + "\n")
		b.WriteString(KVLine("Mean lifetime", fmt.Sprintf("%.1f h", agg.MeanLifetimeH)) + "\n")
		b.WriteString(KVLine("Max lifetime", fmt.Sprintf("%.1f h", agg.MaxLifetimeH)) + "\n")
		b.WriteString(KVLine("Mean distance", fmt.Sprintf("%.0f km", agg.MeanTotalDistKM)) + "\n")
		b.WriteString(KVLine("Mean speed", fmt.Sprintf("%.1f km/h", agg.MeanSpeedKMH)) + "\n")
		b.WriteString(KVLine("Mean max vort.", fmt.Sprintf("%.2e 1/s", agg.MeanMaxVort)))
	}

	return BoxWithTitle("Run summary", b.String(), 56)
}
