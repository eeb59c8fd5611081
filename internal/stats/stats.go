// Package stats provides climatology summaries over a run: track counts
// binned by calendar month or by winter season, and aggregate statistics
// of the per-track derived properties.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/pmctools/cyclotrack/internal/trackrun"
)

// BinByMonth counts, for each calendar month, the tracks with at least
// one observation in that month. A track spanning a month boundary is
// counted in both months.
func BinByMonth(run *trackrun.Run) [12]int {
	var counts [12]int
	for _, tr := range run.Tracks() {
		var seen [12]bool
		for _, o := range tr.Observations() {
			seen[int(o.Time.Month())-1] = true
		}
		for m, s := range seen {
			if s {
				counts[m]++
			}
		}
	}
	return counts
}

// BinByWinter counts tracks per winter season, for nWinters seasons
// starting with the winter of startYear. A track ending in January-June
// belongs to the winter that began the previous calendar year; a track
// ending in July-December belongs to the winter beginning that year.
func BinByWinter(run *trackrun.Run, startYear, nWinters int) []int {
	counts := make([]int, nWinters)
	for _, tr := range run.Tracks() {
		lastMonth := int(tr.Lysis().Time.Month())
		firstYear := tr.Genesis().Time.Year()
		lastYear := tr.Lysis().Time.Year()
		for i := 0; i < nWinters; i++ {
			if lastMonth <= 6 {
				if firstYear == startYear+i+1 {
					counts[i]++
				}
			} else if lastYear == startYear+i {
				counts[i]++
			}
		}
	}
	return counts
}

// Aggregates summarises the derived properties of a track population.
// Speed means skip NaN entries from single-observation tracks.
type Aggregates struct {
	N               int
	MeanLifetimeH   float64
	MaxLifetimeH    float64
	MeanTotalDistKM float64
	MeanMaxVort     float64
	MeanSpeedKMH    float64
}

// Aggregate computes population statistics for the run's tracks.
func Aggregate(run *trackrun.Run) Aggregates {
	var lifetimes, dists, vorts, speeds []float64
	for _, tr := range run.Tracks() {
		lifetimes = append(lifetimes, tr.LifetimeH())
		dists = append(dists, tr.TotalDistKM())
		vorts = append(vorts, tr.MaxVort())
		if s := tr.AverageSpeed(); !math.IsNaN(s) {
			speeds = append(speeds, s)
		}
	}

	agg := Aggregates{N: len(lifetimes)}
	if agg.N == 0 {
		return agg
	}
	agg.MeanLifetimeH = stat.Mean(lifetimes, nil)
	agg.MaxLifetimeH = maxOf(lifetimes)
	agg.MeanTotalDistKM = stat.Mean(dists, nil)
	agg.MeanMaxVort = stat.Mean(vorts, nil)
	if len(speeds) > 0 {
		agg.MeanSpeedKMH = stat.Mean(speeds, nil)
	}
	return agg
}

func maxOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	return m
}
