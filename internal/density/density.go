// Package density computes cyclone density fields on a lon-lat grid:
// counts of observation points, of tracks (each at most once per cell),
// or of genesis/lysis positions, optionally weighted by spherical grid
// cell area.
package density

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/pmctools/cyclotrack/internal/geo"
	"github.com/pmctools/cyclotrack/internal/trackrun"
)

// Kind selects what is counted per grid cell.
type Kind string

const (
	// Point counts every observation of every track.
	Point Kind = "point"
	// Track counts each track at most once per cell.
	Track Kind = "track"
	// Genesis counts track starting positions.
	Genesis Kind = "genesis"
	// Lysis counts track ending positions.
	Lysis Kind = "lysis"
)

var (
	// ErrGridOrder indicates grid coordinates that are not ascending.
	ErrGridOrder = errors.New("density: grid values must be in ascending order")

	// ErrBadKind indicates an unknown density kind.
	ErrBadKind = errors.New("density: kind must be one of point|track|genesis|lysis")
)

// MonthDay is a calendar day used to exclude tracks that start or end on
// the tracking period boundary, where genesis/lysis is an artifact of the
// tracking window rather than a physical event.
type MonthDay struct {
	Month time.Month
	Day   int
}

// Options tunes a density calculation. The zero value counts observation
// points on a grid given by cell centres, unweighted.
type Options struct {
	By           Kind
	GridBounds   bool // inputs are cell boundaries, not centres
	WeightByArea bool
	ExcludeFirst *MonthDay // Genesis only: skip tracks starting on this day
	ExcludeLast  *MonthDay // Lysis only: skip tracks ending on this day
}

// Field is a density result: values per cell, lat-major, with the cell
// centre coordinates.
type Field struct {
	Lons   []float64
	Lats   []float64
	Values [][]float64 // Values[iLat][iLon]
	Units  string
	By     Kind
}

// Compute counts the requested positions of the run's tracks on the grid.
// lons and lats are cell centres unless Options.GridBounds is set.
func Compute(run *trackrun.Run, lons, lats []float64, opts Options) (*Field, error) {
	by := opts.By
	if by == "" {
		by = Point
	}

	var lonB, latB, lonC, latC []float64
	if opts.GridBounds {
		lonB, latB = lons, lats
		lonC, latC = CellCentres(lons), CellCentres(lats)
	} else {
		lonB, latB = CellBounds(lons), CellBounds(lats)
		lonC, latC = lons, lats
	}
	if !ascending(lonB) || !ascending(latB) {
		return nil, ErrGridOrder
	}

	nLat, nLon := len(latC), len(lonC)
	values := make([][]float64, nLat)
	for i := range values {
		values[i] = make([]float64, nLon)
	}

	count := func(lon, lat float64) {
		i := cellIndex(latB, lat)
		j := cellIndex(lonB, lon)
		if i >= 0 && j >= 0 {
			values[i][j]++
		}
	}

	for _, tr := range run.Tracks() {
		switch by {
		case Point:
			for _, o := range tr.Observations() {
				count(o.Lon, o.Lat)
			}
		case Track:
			seen := make(map[[2]int]bool)
			for _, o := range tr.Observations() {
				i := cellIndex(latB, o.Lat)
				j := cellIndex(lonB, o.Lon)
				if i >= 0 && j >= 0 && !seen[[2]int{i, j}] {
					seen[[2]int{i, j}] = true
					values[i][j]++
				}
			}
		case Genesis:
			if onDay(tr.Genesis().Time, opts.ExcludeFirst) {
				continue
			}
			count(tr.Genesis().Lon, tr.Genesis().Lat)
		case Lysis:
			if onDay(tr.Lysis().Time, opts.ExcludeLast) {
				continue
			}
			count(tr.Lysis().Lon, tr.Lysis().Lat)
		default:
			return nil, fmt.Errorf("%w: %q", ErrBadKind, by)
		}
	}

	units := "1"
	if opts.WeightByArea {
		areas := CellAreasKM2(lonB, latB)
		for i := range values {
			for j := range values[i] {
				values[i][j] /= areas[i][j]
			}
		}
		units = "km-2"
	}

	return &Field{Lons: lonC, Lats: latC, Values: values, Units: units, By: by}, nil
}

// CellBounds converts cell centres into the n+1 boundaries halfway
// between them, extrapolating half a step at each end.
func CellBounds(centres []float64) []float64 {
	n := len(centres)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return []float64{centres[0] - 0.5, centres[0] + 0.5}
	}
	out := make([]float64, n+1)
	out[0] = centres[0] - (centres[1]-centres[0])/2
	for i := 1; i < n; i++ {
		out[i] = (centres[i-1] + centres[i]) / 2
	}
	out[n] = centres[n-1] + (centres[n-1]-centres[n-2])/2
	return out
}

// CellCentres converts n+1 cell boundaries into n centres.
func CellCentres(bounds []float64) []float64 {
	if len(bounds) < 2 {
		return nil
	}
	out := make([]float64, len(bounds)-1)
	for i := range out {
		out[i] = (bounds[i] + bounds[i+1]) / 2
	}
	return out
}

// CellAreasKM2 returns the spherical surface area in km2 of every cell of
// the grid defined by the given boundaries, lat-major.
func CellAreasKM2(lonB, latB []float64) [][]float64 {
	const degToRad = math.Pi / 180.0
	r2 := geo.EarthRadiusKM * geo.EarthRadiusKM

	out := make([][]float64, len(latB)-1)
	for i := 0; i < len(latB)-1; i++ {
		band := r2 * (math.Sin(latB[i+1]*degToRad) - math.Sin(latB[i]*degToRad))
		out[i] = make([]float64, len(lonB)-1)
		for j := 0; j < len(lonB)-1; j++ {
			out[i][j] = band * (lonB[j+1] - lonB[j]) * degToRad
		}
	}
	return out
}

// cellIndex returns the cell containing v, where cell i spans
// [bounds[i], bounds[i+1]), or -1 when v is outside the grid.
func cellIndex(bounds []float64, v float64) int {
	if v < bounds[0] || v >= bounds[len(bounds)-1] {
		return -1
	}
	lo, hi := 0, len(bounds)-1
	for lo < hi-1 {
		mid := (lo + hi) / 2
		if v < bounds[mid] {
			hi = mid
		} else {
			lo = mid
		}
	}
	return lo
}

func ascending(v []float64) bool {
	for i := 1; i < len(v); i++ {
		if v[i] <= v[i-1] {
			return false
		}
	}
	return true
}

func onDay(t time.Time, d *MonthDay) bool {
	return d != nil && t.Month() == d.Month && t.Day() == d.Day
}
