// Package track defines the track entity: the ordered observation sequence
// of a single vortex from genesis to lysis, with its derived kinematic
// properties.
package track

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/pmctools/cyclotrack/internal/geo"
)

var (
	// ErrEmpty indicates a track with no observations.
	ErrEmpty = errors.New("track: at least one observation required")

	// ErrTimeOrder indicates observation timestamps that are not strictly
	// increasing.
	ErrTimeOrder = errors.New("track: observation times must be strictly increasing")
)

// Observation is a single vortex detection at one time step.
type Observation struct {
	Lon        float64   `json:"lon" msgpack:"lon"`                 // degrees, canonical [-180, 180)
	Lat        float64   `json:"lat" msgpack:"lat"`                 // degrees
	Vort       float64   `json:"vort" msgpack:"vort"`               // relative vorticity or analogous intensity, signed
	Time       time.Time `json:"time" msgpack:"time"`               // UTC
	Area       float64   `json:"area" msgpack:"area"`               // vortex area, km2
	VortexType int       `json:"vortex_type" msgpack:"vortex_type"` // tracker-assigned vortex type code
}

// Track is a non-empty observation sequence ordered by time. It is an
// immutable view: all mutation happens at the run level, which owns the
// track and assigns its id.
type Track struct {
	id  int
	obs []Observation
}

// New validates the observation sequence and wraps it in a Track.
// Observations must be non-empty and strictly increasing in time;
// duplicate timestamps are rejected.
func New(id int, obs []Observation) (*Track, error) {
	if len(obs) == 0 {
		return nil, ErrEmpty
	}
	for i := 1; i < len(obs); i++ {
		if !obs[i].Time.After(obs[i-1].Time) {
			return nil, fmt.Errorf("%w: observation %d at %s does not follow %s",
				ErrTimeOrder, i, obs[i].Time.Format(time.RFC3339), obs[i-1].Time.Format(time.RFC3339))
		}
	}
	return &Track{id: id, obs: obs}, nil
}

// WithID returns a track sharing the same observations under a new id.
func (t *Track) WithID(id int) *Track {
	return &Track{id: id, obs: t.obs}
}

// ID returns the track id, unique within the owning run.
func (t *Track) ID() int { return t.id }

// Len returns the number of observations.
func (t *Track) Len() int { return len(t.obs) }

// Obs returns the i-th observation in time order.
func (t *Track) Obs(i int) Observation { return t.obs[i] }

// Observations returns the underlying observation slice. Callers must treat
// it as read-only.
func (t *Track) Observations() []Observation { return t.obs }

// Genesis returns the first observation.
func (t *Track) Genesis() Observation { return t.obs[0] }

// Lysis returns the last observation.
func (t *Track) Lysis() Observation { return t.obs[len(t.obs)-1] }

// LifetimeH returns the elapsed time in hours between genesis and lysis.
// A single-observation track has a lifetime of zero.
func (t *Track) LifetimeH() float64 {
	return t.Lysis().Time.Sub(t.Genesis().Time).Hours()
}

// TotalDistKM returns the cumulative great-circle path length in km over
// all consecutive observation pairs.
func (t *Track) TotalDistKM() float64 {
	lons, lats := t.coords()
	return geo.PathLength(lons, lats)
}

// GenLysDistKM returns the great-circle distance in km between the genesis
// and lysis positions only.
func (t *Track) GenLysDistKM() float64 {
	g, l := t.Genesis(), t.Lysis()
	return geo.GreatCircle(g.Lon, g.Lat, l.Lon, l.Lat)
}

// AverageSpeed returns the mean propagation speed in km/h, i.e.
// TotalDistKM over LifetimeH. For a zero-duration track (a single
// observation) the result is NaN: 0 km over 0 h is undefined, and NaN
// surfaces loudly downstream instead of skewing aggregates toward zero.
func (t *Track) AverageSpeed() float64 {
	lt := t.LifetimeH()
	if lt == 0 {
		return math.NaN()
	}
	return t.TotalDistKM() / lt
}

// MaxVort returns the maximum of the intensity column.
func (t *Track) MaxVort() float64 {
	max := t.obs[0].Vort
	for _, o := range t.obs[1:] {
		if o.Vort > max {
			max = o.Vort
		}
	}
	return max
}

// MeanVort returns the arithmetic mean of the intensity column.
func (t *Track) MeanVort() float64 {
	return stat.Mean(t.Vorts(), nil)
}

// Vorts returns the intensity column in observation order.
func (t *Track) Vorts() []float64 {
	out := make([]float64, len(t.obs))
	for i, o := range t.obs {
		out[i] = o.Vort
	}
	return out
}

// LonLat returns the ordered (lon, lat) pairs of the track path.
func (t *Track) LonLat() [][2]float64 {
	out := make([][2]float64, len(t.obs))
	for i, o := range t.obs {
		out[i] = [2]float64{o.Lon, o.Lat}
	}
	return out
}

// VortexTypeShare returns the fraction of observations carrying the given
// vortex type code.
func (t *Track) VortexTypeShare(code int) float64 {
	n := 0
	for _, o := range t.obs {
		if o.VortexType == code {
			n++
		}
	}
	return float64(n) / float64(len(t.obs))
}

// WithinDates reports whether every observation falls inside the inclusive
// [start, end] interval. Zero bounds are open.
func (t *Track) WithinDates(start, end time.Time) bool {
	if !start.IsZero() && t.Genesis().Time.Before(start) {
		return false
	}
	if !end.IsZero() && t.Lysis().Time.After(end) {
		return false
	}
	return true
}

func (t *Track) coords() (lons, lats []float64) {
	lons = make([]float64, len(t.obs))
	lats = make([]float64, len(t.obs))
	for i, o := range t.obs {
		lons[i] = o.Lon
		lats[i] = o.Lat
	}
	return lons, lats
}
