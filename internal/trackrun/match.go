package trackrun

import (
	"github.com/pmctools/cyclotrack/internal/geo"
	"github.com/pmctools/cyclotrack/internal/track"
)

// MatchPair links a track id in the receiver run to a track id in the
// other run.
type MatchPair struct {
	ID      int
	OtherID int
}

// Match finds tracks of other that correspond to tracks of r by time
// intersection: two tracks match when they share observation times for
// longer than timeFrac of the other track's lifetime and stay within
// threshDistKM of each other for at least as long. Each track of r is
// matched to at most one track of other, scanning in ascending id order.
func (r *Run) Match(other *Run, threshDistKM, timeFrac float64) []MatchPair {
	var pairs []MatchPair
	for id, tr := range r.Tracks() {
		for otherID, otherTr := range other.Tracks() {
			if matched(tr, otherTr, threshDistKM, timeFrac) {
				pairs = append(pairs, MatchPair{ID: id, OtherID: otherID})
				break
			}
		}
	}
	return pairs
}

func matched(a, b *track.Track, threshDistKM, timeFrac float64) bool {
	byTime := make(map[int64]track.Observation, b.Len())
	for _, o := range b.Observations() {
		byTime[o.Time.Unix()] = o
	}

	var matchTimes []track.Observation
	var dists []float64
	for _, o := range a.Observations() {
		bo, ok := byTime[o.Time.Unix()]
		if !ok {
			continue
		}
		matchTimes = append(matchTimes, o)
		dists = append(dists, geo.GreatCircle(o.Lon, o.Lat, bo.Lon, bo.Lat))
	}
	if len(matchTimes) == 0 {
		return false
	}

	// Time step of the intersection, from its last pair of common times.
	// A single common time has no step, so its overlap is zero hours and
	// it can never reach the threshold.
	tstepH := 0.0
	if n := len(matchTimes); n > 1 {
		tstepH = matchTimes[n-1].Time.Sub(matchTimes[n-2].Time).Hours()
	}

	thresholdH := timeFrac * b.LifetimeH()
	overlapH := float64(len(matchTimes)) * tstepH
	proxH := 0.0
	for _, d := range dists {
		if d < threshDistKM {
			proxH += tstepH
		}
	}
	return overlapH > thresholdH && proxH > thresholdH
}
