// Package geo provides spherical geometry helpers for track analysis.
// All distances are great-circle distances on a sphere of Earth's mean
// radius, returned in kilometres. Inputs are in degrees.
package geo

import "math"

// EarthRadiusKM is the mean Earth radius.
const EarthRadiusKM = 6371.0

const degToRad = math.Pi / 180.0

// NormalizeLon wraps a longitude into the canonical [-180, 180) range.
func NormalizeLon(lon float64) float64 {
	lon = math.Mod(lon+180.0, 360.0)
	if lon < 0 {
		lon += 360.0
	}
	return lon - 180.0
}

// GreatCircle returns the great-circle distance in km between two points
// given as (lon, lat) pairs in degrees.
func GreatCircle(lon1, lat1, lon2, lat2 float64) float64 {
	return GreatCircleR(lon1, lat1, lon2, lat2, EarthRadiusKM)
}

// GreatCircleR is GreatCircle on a sphere of radius radiusKM.
// The haversine argument is clamped to [0, 1] so that antipodal and
// coincident points do not produce a domain error from floating-point
// overshoot.
func GreatCircleR(lon1, lat1, lon2, lat2, radiusKM float64) float64 {
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLam := (lon2 - lon1) * degToRad

	sinPhi := math.Sin(dPhi / 2)
	sinLam := math.Sin(dLam / 2)
	h := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLam*sinLam
	if h < 0 {
		h = 0
	}
	if h > 1 {
		h = 1
	}
	return 2 * radiusKM * math.Asin(math.Sqrt(h))
}

// ConsecutiveDistances returns the n-1 great-circle distances between
// consecutive (lon, lat) points. A path of fewer than two points yields an
// empty slice.
func ConsecutiveDistances(lons, lats []float64) []float64 {
	n := len(lons)
	if len(lats) < n {
		n = len(lats)
	}
	if n < 2 {
		return nil
	}
	out := make([]float64, n-1)
	for i := 1; i < n; i++ {
		out[i-1] = GreatCircle(lons[i-1], lats[i-1], lons[i], lats[i])
	}
	return out
}

// PathLength returns the cumulative great-circle length in km of the
// polyline through the given (lon, lat) points.
func PathLength(lons, lats []float64) float64 {
	total := 0.0
	for _, d := range ConsecutiveDistances(lons, lats) {
		total += d
	}
	return total
}
