package aviation

import (
	"math"
	"sort"
	"time"
)

// Hazard is a significant-weather advisory reduced to a reference point.
type Hazard struct {
	ID        string        `json:"id"`
	Kind      string        `json:"kind"`   // SIGMET, AIRMET, ...
	Name      string        `json:"name"`   // TURB, ICE, CONVECTIVE, ASH, ...
	Center    Coordinate    `json:"center"` // polygon centroid or reference point
	Source    WeatherSource `json:"source,omitempty"`
	ValidFrom time.Time     `json:"valid_from"`
	ValidTo   time.Time     `json:"valid_to"`
	RawText   string        `json:"raw_text,omitempty"`
}

// HazardAssessment is a hazard with its distance and severity relative to a point.
type HazardAssessment struct {
	Hazard     Hazard   `json:"hazard"`
	DistanceNm float64  `json:"distance_nm"`
	Severity   Severity `json:"severity"`
}

// Centroid returns the mean of the given vertices. A closing vertex that
// repeats the first is ignored. Longitudes are unwrapped around the first
// vertex so polygons crossing the antimeridian stay in place; the result is
// normalized to [-180, 180). It reports false for an empty polygon.
func Centroid(points []Coordinate) (Coordinate, bool) {
	if n := len(points); n > 1 && points[0] == points[n-1] {
		points = points[:n-1]
	}
	if len(points) == 0 {
		return Coordinate{}, false
	}
	ref := points[0].Lon
	var lat, lon float64
	for _, p := range points {
		lat += p.Lat
		lon += ref + wrapLon(p.Lon-ref)
	}
	n := float64(len(points))
	return Coordinate{Lat: lat / n, Lon: wrapLon(lon / n)}, true
}

// wrapLon maps a longitude or longitude difference into [-180, 180).
func wrapLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// AssessHazard measures how far h is from point and classifies it.
func AssessHazard(point Coordinate, h Hazard) HazardAssessment {
	d := DistanceNm(point, h.Center)
	return HazardAssessment{
		Hazard:     h,
		DistanceNm: d,
		Severity:   ClassifySeverity(d),
	}
}

// AssessHazards assesses every hazard against point and orders the result
// nearest first. Hazards at equal distance keep their input order.
func AssessHazards(point Coordinate, hazards []Hazard) []HazardAssessment {
	out := make([]HazardAssessment, 0, len(hazards))
	for _, h := range hazards {
		out = append(out, AssessHazard(point, h))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceNm < out[j].DistanceNm
	})
	return out
}

// HighestSeverity returns the most urgent severity among assessments, or
// false when there are none.
func HighestSeverity(assessments []HazardAssessment) (Severity, bool) {
	if len(assessments) == 0 {
		return "", false
	}
	best := assessments[0].Severity
	for _, a := range assessments[1:] {
		if a.Severity.Rank() < best.Rank() {
			best = a.Severity
		}
	}
	return best, true
}
