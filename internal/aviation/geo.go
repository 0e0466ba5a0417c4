package aviation

import (
	"errors"
	"fmt"
	"math"
)

// EarthRadiusNm is the mean Earth radius in nautical miles.
const EarthRadiusNm = 3440.065

// Severity thresholds in nautical miles. A distance equal to a threshold
// belongs to the more severe tier.
const (
	HighThresholdNm     = 50.0
	ModerateThresholdNm = 100.0
)

// ErrInvalidCoordinate is returned by Coordinate.Validate for out-of-range values.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Coordinate is a latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate reports whether the coordinate lies in the valid lat/lon domain.
// DistanceNm does not call it; callers at the edge of the system decide
// whether to reject bad input.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %v outside [-90, 90]", ErrInvalidCoordinate, c.Lat)
	}
	if math.IsNaN(c.Lon) || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: longitude %v outside [-180, 180]", ErrInvalidCoordinate, c.Lon)
	}
	return nil
}

// IsZero reports whether both components are zero.
func (c Coordinate) IsZero() bool {
	return c.Lat == 0 && c.Lon == 0
}

// DistanceNm returns the great-circle distance between a and b in nautical
// miles using the haversine formula.
func DistanceNm(a, b Coordinate) float64 {
	lat1 := degreesToRadians(a.Lat)
	lat2 := degreesToRadians(b.Lat)
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLon := degreesToRadians(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	// Rounding can push sqrt(h) just past 1 near antipodal points; asin is
	// undefined there.
	return 2 * EarthRadiusNm * math.Asin(math.Min(1, math.Sqrt(h)))
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Severity classifies how close a hazard is to a point of interest.
type Severity string

const (
	SeverityHigh     Severity = "high"
	SeverityModerate Severity = "moderate"
	SeverityInfo     Severity = "info"
)

// ClassifySeverity buckets a distance in nautical miles:
//   - <= 50nm high
//   - <= 100nm moderate
//   - otherwise info
//
// Negative distances are not rejected and classify as high.
func ClassifySeverity(distanceNm float64) Severity {
	switch {
	case distanceNm <= HighThresholdNm:
		return SeverityHigh
	case distanceNm <= ModerateThresholdNm:
		return SeverityModerate
	default:
		return SeverityInfo
	}
}

// Rank orders severities from most (0) to least urgent. Unknown values rank last.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityModerate:
		return 1
	case SeverityInfo:
		return 2
	default:
		return 3
	}
}

// ParseSeverity converts a string into a known Severity.
func ParseSeverity(s string) (Severity, bool) {
	switch sev := Severity(s); sev {
	case SeverityHigh, SeverityModerate, SeverityInfo:
		return sev, true
	default:
		return "", false
	}
}
