package weather

import (
	"time"

	"github.com/neexbeast/flightdeck/internal/aviation"
)

// Briefing is the merged, provenance-tagged weather picture for one station.
type Briefing struct {
	Station         string                      `json:"station"`
	Position        *aviation.Coordinate        `json:"position,omitempty"`
	Observations    []aviation.Observation      `json:"observations"`
	Forecasts       []aviation.Forecast         `json:"forecasts"`
	Hazards         []aviation.HazardAssessment `json:"hazards"`
	HighestSeverity aviation.Severity           `json:"highest_severity,omitempty"`
	Sources         []aviation.WeatherSource    `json:"sources"`
	FetchedAt       time.Time                   `json:"fetched_at"`
}

// Config holds the provider settings for NewFetcher. Empty URLs mean the
// production endpoints; an empty CheckWXAPIKey disables CheckWX.
type Config struct {
	NOAABaseURL    string
	CheckWXAPIKey  string
	CheckWXBaseURL string
	HazardRangeNm  float64
}

// DefaultHazardRangeNm bounds which hazards are included in a briefing.
const DefaultHazardRangeNm = 500.0
