package aviation

import "time"

// WeatherSource identifies the upstream provider that produced a weather record.
type WeatherSource string

const (
	SourceNOAA    WeatherSource = "NOAA"
	SourceCheckWX WeatherSource = "CheckWX"
)

// Valid reports whether s is one of the known providers.
func (s WeatherSource) Valid() bool {
	switch s {
	case SourceNOAA, SourceCheckWX:
		return true
	default:
		return false
	}
}

// Observation is a METAR-style surface observation. Optional numeric fields
// are nil when the provider did not report them.
type Observation struct {
	Station        string        `json:"station"`
	ObservedAt     time.Time     `json:"observed_at"`
	RawText        string        `json:"raw_text"`
	TemperatureC   *float64      `json:"temperature_c,omitempty"`
	DewpointC      *float64      `json:"dewpoint_c,omitempty"`
	WindDirDeg     *int          `json:"wind_dir_deg,omitempty"` // nil for variable wind
	WindSpeedKt    *int          `json:"wind_speed_kt,omitempty"`
	WindGustKt     *int          `json:"wind_gust_kt,omitempty"`
	Visibility     string        `json:"visibility,omitempty"` // statute miles, e.g. "10+"
	AltimeterHpa   *float64      `json:"altimeter_hpa,omitempty"`
	FlightCategory string        `json:"flight_category,omitempty"` // VFR, MVFR, IFR, LIFR
	Position       *Coordinate   `json:"position,omitempty"`
	Source         WeatherSource `json:"source,omitempty"`
}

// Forecast is a TAF-style terminal forecast.
type Forecast struct {
	Station   string        `json:"station"`
	IssuedAt  time.Time     `json:"issued_at"`
	ValidFrom time.Time     `json:"valid_from"`
	ValidTo   time.Time     `json:"valid_to"`
	RawText   string        `json:"raw_text"`
	Position  *Coordinate   `json:"position,omitempty"`
	Source    WeatherSource `json:"source,omitempty"`
}

// TagObservations returns a copy of records with every element's Source set
// to source. The input slice is left untouched. The result is never nil.
func TagObservations(records []Observation, source WeatherSource) []Observation {
	return tagAll(records, func(o *Observation) { o.Source = source })
}

// TagForecasts returns a copy of records with every element's Source set
// to source. The input slice is left untouched. The result is never nil.
func TagForecasts(records []Forecast, source WeatherSource) []Forecast {
	return tagAll(records, func(f *Forecast) { f.Source = source })
}

// tagAll copies each record by value and applies set to the copy.
func tagAll[T any](records []T, set func(*T)) []T {
	out := make([]T, len(records))
	for i, rec := range records {
		set(&rec)
		out[i] = rec
	}
	return out
}
