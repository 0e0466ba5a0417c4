package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/neexbeast/flightdeck/internal/aviation"
)

const httpTimeout = 10 * time.Second

// newHTTPClient returns an http.Client with a 10-second timeout.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// doGet performs a GET request with the given extra headers and decodes the
// JSON response into dst.
func doGet(ctx context.Context, client *http.Client, rawURL string, header http.Header, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request for %s: %w", rawURL, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s returned status %d", rawURL, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding response from %s: %w", rawURL, err)
	}

	return nil
}

// parseTimestamp accepts RFC 3339 and the zone-less layout some providers use (read as UTC).
func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, time.UTC); err == nil {
		return t
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.UTC); err == nil {
		return t
	}
	return time.Time{}
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// numberOrString renders a JSON value that providers send either as a number or a string.
func numberOrString(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return strings.TrimSpace(x)
	default:
		return ""
	}
}

// degrees returns nil for anything that is not a number ("VRB", null).
func degrees(v any) *int {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	d := int(f)
	return &d
}

func intPtr(f *float64) *int {
	if f == nil {
		return nil
	}
	v := int(*f)
	return &v
}

func position(lat, lon *float64) *aviation.Coordinate {
	if lat == nil || lon == nil {
		return nil
	}
	return &aviation.Coordinate{Lat: *lat, Lon: *lon}
}

// ---- NOAA Aviation Weather Center ----

// NOAAClient fetches METARs, TAFs and SIGMETs from the aviationweather.gov data API (no key required).
type NOAAClient struct {
	baseURL string
	client  *http.Client
}

const noaaDefaultURL = "https://aviationweather.gov/api/data"

// NewNOAAClient constructs a NOAAClient using the production API.
func NewNOAAClient() *NOAAClient {
	return &NOAAClient{baseURL: noaaDefaultURL, client: newHTTPClient()}
}

// NewNOAAClientWithURL constructs a NOAAClient pointing at a custom base URL.
func NewNOAAClientWithURL(baseURL string) *NOAAClient {
	return &NOAAClient{baseURL: strings.TrimRight(baseURL, "/"), client: newHTTPClient()}
}

type noaaMETAR struct {
	ICAOID     string   `json:"icaoId"`
	ReportTime string   `json:"reportTime"`
	ObsTime    int64    `json:"obsTime"`
	Temp       *float64 `json:"temp"`
	Dewp       *float64 `json:"dewp"`
	Wdir       any      `json:"wdir"` // degrees or "VRB"
	Wspd       *float64 `json:"wspd"`
	Wgst       *float64 `json:"wgst"`
	Visib      any      `json:"visib"` // 4.97 or "10+"
	Altim      *float64 `json:"altim"`
	RawOb      string   `json:"rawOb"`
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
	FltCat     string   `json:"fltCat"`
}

type noaaTAF struct {
	ICAOID        string   `json:"icaoId"`
	IssueTime     string   `json:"issueTime"`
	ValidTimeFrom int64    `json:"validTimeFrom"`
	ValidTimeTo   int64    `json:"validTimeTo"`
	RawTAF        string   `json:"rawTAF"`
	Lat           *float64 `json:"lat"`
	Lon           *float64 `json:"lon"`
}

type noaaAirSigmet struct {
	ICAOID        string `json:"icaoId"`
	SeriesID      string `json:"seriesId"`
	AirSigmetType string `json:"airSigmetType"`
	Hazard        string `json:"hazard"`
	ValidTimeFrom int64  `json:"validTimeFrom"`
	ValidTimeTo   int64  `json:"validTimeTo"`
	RawAirSigmet  string `json:"rawAirSigmet"`
	Coords        []struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coords"`
}

// FetchMETARs retrieves the latest observations for the station. Records are
// returned untagged; the fetcher applies the provenance tag.
func (c *NOAAClient) FetchMETARs(ctx context.Context, icao string) ([]aviation.Observation, error) {
	endpoint := c.baseURL + "/metar?ids=" + url.QueryEscape(icao) + "&format=json"

	var raw []noaaMETAR
	if err := doGet(ctx, c.client, endpoint, nil, &raw); err != nil {
		return nil, fmt.Errorf("noaa metar fetch for %s: %w", icao, err)
	}

	out := make([]aviation.Observation, 0, len(raw))
	for _, m := range raw {
		observed := parseTimestamp(m.ReportTime)
		if observed.IsZero() {
			observed = unixTime(m.ObsTime)
		}
		out = append(out, aviation.Observation{
			Station:        m.ICAOID,
			ObservedAt:     observed,
			RawText:        m.RawOb,
			TemperatureC:   m.Temp,
			DewpointC:      m.Dewp,
			WindDirDeg:     degrees(m.Wdir),
			WindSpeedKt:    intPtr(m.Wspd),
			WindGustKt:     intPtr(m.Wgst),
			Visibility:     numberOrString(m.Visib),
			AltimeterHpa:   m.Altim,
			FlightCategory: m.FltCat,
			Position:       position(m.Lat, m.Lon),
		})
	}

	return out, nil
}

// FetchTAFs retrieves the current terminal forecasts for the station.
func (c *NOAAClient) FetchTAFs(ctx context.Context, icao string) ([]aviation.Forecast, error) {
	endpoint := c.baseURL + "/taf?ids=" + url.QueryEscape(icao) + "&format=json"

	var raw []noaaTAF
	if err := doGet(ctx, c.client, endpoint, nil, &raw); err != nil {
		return nil, fmt.Errorf("noaa taf fetch for %s: %w", icao, err)
	}

	out := make([]aviation.Forecast, 0, len(raw))
	for _, f := range raw {
		out = append(out, aviation.Forecast{
			Station:   f.ICAOID,
			IssuedAt:  parseTimestamp(f.IssueTime),
			ValidFrom: unixTime(f.ValidTimeFrom),
			ValidTo:   unixTime(f.ValidTimeTo),
			RawText:   f.RawTAF,
			Position:  position(f.Lat, f.Lon),
		})
	}

	return out, nil
}

// FetchSIGMETs retrieves the active domestic SIGMETs and AIRMETs, each reduced
// to the centroid of its polygon. Advisories without a polygon are skipped.
func (c *NOAAClient) FetchSIGMETs(ctx context.Context) ([]aviation.Hazard, error) {
	endpoint := c.baseURL + "/airsigmet?format=json"

	var raw []noaaAirSigmet
	if err := doGet(ctx, c.client, endpoint, nil, &raw); err != nil {
		return nil, fmt.Errorf("noaa airsigmet fetch: %w", err)
	}

	out := make([]aviation.Hazard, 0, len(raw))
	for _, s := range raw {
		points := make([]aviation.Coordinate, 0, len(s.Coords))
		for _, p := range s.Coords {
			points = append(points, aviation.Coordinate{Lat: p.Lat, Lon: p.Lon})
		}
		center, ok := aviation.Centroid(points)
		if !ok {
			continue
		}
		out = append(out, aviation.Hazard{
			ID:        fmt.Sprintf("%s-%s-%d", s.ICAOID, s.SeriesID, s.ValidTimeFrom),
			Kind:      s.AirSigmetType,
			Name:      s.Hazard,
			Center:    center,
			Source:    aviation.SourceNOAA,
			ValidFrom: unixTime(s.ValidTimeFrom),
			ValidTo:   unixTime(s.ValidTimeTo),
			RawText:   s.RawAirSigmet,
		})
	}

	return out, nil
}

// ---- CheckWX ----

// CheckWXClient fetches decoded METARs and TAFs from the CheckWX API.
type CheckWXClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

const checkwxDefaultURL = "https://api.checkwx.com"

// NewCheckWXClient constructs a CheckWXClient with the given API key.
func NewCheckWXClient(apiKey string) *CheckWXClient {
	return &CheckWXClient{apiKey: apiKey, baseURL: checkwxDefaultURL, client: newHTTPClient()}
}

// NewCheckWXClientWithURL constructs a CheckWXClient pointing at a custom base URL.
func NewCheckWXClientWithURL(baseURL, apiKey string) *CheckWXClient {
	return &CheckWXClient{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), client: newHTTPClient()}
}

type checkwxGeometry struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat]
}

func (g *checkwxGeometry) position() *aviation.Coordinate {
	if g == nil || len(g.Coordinates) != 2 {
		return nil
	}
	return &aviation.Coordinate{Lat: g.Coordinates[1], Lon: g.Coordinates[0]}
}

type checkwxMETARResponse struct {
	Data []struct {
		ICAO        string `json:"icao"`
		Observed    string `json:"observed"`
		RawText     string `json:"raw_text"`
		Temperature *struct {
			Celsius *float64 `json:"celsius"`
		} `json:"temperature"`
		Dewpoint *struct {
			Celsius *float64 `json:"celsius"`
		} `json:"dewpoint"`
		Wind *struct {
			Degrees  *float64 `json:"degrees"`
			SpeedKts *float64 `json:"speed_kts"`
			GustKts  *float64 `json:"gust_kts"`
		} `json:"wind"`
		Visibility *struct {
			Miles any `json:"miles"`
		} `json:"visibility"`
		Barometer *struct {
			HPa *float64 `json:"hpa"`
		} `json:"barometer"`
		FlightCategory string           `json:"flight_category"`
		Geometry       *checkwxGeometry `json:"geometry"`
	} `json:"data"`
}

type checkwxTAFResponse struct {
	Data []struct {
		ICAO      string `json:"icao"`
		RawText   string `json:"raw_text"`
		Timestamp struct {
			Issued string `json:"issued"`
			From   string `json:"from"`
			To     string `json:"to"`
		} `json:"timestamp"`
		Geometry *checkwxGeometry `json:"geometry"`
	} `json:"data"`
}

func (c *CheckWXClient) header() http.Header {
	h := http.Header{}
	h.Set("X-API-Key", c.apiKey)
	return h
}

// FetchMETARs retrieves decoded observations for the station.
func (c *CheckWXClient) FetchMETARs(ctx context.Context, icao string) ([]aviation.Observation, error) {
	endpoint := c.baseURL + "/metar/" + url.PathEscape(icao) + "/decoded"

	var raw checkwxMETARResponse
	if err := doGet(ctx, c.client, endpoint, c.header(), &raw); err != nil {
		return nil, fmt.Errorf("checkwx metar fetch for %s: %w", icao, err)
	}

	out := make([]aviation.Observation, 0, len(raw.Data))
	for _, m := range raw.Data {
		obs := aviation.Observation{
			Station:        m.ICAO,
			ObservedAt:     parseTimestamp(m.Observed),
			RawText:        m.RawText,
			FlightCategory: m.FlightCategory,
			Position:       m.Geometry.position(),
		}
		if m.Temperature != nil {
			obs.TemperatureC = m.Temperature.Celsius
		}
		if m.Dewpoint != nil {
			obs.DewpointC = m.Dewpoint.Celsius
		}
		if m.Wind != nil {
			obs.WindDirDeg = intPtr(m.Wind.Degrees)
			obs.WindSpeedKt = intPtr(m.Wind.SpeedKts)
			obs.WindGustKt = intPtr(m.Wind.GustKts)
		}
		if m.Visibility != nil {
			obs.Visibility = numberOrString(m.Visibility.Miles)
		}
		if m.Barometer != nil {
			obs.AltimeterHpa = m.Barometer.HPa
		}
		out = append(out, obs)
	}

	return out, nil
}

// FetchTAFs retrieves decoded terminal forecasts for the station.
func (c *CheckWXClient) FetchTAFs(ctx context.Context, icao string) ([]aviation.Forecast, error) {
	endpoint := c.baseURL + "/taf/" + url.PathEscape(icao) + "/decoded"

	var raw checkwxTAFResponse
	if err := doGet(ctx, c.client, endpoint, c.header(), &raw); err != nil {
		return nil, fmt.Errorf("checkwx taf fetch for %s: %w", icao, err)
	}

	out := make([]aviation.Forecast, 0, len(raw.Data))
	for _, f := range raw.Data {
		out = append(out, aviation.Forecast{
			Station:   f.ICAO,
			IssuedAt:  parseTimestamp(f.Timestamp.Issued),
			ValidFrom: parseTimestamp(f.Timestamp.From),
			ValidTo:   parseTimestamp(f.Timestamp.To),
			RawText:   f.RawText,
			Position:  f.Geometry.position(),
		})
	}

	return out, nil
}
