package weather_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/flightdeck/internal/weather"
)

func noaaMux(t *testing.T) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/metar", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{
				"icaoId":     r.URL.Query().Get("ids"),
				"reportTime": "2025-06-01T14:51:00.000Z",
				"obsTime":    1748789460,
				"temp":       22.8,
				"dewp":       nil,
				"wdir":       "VRB",
				"wspd":       4,
				"visib":      "10+",
				"altim":      1015.2,
				"rawOb":      "KJFK 011451Z VRB04KT 10SM FEW250 23/12 A2998",
				"lat":        40.6413,
				"lon":        -73.7781,
				"fltCat":     "VFR",
			},
		})
	})
	mux.HandleFunc("/taf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{
				"icaoId":        r.URL.Query().Get("ids"),
				"issueTime":     "2025-06-01T11:38:00.000Z",
				"validTimeFrom": 1748779200,
				"validTimeTo":   1748887200,
				"rawTAF":        "TAF KJFK 011138Z 0112/0218 20008KT P6SM FEW250",
				"lat":           40.6413,
				"lon":           -73.7781,
			},
		})
	})
	mux.HandleFunc("/airsigmet", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{
			// Square centred on EWR.
			sigmet("KKCI", "1E", "CONVECTIVE", 40.6925, -74.1687),
			// Square centred on PHL.
			sigmet("KKCI", "2E", "TURB", 39.8744, -75.2424),
			// Square centred on ORD.
			sigmet("KKCI", "3C", "ICE", 41.9786, -87.9048),
			// No polygon.
			{"icaoId": "KKCI", "seriesId": "4E", "airSigmetType": "SIGMET", "hazard": "ASH", "coords": []any{}},
		})
	})
	return mux
}

func sigmet(office, series, hazard string, lat, lon float64) map[string]any {
	return map[string]any{
		"icaoId":        office,
		"seriesId":      series,
		"airSigmetType": "SIGMET",
		"hazard":        hazard,
		"validTimeFrom": 1748786400,
		"validTimeTo":   1748800800,
		"rawAirSigmet":  "SIGMET " + series,
		"coords": []map[string]float64{
			{"lat": lat - 0.5, "lon": lon - 0.5},
			{"lat": lat - 0.5, "lon": lon + 0.5},
			{"lat": lat + 0.5, "lon": lon + 0.5},
			{"lat": lat + 0.5, "lon": lon - 0.5},
		},
	}
}

func checkwxMux(t *testing.T, apiKey string) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	requireKey := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-Key") != apiKey {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc("/metar/KJFK/decoded", requireKey(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": 1,
			"data": []map[string]any{
				{
					"icao":            "KJFK",
					"observed":        "2025-06-01T14:51:00",
					"raw_text":        "KJFK 011451Z 31012G20KT 10SM FEW250 23/12 A2998",
					"temperature":     map[string]any{"celsius": 23},
					"dewpoint":        map[string]any{"celsius": 12},
					"wind":            map[string]any{"degrees": 310, "speed_kts": 12, "gust_kts": 20},
					"visibility":      map[string]any{"miles": "10"},
					"barometer":       map[string]any{"hpa": 1015},
					"flight_category": "VFR",
					"geometry":        map[string]any{"coordinates": []float64{-73.7781, 40.6413}},
				},
			},
		})
	}))
	mux.HandleFunc("/taf/KJFK/decoded", requireKey(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": 1,
			"data": []map[string]any{
				{
					"icao":     "KJFK",
					"raw_text": "TAF KJFK 011138Z 0112/0218 20008KT P6SM FEW250",
					"timestamp": map[string]string{
						"issued": "2025-06-01T11:38:00",
						"from":   "2025-06-01T12:00:00",
						"to":     "2025-06-02T18:00:00",
					},
				},
			},
		})
	}))
	return mux
}

func TestNOAAClient_FetchMETARs(t *testing.T) {
	srv := httptest.NewServer(noaaMux(t))
	defer srv.Close()

	c := weather.NewNOAAClientWithURL(srv.URL)
	obs, err := c.FetchMETARs(context.Background(), "KJFK")
	require.NoError(t, err)
	require.Len(t, obs, 1)

	o := obs[0]
	assert.Equal(t, "KJFK", o.Station)
	assert.Equal(t, time.Date(2025, 6, 1, 14, 51, 0, 0, time.UTC), o.ObservedAt)
	require.NotNil(t, o.TemperatureC)
	assert.Equal(t, 22.8, *o.TemperatureC)
	assert.Nil(t, o.DewpointC)
	assert.Nil(t, o.WindDirDeg, "VRB wind has no direction")
	require.NotNil(t, o.WindSpeedKt)
	assert.Equal(t, 4, *o.WindSpeedKt)
	assert.Equal(t, "10+", o.Visibility)
	assert.Equal(t, "VFR", o.FlightCategory)
	require.NotNil(t, o.Position)
	assert.Equal(t, 40.6413, o.Position.Lat)
	assert.Empty(t, o.Source, "clients return untagged records")
}

func TestNOAAClient_FetchTAFs(t *testing.T) {
	srv := httptest.NewServer(noaaMux(t))
	defer srv.Close()

	c := weather.NewNOAAClientWithURL(srv.URL)
	tafs, err := c.FetchTAFs(context.Background(), "KJFK")
	require.NoError(t, err)
	require.Len(t, tafs, 1)
	assert.Equal(t, time.Unix(1748779200, 0).UTC(), tafs[0].ValidFrom)
	assert.Equal(t, time.Date(2025, 6, 1, 11, 38, 0, 0, time.UTC), tafs[0].IssuedAt)
}

func TestNOAAClient_FetchSIGMETs(t *testing.T) {
	srv := httptest.NewServer(noaaMux(t))
	defer srv.Close()

	c := weather.NewNOAAClientWithURL(srv.URL)
	hz, err := c.FetchSIGMETs(context.Background())
	require.NoError(t, err)
	require.Len(t, hz, 3, "polygon-less advisory is skipped")

	assert.Equal(t, "CONVECTIVE", hz[0].Name)
	assert.Equal(t, "SIGMET", hz[0].Kind)
	assert.InDelta(t, 40.6925, hz[0].Center.Lat, 1e-9)
	assert.InDelta(t, -74.1687, hz[0].Center.Lon, 1e-9)
	assert.Equal(t, "KKCI-1E-1748786400", hz[0].ID)
}

func TestNOAAClient_FetchSIGMETs_ClosedRingAndAntimeridian(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"icaoId":"KKCI","seriesId":"5E","airSigmetType":"SIGMET","hazard":"TURB","validTimeFrom":1748786400,
			 "coords":[{"lat":40,"lon":-74},{"lat":42,"lon":-74},{"lat":42,"lon":-72},{"lat":40,"lon":-72},{"lat":40,"lon":-74}]},
			{"icaoId":"PAWU","seriesId":"1A","airSigmetType":"SIGMET","hazard":"ICE","validTimeFrom":1748786400,
			 "coords":[{"lat":51,"lon":179},{"lat":51,"lon":-179},{"lat":53,"lon":-179},{"lat":53,"lon":179},{"lat":51,"lon":179}]}
		]`))
	}))
	defer srv.Close()

	c := weather.NewNOAAClientWithURL(srv.URL)
	hz, err := c.FetchSIGMETs(context.Background())
	require.NoError(t, err)
	require.Len(t, hz, 2)

	assert.InDelta(t, 41.0, hz[0].Center.Lat, 1e-9, "repeated closing vertex is not double counted")
	assert.InDelta(t, -73.0, hz[0].Center.Lon, 1e-9)

	assert.InDelta(t, 52.0, hz[1].Center.Lat, 1e-9)
	assert.InDelta(t, -180.0, hz[1].Center.Lon, 1e-9, "Bering polygon stays on the antimeridian")
}

func TestNOAAClient_NumericVisibilityAndDirection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"icaoId":"EGLL","obsTime":1748789460,"wdir":270,"visib":4.97,"rawOb":"EGLL"}]`))
	}))
	defer srv.Close()

	c := weather.NewNOAAClientWithURL(srv.URL)
	obs, err := c.FetchMETARs(context.Background(), "EGLL")
	require.NoError(t, err)
	require.Len(t, obs, 1)
	require.NotNil(t, obs[0].WindDirDeg)
	assert.Equal(t, 270, *obs[0].WindDirDeg)
	assert.Equal(t, "4.97", obs[0].Visibility)
	assert.Equal(t, time.Unix(1748789460, 0).UTC(), obs[0].ObservedAt, "falls back to obsTime")
	assert.Nil(t, obs[0].Position)
}

func TestNOAAClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "err", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := weather.NewNOAAClientWithURL(srv.URL)
	_, err := c.FetchMETARs(context.Background(), "KJFK")
	require.Error(t, err)
	_, err = c.FetchSIGMETs(context.Background())
	require.Error(t, err)
}

func TestCheckWXClient_FetchMETARs(t *testing.T) {
	srv := httptest.NewServer(checkwxMux(t, "secret"))
	defer srv.Close()

	c := weather.NewCheckWXClientWithURL(srv.URL, "secret")
	obs, err := c.FetchMETARs(context.Background(), "KJFK")
	require.NoError(t, err)
	require.Len(t, obs, 1)

	o := obs[0]
	assert.Equal(t, time.Date(2025, 6, 1, 14, 51, 0, 0, time.UTC), o.ObservedAt)
	require.NotNil(t, o.WindDirDeg)
	assert.Equal(t, 310, *o.WindDirDeg)
	require.NotNil(t, o.WindGustKt)
	assert.Equal(t, 20, *o.WindGustKt)
	assert.Equal(t, "10", o.Visibility)
	require.NotNil(t, o.AltimeterHpa)
	assert.Equal(t, 1015.0, *o.AltimeterHpa)
	require.NotNil(t, o.Position)
	assert.Equal(t, -73.7781, o.Position.Lon)
}

func TestCheckWXClient_FetchTAFs(t *testing.T) {
	srv := httptest.NewServer(checkwxMux(t, "secret"))
	defer srv.Close()

	c := weather.NewCheckWXClientWithURL(srv.URL, "secret")
	tafs, err := c.FetchTAFs(context.Background(), "KJFK")
	require.NoError(t, err)
	require.Len(t, tafs, 1)
	assert.Equal(t, time.Date(2025, 6, 2, 18, 0, 0, 0, time.UTC), tafs[0].ValidTo)
	assert.Nil(t, tafs[0].Position)
}

func TestCheckWXClient_WrongKey(t *testing.T) {
	srv := httptest.NewServer(checkwxMux(t, "secret"))
	defer srv.Close()

	c := weather.NewCheckWXClientWithURL(srv.URL, "nope")
	_, err := c.FetchMETARs(context.Background(), "KJFK")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
