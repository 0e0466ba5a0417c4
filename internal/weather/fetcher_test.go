package weather_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/flightdeck/internal/aviation"
	"github.com/neexbeast/flightdeck/internal/observability"
	"github.com/neexbeast/flightdeck/internal/weather"
)

var fetchedAt = time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)

// mockNOAA implements the NOAA provider with func fields.
type mockNOAA struct {
	metars  func(ctx context.Context, icao string) ([]aviation.Observation, error)
	tafs    func(ctx context.Context, icao string) ([]aviation.Forecast, error)
	sigmets func(ctx context.Context) ([]aviation.Hazard, error)
}

func (m *mockNOAA) FetchMETARs(ctx context.Context, icao string) ([]aviation.Observation, error) {
	return m.metars(ctx, icao)
}

func (m *mockNOAA) FetchTAFs(ctx context.Context, icao string) ([]aviation.Forecast, error) {
	return m.tafs(ctx, icao)
}

func (m *mockNOAA) FetchSIGMETs(ctx context.Context) ([]aviation.Hazard, error) {
	return m.sigmets(ctx)
}

func buildTestFetcher(noaaURL, checkwxURL string, m *observability.Metrics) *weather.Fetcher {
	var cwx *weather.CheckWXClient
	if checkwxURL != "" {
		cwx = weather.NewCheckWXClientWithURL(checkwxURL, "secret")
	}
	if cwx == nil {
		return weather.NewFetcherWithClients(weather.NewNOAAClientWithURL(noaaURL), nil, 0,
			clockwork.NewFakeClockAt(fetchedAt), nil, m)
	}
	return weather.NewFetcherWithClients(weather.NewNOAAClientWithURL(noaaURL), cwx, 0,
		clockwork.NewFakeClockAt(fetchedAt), nil, m)
}

func TestFetchBriefing_Success(t *testing.T) {
	noaaSrv := httptest.NewServer(noaaMux(t))
	defer noaaSrv.Close()
	cwxSrv := httptest.NewServer(checkwxMux(t, "secret"))
	defer cwxSrv.Close()

	m := observability.NewMetricsForTesting()
	f := buildTestFetcher(noaaSrv.URL, cwxSrv.URL, m)

	b, err := f.FetchBriefing(context.Background(), "kjfk", nil)
	require.NoError(t, err)
	require.NotNil(t, b)

	assert.Equal(t, "KJFK", b.Station)
	assert.Equal(t, fetchedAt, b.FetchedAt)

	require.Len(t, b.Observations, 2)
	assert.Equal(t, aviation.SourceNOAA, b.Observations[0].Source, "NOAA records come first")
	assert.Equal(t, aviation.SourceCheckWX, b.Observations[1].Source)
	require.Len(t, b.Forecasts, 2)
	assert.Equal(t, aviation.SourceNOAA, b.Forecasts[0].Source)
	assert.Equal(t, aviation.SourceCheckWX, b.Forecasts[1].Source)
	assert.Equal(t, []aviation.WeatherSource{aviation.SourceNOAA, aviation.SourceCheckWX}, b.Sources)

	require.NotNil(t, b.Position, "position falls back to the first observation")
	assert.Equal(t, 40.6413, b.Position.Lat)

	// ORD is beyond the default 500 nm range.
	require.Len(t, b.Hazards, 2)
	assert.Equal(t, "CONVECTIVE", b.Hazards[0].Hazard.Name)
	assert.Equal(t, aviation.SeverityHigh, b.Hazards[0].Severity)
	assert.Equal(t, "TURB", b.Hazards[1].Hazard.Name)
	assert.Equal(t, aviation.SeverityModerate, b.Hazards[1].Severity)
	assert.Equal(t, aviation.SeverityHigh, b.HighestSeverity)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderRequests.WithLabelValues("NOAA", "metar", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderRequests.WithLabelValues("CheckWX", "taf", "success")))
}

func TestFetchBriefing_ExplicitPositionAndRange(t *testing.T) {
	noaaSrv := httptest.NewServer(noaaMux(t))
	defer noaaSrv.Close()

	ord := &aviation.Coordinate{Lat: 41.9786, Lon: -87.9048}
	f := weather.NewFetcherWithClients(weather.NewNOAAClientWithURL(noaaSrv.URL), nil, 50,
		clockwork.NewFakeClockAt(fetchedAt), nil, observability.NewMetricsForTesting())

	b, err := f.FetchBriefing(context.Background(), "KORD", ord)
	require.NoError(t, err)

	assert.Equal(t, ord, b.Position)
	require.Len(t, b.Hazards, 1)
	assert.Equal(t, "ICE", b.Hazards[0].Hazard.Name)
	assert.InDelta(t, 0, b.Hazards[0].DistanceNm, 1e-6)
	assert.Equal(t, []aviation.WeatherSource{aviation.SourceNOAA}, b.Sources)
}

func TestFetchBriefing_CheckWXFails_PartialData(t *testing.T) {
	noaaSrv := httptest.NewServer(noaaMux(t))
	defer noaaSrv.Close()
	badSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer badSrv.Close()

	m := observability.NewMetricsForTesting()
	f := buildTestFetcher(noaaSrv.URL, badSrv.URL, m)

	b, err := f.FetchBriefing(context.Background(), "KJFK", nil)
	require.NoError(t, err)

	require.Len(t, b.Observations, 1)
	assert.Equal(t, aviation.SourceNOAA, b.Observations[0].Source)
	assert.Equal(t, []aviation.WeatherSource{aviation.SourceNOAA}, b.Sources)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderRequests.WithLabelValues("CheckWX", "metar", "error")))
}

func TestFetchBriefing_AllProvidersFail_ReturnsEmpty(t *testing.T) {
	badSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad", http.StatusInternalServerError)
	}))
	defer badSrv.Close()

	f := buildTestFetcher(badSrv.URL, badSrv.URL, observability.NewMetricsForTesting())

	b, err := f.FetchBriefing(context.Background(), "KJFK", nil)
	require.NoError(t, err)
	require.NotNil(t, b)

	assert.NotNil(t, b.Observations)
	assert.Empty(t, b.Observations)
	assert.Empty(t, b.Forecasts)
	assert.Empty(t, b.Hazards)
	assert.Empty(t, b.Sources)
	assert.Nil(t, b.Position)
	assert.Empty(t, b.HighestSeverity)
}

func TestFetchBriefing_NoPosition_NoHazards(t *testing.T) {
	noaa := &mockNOAA{
		metars: func(ctx context.Context, icao string) ([]aviation.Observation, error) {
			return []aviation.Observation{{Station: icao, RawText: "no coords"}}, nil
		},
		tafs: func(ctx context.Context, icao string) ([]aviation.Forecast, error) {
			return nil, errors.New("down")
		},
		sigmets: func(ctx context.Context) ([]aviation.Hazard, error) {
			return []aviation.Hazard{{ID: "x", Center: aviation.Coordinate{Lat: 1, Lon: 1}}}, nil
		},
	}
	f := weather.NewFetcherWithClients(noaa, nil, 0, clockwork.NewFakeClockAt(fetchedAt), nil,
		observability.NewMetricsForTesting())

	b, err := f.FetchBriefing(context.Background(), "ZZZZ", nil)
	require.NoError(t, err)
	assert.Nil(t, b.Position)
	assert.Empty(t, b.Hazards)
	require.Len(t, b.Observations, 1)
	assert.Equal(t, aviation.SourceNOAA, b.Observations[0].Source)
}

func TestFetchBriefing_PanicIsReturnedAsError(t *testing.T) {
	noaa := &mockNOAA{
		metars: func(ctx context.Context, icao string) ([]aviation.Observation, error) {
			panic("boom")
		},
		tafs: func(ctx context.Context, icao string) ([]aviation.Forecast, error) {
			return nil, nil
		},
		sigmets: func(ctx context.Context) ([]aviation.Hazard, error) {
			return nil, nil
		},
	}
	f := weather.NewFetcherWithClients(noaa, nil, 0, clockwork.NewFakeClockAt(fetchedAt), nil,
		observability.NewMetricsForTesting())

	b, err := f.FetchBriefing(context.Background(), "KJFK", nil)
	require.Error(t, err)
	assert.Nil(t, b)
	assert.Contains(t, err.Error(), "panicked")
}

func TestFetchBriefing_Timeout(t *testing.T) {
	slowSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer slowSrv.Close()

	f := buildTestFetcher(slowSrv.URL, "", observability.NewMetricsForTesting())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// Timeouts are provider failures, not briefing failures.
	b, err := f.FetchBriefing(ctx, "KJFK", nil)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Empty(t, b.Observations)
}

func TestFetchBriefing_NilMetrics(t *testing.T) {
	noaa := &mockNOAA{
		metars: func(ctx context.Context, icao string) ([]aviation.Observation, error) {
			return []aviation.Observation{{Station: icao, RawText: "METAR " + icao}}, nil
		},
		tafs: func(ctx context.Context, icao string) ([]aviation.Forecast, error) {
			return nil, nil
		},
		sigmets: func(ctx context.Context) ([]aviation.Hazard, error) {
			return nil, errors.New("down")
		},
	}
	f := weather.NewFetcherWithClients(noaa, nil, 0, clockwork.NewFakeClockAt(fetchedAt), nil, nil)

	b, err := f.FetchBriefing(context.Background(), "KJFK", nil)
	require.NoError(t, err)
	require.Len(t, b.Observations, 1)
	assert.Equal(t, []aviation.WeatherSource{aviation.SourceNOAA}, b.Sources)
}
