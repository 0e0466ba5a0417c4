package weather

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/flightdeck/internal/aviation"
	"github.com/neexbeast/flightdeck/internal/observability"
)

// stationFetcher is the interface satisfied by both provider clients.
type stationFetcher interface {
	FetchMETARs(ctx context.Context, icao string) ([]aviation.Observation, error)
	FetchTAFs(ctx context.Context, icao string) ([]aviation.Forecast, error)
}

// hazardFetcher is the interface satisfied by NOAAClient.
type hazardFetcher interface {
	stationFetcher
	FetchSIGMETs(ctx context.Context) ([]aviation.Hazard, error)
}

// Fetcher builds briefings by querying every configured provider in parallel.
type Fetcher struct {
	noaa          hazardFetcher
	checkwx       stationFetcher // nil when CheckWX is not configured
	hazardRangeNm float64
	clock         clockwork.Clock
	metrics       *observability.Metrics
	log           *slog.Logger
}

// NewFetcher constructs a Fetcher from provider settings.
func NewFetcher(cfg Config, log *slog.Logger, metrics *observability.Metrics) *Fetcher {
	noaa := NewNOAAClient()
	if cfg.NOAABaseURL != "" {
		noaa = NewNOAAClientWithURL(cfg.NOAABaseURL)
	}

	var checkwx stationFetcher
	if cfg.CheckWXAPIKey != "" {
		if cfg.CheckWXBaseURL != "" {
			checkwx = NewCheckWXClientWithURL(cfg.CheckWXBaseURL, cfg.CheckWXAPIKey)
		} else {
			checkwx = NewCheckWXClient(cfg.CheckWXAPIKey)
		}
	}

	return NewFetcherWithClients(noaa, checkwx, cfg.HazardRangeNm, clockwork.NewRealClock(), log, metrics)
}

// NewFetcherWithClients constructs a Fetcher with injectable clients and clock (used in tests).
// A nil checkwx disables the secondary provider. A non-positive range uses DefaultHazardRangeNm.
// Nil metrics are replaced by an unregistered set.
func NewFetcherWithClients(
	noaa hazardFetcher,
	checkwx stationFetcher,
	hazardRangeNm float64,
	clock clockwork.Clock,
	log *slog.Logger,
	metrics *observability.Metrics,
) *Fetcher {
	if hazardRangeNm <= 0 {
		hazardRangeNm = DefaultHazardRangeNm
	}
	if log == nil {
		log = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}
	return &Fetcher{
		noaa:          noaa,
		checkwx:       checkwx,
		hazardRangeNm: hazardRangeNm,
		clock:         clock,
		metrics:       metrics,
		log:           log,
	}
}

// FetchBriefing fetches observations, forecasts and hazards for icao in parallel.
// Provider failures are non-fatal: partial data is returned with failures logged.
// position, when non-nil, is the point hazards are measured from; otherwise the
// first observation that reports a position is used.
func (f *Fetcher) FetchBriefing(ctx context.Context, icao string, position *aviation.Coordinate) (*Briefing, error) {
	icao = strings.ToUpper(strings.TrimSpace(icao))
	g, gCtx := errgroup.WithContext(ctx)

	var (
		noaaObs, checkwxObs []aviation.Observation
		noaaTAF, checkwxTAF []aviation.Forecast
		sigmets             []aviation.Hazard
		noaaOK, checkwxOK   [3]bool
	)

	f.goFetch(g, aviation.SourceNOAA, "metar", icao, func() error {
		obs, err := f.noaa.FetchMETARs(gCtx, icao)
		noaaObs, noaaOK[0] = aviation.TagObservations(obs, aviation.SourceNOAA), err == nil
		return err
	})
	f.goFetch(g, aviation.SourceNOAA, "taf", icao, func() error {
		tafs, err := f.noaa.FetchTAFs(gCtx, icao)
		noaaTAF, noaaOK[1] = aviation.TagForecasts(tafs, aviation.SourceNOAA), err == nil
		return err
	})
	f.goFetch(g, aviation.SourceNOAA, "sigmet", icao, func() error {
		hz, err := f.noaa.FetchSIGMETs(gCtx)
		sigmets, noaaOK[2] = hz, err == nil
		return err
	})

	if f.checkwx != nil {
		f.goFetch(g, aviation.SourceCheckWX, "metar", icao, func() error {
			obs, err := f.checkwx.FetchMETARs(gCtx, icao)
			checkwxObs, checkwxOK[0] = aviation.TagObservations(obs, aviation.SourceCheckWX), err == nil
			return err
		})
		f.goFetch(g, aviation.SourceCheckWX, "taf", icao, func() error {
			tafs, err := f.checkwx.FetchTAFs(gCtx, icao)
			checkwxTAF, checkwxOK[1] = aviation.TagForecasts(tafs, aviation.SourceCheckWX), err == nil
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetching briefing for %s: %w", icao, err)
	}

	b := &Briefing{
		Station:      icao,
		Position:     position,
		Observations: append(noaaObs, checkwxObs...),
		Forecasts:    append(noaaTAF, checkwxTAF...),
		Hazards:      []aviation.HazardAssessment{},
		Sources:      []aviation.WeatherSource{},
		FetchedAt:    f.clock.Now().UTC(),
	}
	if b.Observations == nil {
		b.Observations = []aviation.Observation{}
	}
	if b.Forecasts == nil {
		b.Forecasts = []aviation.Forecast{}
	}

	if anyTrue(noaaOK[:]) {
		b.Sources = append(b.Sources, aviation.SourceNOAA)
	}
	if anyTrue(checkwxOK[:]) {
		b.Sources = append(b.Sources, aviation.SourceCheckWX)
	}

	if b.Position == nil {
		for _, o := range b.Observations {
			if o.Position != nil {
				p := *o.Position
				b.Position = &p
				break
			}
		}
	}

	if b.Position != nil {
		for _, a := range aviation.AssessHazards(*b.Position, sigmets) {
			if a.DistanceNm <= f.hazardRangeNm {
				b.Hazards = append(b.Hazards, a)
			}
		}
		if sev, ok := aviation.HighestSeverity(b.Hazards); ok {
			b.HighestSeverity = sev
		}
	}

	return b, nil
}

// goFetch runs fetch on g, recording metrics and turning a panic into a group error.
// A returned fetch error is logged and swallowed.
func (f *Fetcher) goFetch(g *errgroup.Group, source aviation.WeatherSource, kind, icao string, fetch func() error) {
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				f.log.Error("provider fetch panicked", "source", source, "kind", kind, "recover", r)
				err = fmt.Errorf("%s %s fetch panicked: %v", source, kind, r)
			}
		}()

		start := f.clock.Now()
		fetchErr := fetch()
		f.metrics.ProviderDuration.WithLabelValues(string(source)).Observe(f.clock.Since(start).Seconds())
		f.metrics.ProviderRequests.WithLabelValues(string(source), kind, observability.Outcome(fetchErr)).Inc()

		if fetchErr != nil {
			f.log.Warn("provider fetch failed", "source", source, "kind", kind, "icao", icao, "err", fetchErr)
		}
		return nil
	})
}

func anyTrue(flags []bool) bool {
	for _, ok := range flags {
		if ok {
			return true
		}
	}
	return false
}
