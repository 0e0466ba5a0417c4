package refresh

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/neexbeast/flightdeck/internal/aviation"
	"github.com/neexbeast/flightdeck/internal/flight"
	"github.com/neexbeast/flightdeck/internal/observability"
	"github.com/neexbeast/flightdeck/internal/publish"
	"github.com/neexbeast/flightdeck/internal/weather"
)

const (
	TriggerAPI      = "api"
	TriggerSchedule = "schedule"
)

// briefingFetcher is satisfied by *weather.Fetcher.
type briefingFetcher interface {
	FetchBriefing(ctx context.Context, icao string, position *aviation.Coordinate) (*weather.Briefing, error)
}

// store is satisfied by *storage.Repository.
type store interface {
	GetAirport(ctx context.Context, icao string) (*flight.Airport, error)
	ListTrackedAirports(ctx context.Context) ([]flight.Airport, error)
	UpsertBriefing(ctx context.Context, b *weather.Briefing) error
}

// briefingCache is satisfied by *cache.Cache.
type briefingCache interface {
	Set(ctx context.Context, icao string, b *weather.Briefing) error
	Delete(ctx context.Context, icao string) error
}

// Service fetches a fresh briefing for a station and fans it out to the
// database, the cache and the observation stream.
type Service struct {
	fetcher   briefingFetcher
	store     store
	cache     briefingCache
	publisher publish.Publisher
	metrics   *observability.Metrics
	clock     clockwork.Clock
	log       *slog.Logger
}

// NewService constructs a Service. A nil publisher disables publishing.
func NewService(
	fetcher briefingFetcher,
	st store,
	c briefingCache,
	publisher publish.Publisher,
	metrics *observability.Metrics,
	clock clockwork.Clock,
	log *slog.Logger,
) *Service {
	if publisher == nil {
		publisher = publish.Nop{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		fetcher:   fetcher,
		store:     st,
		cache:     c,
		publisher: publisher,
		metrics:   metrics,
		clock:     clock,
		log:       log,
	}
}

// Refresh rebuilds and stores the briefing for icao on behalf of an API caller.
func (s *Service) Refresh(ctx context.Context, icao string) (*weather.Briefing, error) {
	return s.refresh(ctx, icao, TriggerAPI)
}

func (s *Service) refresh(ctx context.Context, icao, trigger string) (b *weather.Briefing, err error) {
	icao = flight.NormalizeICAO(icao)
	start := s.clock.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.Refreshes.WithLabelValues(trigger, observability.Outcome(err)).Inc()
		}
	}()

	// Without a stored airport the fetcher falls back to the reported station position.
	var position *aviation.Coordinate
	airport, lookupErr := s.store.GetAirport(ctx, icao)
	if lookupErr != nil {
		s.log.Warn("airport lookup failed", "icao", icao, "err", lookupErr)
	} else if airport != nil {
		p := airport.Position
		position = &p
	}

	b, err = s.fetcher.FetchBriefing(ctx, icao, position)
	if err != nil {
		return nil, fmt.Errorf("fetching briefing for %s: %w", icao, err)
	}

	if err := s.store.UpsertBriefing(ctx, b); err != nil {
		return nil, fmt.Errorf("storing briefing for %s: %w", icao, err)
	}

	if err := s.cache.Delete(ctx, icao); err != nil {
		s.log.Warn("cache invalidate failed", "icao", icao, "err", err)
	}
	if err := s.cache.Set(ctx, icao, b); err != nil {
		s.log.Warn("cache set failed", "icao", icao, "err", err)
	}

	if err := s.publisher.PublishObservations(ctx, b.Observations); err != nil {
		s.log.Warn("observation publish failed", "icao", icao, "err", err)
	}

	s.log.Info("briefing refreshed",
		"icao", icao,
		"trigger", trigger,
		"observations", len(b.Observations),
		"hazards", len(b.Hazards),
		"highest_severity", b.HighestSeverity,
		"duration_ms", s.clock.Since(start).Milliseconds(),
	)
	return b, nil
}
