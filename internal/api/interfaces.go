package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/neexbeast/flightdeck/internal/aviation"
	"github.com/neexbeast/flightdeck/internal/flight"
	"github.com/neexbeast/flightdeck/internal/validation"
	"github.com/neexbeast/flightdeck/internal/weather"
)

// Repo defines the storage operations needed by handlers.
type Repo interface {
	GetBriefing(ctx context.Context, icao string) (*weather.Briefing, error)
	ListBriefingsBySeverity(ctx context.Context, severity aviation.Severity) ([]*weather.Briefing, error)

	GetAirport(ctx context.Context, icao string) (*flight.Airport, error)
	UpsertAirport(ctx context.Context, icao string, req flight.AirportRequest) (*flight.Airport, error)

	CreateOperator(ctx context.Context, op flight.Operator) error
	GetOperator(ctx context.Context, id uuid.UUID) (*flight.Operator, error)

	CreateFlight(ctx context.Context, f flight.Flight) error
	GetFlight(ctx context.Context, id uuid.UUID) (*flight.Flight, error)
	ListFlightsByOperator(ctx context.Context, operatorID uuid.UUID) ([]flight.Flight, error)
}

// BriefingCache defines the cache operations needed by handlers.
type BriefingCache interface {
	Get(ctx context.Context, icao string) (*weather.Briefing, error)
	Set(ctx context.Context, icao string, b *weather.Briefing) error
}

// Refresher rebuilds a station's briefing from the providers.
type Refresher interface {
	Refresh(ctx context.Context, icao string) (*weather.Briefing, error)
}

// PayloadValidator checks and decodes request bodies.
type PayloadValidator interface {
	Decode(kind validation.Kind, body []byte, dst any) error
}

// Pinger is satisfied by anything health checks can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}
