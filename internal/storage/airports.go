package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/neexbeast/flightdeck/internal/flight"
)

const airportColumns = `icao, name, lat, lon, timezone, elevation_ft, tracked, created_at, updated_at`

func scanAirport(row pgx.Row) (*flight.Airport, error) {
	var a flight.Airport
	if err := row.Scan(
		&a.ICAO,
		&a.Name,
		&a.Position.Lat,
		&a.Position.Lon,
		&a.Timezone,
		&a.ElevationFt,
		&a.Tracked,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAirport retrieves an airport by ICAO code.
// Returns nil, nil when the airport is not found.
func (r *Repository) GetAirport(ctx context.Context, icao string) (*flight.Airport, error) {
	q := `SELECT ` + airportColumns + ` FROM airports WHERE icao = $1`

	a, err := scanAirport(r.q.QueryRow(ctx, q, flight.NormalizeICAO(icao)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying airport %s: %w", icao, err)
	}
	return a, nil
}

// UpsertAirport inserts or updates an airport and returns the stored row.
func (r *Repository) UpsertAirport(ctx context.Context, icao string, req flight.AirportRequest) (*flight.Airport, error) {
	q := `
		INSERT INTO airports (icao, name, lat, lon, timezone, elevation_ft, tracked, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (icao) DO UPDATE
		SET name         = EXCLUDED.name,
		    lat          = EXCLUDED.lat,
		    lon          = EXCLUDED.lon,
		    timezone     = EXCLUDED.timezone,
		    elevation_ft = EXCLUDED.elevation_ft,
		    tracked      = EXCLUDED.tracked,
		    updated_at   = EXCLUDED.updated_at
		RETURNING ` + airportColumns

	icao = flight.NormalizeICAO(icao)
	a, err := scanAirport(r.q.QueryRow(ctx, q,
		icao, req.Name, req.Position.Lat, req.Position.Lon, req.Timezone, req.ElevationFt, req.Tracked,
	))
	if err != nil {
		return nil, wrapWriteErr(err, "upserting airport %s", icao)
	}
	return a, nil
}

// ListTrackedAirports returns every airport flagged for scheduled weather refresh.
func (r *Repository) ListTrackedAirports(ctx context.Context) ([]flight.Airport, error) {
	q := `SELECT ` + airportColumns + ` FROM airports WHERE tracked ORDER BY icao`

	rows, err := r.q.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying tracked airports: %w", err)
	}
	defer rows.Close()

	var results []flight.Airport
	for rows.Next() {
		a, err := scanAirport(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning airport row: %w", err)
		}
		results = append(results, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating airport rows: %w", err)
	}

	return results, nil
}
