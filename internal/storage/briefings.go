package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/neexbeast/flightdeck/internal/aviation"
	"github.com/neexbeast/flightdeck/internal/flight"
	"github.com/neexbeast/flightdeck/internal/weather"
)

// GetBriefing retrieves the stored briefing for a station.
// Returns nil, nil when no briefing has been stored.
func (r *Repository) GetBriefing(ctx context.Context, icao string) (*weather.Briefing, error) {
	const q = `SELECT data FROM weather_briefings WHERE station = $1`

	var dataJSON []byte
	if err := r.q.QueryRow(ctx, q, flight.NormalizeICAO(icao)).Scan(&dataJSON); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying briefing for %s: %w", icao, err)
	}

	var b weather.Briefing
	if err := json.Unmarshal(dataJSON, &b); err != nil {
		return nil, fmt.Errorf("unmarshaling briefing for %s: %w", icao, err)
	}
	return &b, nil
}

// UpsertBriefing inserts or replaces the stored briefing for b.Station.
func (r *Repository) UpsertBriefing(ctx context.Context, b *weather.Briefing) error {
	dataJSON, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshaling briefing for %s: %w", b.Station, err)
	}

	const q = `
		INSERT INTO weather_briefings (station, data, fetched_at, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (station) DO UPDATE
		SET data       = EXCLUDED.data,
		    fetched_at = EXCLUDED.fetched_at,
		    updated_at = EXCLUDED.updated_at
	`

	if _, err := r.q.Exec(ctx, q, b.Station, dataJSON, b.FetchedAt); err != nil {
		return fmt.Errorf("upserting briefing for %s: %w", b.Station, err)
	}
	return nil
}

// ListBriefingsBySeverity returns stored briefings that contain at least one
// hazard of the given severity. Uses the JSONB @> containment operator.
func (r *Repository) ListBriefingsBySeverity(ctx context.Context, severity aviation.Severity) ([]*weather.Briefing, error) {
	filter, err := json.Marshal(map[string]any{
		"hazards": []map[string]any{{"severity": severity}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling JSONB filter: %w", err)
	}

	const q = `
		SELECT data
		FROM weather_briefings
		WHERE data @> $1::jsonb
		ORDER BY station
	`

	rows, err := r.q.Query(ctx, q, string(filter))
	if err != nil {
		return nil, fmt.Errorf("querying briefings by severity: %w", err)
	}
	defer rows.Close()

	results := []*weather.Briefing{}
	for rows.Next() {
		var dataJSON []byte
		if err := rows.Scan(&dataJSON); err != nil {
			return nil, fmt.Errorf("scanning briefing row: %w", err)
		}

		var b weather.Briefing
		if err := json.Unmarshal(dataJSON, &b); err != nil {
			return nil, fmt.Errorf("unmarshaling briefing: %w", err)
		}
		results = append(results, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating briefing rows: %w", err)
	}

	return results, nil
}
