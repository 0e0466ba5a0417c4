package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/neexbeast/flightdeck/internal/flight"
)

// CreateOperator inserts a new operator. A duplicate ICAO code returns ErrConflict.
func (r *Repository) CreateOperator(ctx context.Context, op flight.Operator) error {
	const q = `
		INSERT INTO operators (id, name, icao_code, created_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.q.Exec(ctx, q, op.ID, op.Name, op.ICAOCode, op.CreatedAt); err != nil {
		return wrapWriteErr(err, "inserting operator %s", op.ICAOCode)
	}
	return nil
}

// GetOperator retrieves an operator by ID.
// Returns nil, nil when the operator is not found.
func (r *Repository) GetOperator(ctx context.Context, id uuid.UUID) (*flight.Operator, error) {
	const q = `SELECT id, name, icao_code, created_at FROM operators WHERE id = $1`

	var op flight.Operator
	err := r.q.QueryRow(ctx, q, id).Scan(&op.ID, &op.Name, &op.ICAOCode, &op.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying operator %s: %w", id, err)
	}
	return &op, nil
}

const flightColumns = `id, operator_id, callsign, origin, destination, aircraft_type,
	scheduled_departure, scheduled_arrival, status, route_distance_nm, created_at, updated_at`

func scanFlight(row pgx.Row) (*flight.Flight, error) {
	var f flight.Flight
	var status string
	if err := row.Scan(
		&f.ID,
		&f.OperatorID,
		&f.Callsign,
		&f.Origin,
		&f.Destination,
		&f.AircraftType,
		&f.ScheduledDeparture,
		&f.ScheduledArrival,
		&status,
		&f.RouteDistanceNm,
		&f.CreatedAt,
		&f.UpdatedAt,
	); err != nil {
		return nil, err
	}
	f.Status = flight.Status(status)
	return &f, nil
}

// CreateFlight inserts a new flight. An unknown operator returns ErrConflict.
func (r *Repository) CreateFlight(ctx context.Context, f flight.Flight) error {
	q := `INSERT INTO flights (` + flightColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	if _, err := r.q.Exec(ctx, q,
		f.ID, f.OperatorID, f.Callsign, f.Origin, f.Destination, f.AircraftType,
		f.ScheduledDeparture, f.ScheduledArrival, string(f.Status), f.RouteDistanceNm, f.CreatedAt, f.UpdatedAt,
	); err != nil {
		return wrapWriteErr(err, "inserting flight %s", f.Callsign)
	}
	return nil
}

// GetFlight retrieves a flight by ID.
// Returns nil, nil when the flight is not found.
func (r *Repository) GetFlight(ctx context.Context, id uuid.UUID) (*flight.Flight, error) {
	q := `SELECT ` + flightColumns + ` FROM flights WHERE id = $1`

	f, err := scanFlight(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying flight %s: %w", id, err)
	}
	return f, nil
}

// ListFlightsByOperator returns an operator's flights ordered by scheduled departure.
func (r *Repository) ListFlightsByOperator(ctx context.Context, operatorID uuid.UUID) ([]flight.Flight, error) {
	q := `SELECT ` + flightColumns + ` FROM flights WHERE operator_id = $1 ORDER BY scheduled_departure, id`

	rows, err := r.q.Query(ctx, q, operatorID)
	if err != nil {
		return nil, fmt.Errorf("querying flights for operator %s: %w", operatorID, err)
	}
	defer rows.Close()

	results := []flight.Flight{}
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning flight row: %w", err)
		}
		results = append(results, *f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating flight rows: %w", err)
	}

	return results, nil
}
