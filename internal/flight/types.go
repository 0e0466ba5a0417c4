package flight

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/neexbeast/flightdeck/internal/aviation"
)

// Status is the lifecycle state of a flight.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Operator is an airline or charter company that runs flights.
type Operator struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	ICAOCode  string    `json:"icao_code"`
	CreatedAt time.Time `json:"created_at"`
}

// Airport is a stored aerodrome. Tracked airports get periodic weather refreshes.
type Airport struct {
	ICAO        string              `json:"icao"`
	Name        string              `json:"name"`
	Position    aviation.Coordinate `json:"position"`
	Timezone    string              `json:"timezone,omitempty"`
	ElevationFt int                 `json:"elevation_ft"`
	Tracked     bool                `json:"tracked"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// Flight is a scheduled leg between two airports.
type Flight struct {
	ID                 uuid.UUID `json:"id"`
	OperatorID         uuid.UUID `json:"operator_id"`
	Callsign           string    `json:"callsign"`
	Origin             string    `json:"origin"`
	Destination        string    `json:"destination"`
	AircraftType       string    `json:"aircraft_type,omitempty"`
	ScheduledDeparture time.Time `json:"scheduled_departure"`
	ScheduledArrival   time.Time `json:"scheduled_arrival"`
	Status             Status    `json:"status"`
	RouteDistanceNm    *float64  `json:"route_distance_nm,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NewOperatorRequest is the body of POST /api/v1/operators.
type NewOperatorRequest struct {
	Name     string `json:"name"`
	ICAOCode string `json:"icao_code"`
}

// AirportRequest is the body of PUT /api/v1/airports/{icao}.
type AirportRequest struct {
	Name        string              `json:"name"`
	Position    aviation.Coordinate `json:"position"`
	Timezone    string              `json:"timezone"`
	ElevationFt int                 `json:"elevation_ft"`
	Tracked     bool                `json:"tracked"`
}

// NewFlightRequest is the body of POST /api/v1/flights.
type NewFlightRequest struct {
	OperatorID         uuid.UUID `json:"operator_id"`
	Callsign           string    `json:"callsign"`
	Origin             string    `json:"origin"`
	Destination        string    `json:"destination"`
	AircraftType       string    `json:"aircraft_type"`
	ScheduledDeparture time.Time `json:"scheduled_departure"`
	ScheduledArrival   time.Time `json:"scheduled_arrival"`
}

var (
	ErrSameAirport     = errors.New("origin and destination must differ")
	ErrArrivalNotAfter = errors.New("scheduled_arrival must be after scheduled_departure")
)

// Check enforces the rules that span more than one field.
func (r NewFlightRequest) Check() error {
	if NormalizeICAO(r.Origin) == NormalizeICAO(r.Destination) {
		return ErrSameAirport
	}
	if !r.ScheduledArrival.After(r.ScheduledDeparture) {
		return ErrArrivalNotAfter
	}
	return nil
}

// NewFlight builds a scheduled flight with a fresh ID from a validated request.
func NewFlight(r NewFlightRequest, now time.Time) Flight {
	return Flight{
		ID:                 uuid.New(),
		OperatorID:         r.OperatorID,
		Callsign:           strings.ToUpper(strings.TrimSpace(r.Callsign)),
		Origin:             NormalizeICAO(r.Origin),
		Destination:        NormalizeICAO(r.Destination),
		AircraftType:       strings.ToUpper(strings.TrimSpace(r.AircraftType)),
		ScheduledDeparture: r.ScheduledDeparture.UTC(),
		ScheduledArrival:   r.ScheduledArrival.UTC(),
		Status:             StatusScheduled,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// NewOperator builds an operator with a fresh ID.
func NewOperator(r NewOperatorRequest, now time.Time) Operator {
	return Operator{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(r.Name),
		ICAOCode:  strings.ToUpper(strings.TrimSpace(r.ICAOCode)),
		CreatedAt: now,
	}
}

// NormalizeICAO upper-cases and trims an ICAO airport code.
func NormalizeICAO(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
