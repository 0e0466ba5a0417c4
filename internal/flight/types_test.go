package flight_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/flightdeck/internal/flight"
)

func validRequest() flight.NewFlightRequest {
	dep := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	return flight.NewFlightRequest{
		OperatorID:         uuid.New(),
		Callsign:           " dal123 ",
		Origin:             "kjfk",
		Destination:        "KBOS",
		AircraftType:       "a321",
		ScheduledDeparture: dep,
		ScheduledArrival:   dep.Add(75 * time.Minute),
	}
}

func TestNewFlightRequest_Check(t *testing.T) {
	require.NoError(t, validRequest().Check())

	same := validRequest()
	same.Destination = " KJFK"
	assert.ErrorIs(t, same.Check(), flight.ErrSameAirport)

	backwards := validRequest()
	backwards.ScheduledArrival = backwards.ScheduledDeparture
	assert.ErrorIs(t, backwards.Check(), flight.ErrArrivalNotAfter)
}

func TestNewFlight_Normalizes(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	req := validRequest()

	f := flight.NewFlight(req, now)

	assert.NotEqual(t, uuid.Nil, f.ID)
	assert.Equal(t, req.OperatorID, f.OperatorID)
	assert.Equal(t, "DAL123", f.Callsign)
	assert.Equal(t, "KJFK", f.Origin)
	assert.Equal(t, "KBOS", f.Destination)
	assert.Equal(t, "A321", f.AircraftType)
	assert.Equal(t, flight.StatusScheduled, f.Status)
	assert.Nil(t, f.RouteDistanceNm)
	assert.Equal(t, now, f.CreatedAt)
}

func TestNewOperator(t *testing.T) {
	op := flight.NewOperator(flight.NewOperatorRequest{Name: " Delta Air Lines ", ICAOCode: "dal"}, time.Now())
	assert.NotEqual(t, uuid.Nil, op.ID)
	assert.Equal(t, "Delta Air Lines", op.Name)
	assert.Equal(t, "DAL", op.ICAOCode)
}
