package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/neexbeast/flightdeck/internal/aviation"
	"github.com/neexbeast/flightdeck/internal/flight"
	"github.com/neexbeast/flightdeck/internal/storage"
	"github.com/neexbeast/flightdeck/internal/validation"
)

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

// GetAirport handles GET /api/v1/airports/{icao}.
func (h *Handlers) GetAirport(w http.ResponseWriter, r *http.Request) {
	icao, ok := icaoParam(w, r, "icao")
	if !ok {
		return
	}

	a, err := h.repo.GetAirport(r.Context(), icao)
	if err != nil {
		h.log.Error("get airport failed", "icao", icao, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("airport %s not found", icao))
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// PutAirport handles PUT /api/v1/airports/{icao}.
func (h *Handlers) PutAirport(w http.ResponseWriter, r *http.Request) {
	icao, ok := icaoParam(w, r, "icao")
	if !ok {
		return
	}

	var req flight.AirportRequest
	if !h.decodeBody(w, r, validation.KindAirport, &req) {
		return
	}

	a, err := h.repo.UpsertAirport(r.Context(), icao, req)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			writeError(w, http.StatusConflict, "airport conflicts with stored data")
			return
		}
		h.log.Error("upsert airport failed", "icao", icao, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.log.Info("airport stored", "icao", icao, "tracked", a.Tracked)
	writeJSON(w, http.StatusOK, a)
}

// AirportDistance handles GET /api/v1/airports/{from}/distance/{to}.
func (h *Handlers) AirportDistance(w http.ResponseWriter, r *http.Request) {
	fromICAO, ok := icaoParam(w, r, "from")
	if !ok {
		return
	}
	toICAO, ok := icaoParam(w, r, "to")
	if !ok {
		return
	}

	var airports [2]*flight.Airport
	for i, icao := range []string{fromICAO, toICAO} {
		a, err := h.repo.GetAirport(r.Context(), icao)
		if err != nil {
			h.log.Error("get airport failed", "icao", icao, "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if a == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("airport %s not found", icao))
			return
		}
		airports[i] = a
	}

	d := aviation.DistanceNm(airports[0].Position, airports[1].Position)
	writeJSON(w, http.StatusOK, map[string]any{
		"from":        fromICAO,
		"to":          toICAO,
		"distance_nm": d,
		"severity":    aviation.ClassifySeverity(d),
	})
}

// CreateOperator handles POST /api/v1/operators.
func (h *Handlers) CreateOperator(w http.ResponseWriter, r *http.Request) {
	var req flight.NewOperatorRequest
	if !h.decodeBody(w, r, validation.KindOperator, &req) {
		return
	}

	op := flight.NewOperator(req, h.clock.Now().UTC())
	if err := h.repo.CreateOperator(r.Context(), op); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			writeError(w, http.StatusConflict, fmt.Sprintf("operator %s already exists", op.ICAOCode))
			return
		}
		h.log.Error("create operator failed", "icao_code", op.ICAOCode, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, op)
}

// GetOperator handles GET /api/v1/operators/{id}.
func (h *Handlers) GetOperator(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	op, err := h.repo.GetOperator(r.Context(), id)
	if err != nil {
		h.log.Error("get operator failed", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if op == nil {
		writeError(w, http.StatusNotFound, "operator not found")
		return
	}

	writeJSON(w, http.StatusOK, op)
}

// ListOperatorFlights handles GET /api/v1/operators/{id}/flights.
func (h *Handlers) ListOperatorFlights(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	op, err := h.repo.GetOperator(r.Context(), id)
	if err != nil {
		h.log.Error("get operator failed", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if op == nil {
		writeError(w, http.StatusNotFound, "operator not found")
		return
	}

	flights, err := h.repo.ListFlightsByOperator(r.Context(), id)
	if err != nil {
		h.log.Error("list flights failed", "operator_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, flights)
}

// CreateFlight handles POST /api/v1/flights. The route distance is filled in
// when both airports are stored.
func (h *Handlers) CreateFlight(w http.ResponseWriter, r *http.Request) {
	var req flight.NewFlightRequest
	if !h.decodeBody(w, r, validation.KindFlight, &req) {
		return
	}
	if err := req.Check(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	op, err := h.repo.GetOperator(ctx, req.OperatorID)
	if err != nil {
		h.log.Error("get operator failed", "id", req.OperatorID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if op == nil {
		writeError(w, http.StatusConflict, fmt.Sprintf("operator %s does not exist", req.OperatorID))
		return
	}

	f := flight.NewFlight(req, h.clock.Now().UTC())

	origin, originErr := h.repo.GetAirport(ctx, f.Origin)
	dest, destErr := h.repo.GetAirport(ctx, f.Destination)
	switch {
	case originErr != nil || destErr != nil:
		h.log.Warn("airport lookup failed; route distance left empty",
			"origin", f.Origin, "destination", f.Destination, "err", errors.Join(originErr, destErr))
	case origin != nil && dest != nil:
		d := aviation.DistanceNm(origin.Position, dest.Position)
		f.RouteDistanceNm = &d
	}

	if err := h.repo.CreateFlight(ctx, f); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			writeError(w, http.StatusConflict, "flight conflicts with stored data")
			return
		}
		h.log.Error("create flight failed", "callsign", f.Callsign, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, f)
}

// GetFlight handles GET /api/v1/flights/{id}.
func (h *Handlers) GetFlight(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	f, err := h.repo.GetFlight(r.Context(), id)
	if err != nil {
		h.log.Error("get flight failed", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if f == nil {
		writeError(w, http.StatusNotFound, "flight not found")
		return
	}

	writeJSON(w, http.StatusOK, f)
}
