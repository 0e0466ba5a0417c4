package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"

	"github.com/neexbeast/flightdeck/internal/aviation"
	"github.com/neexbeast/flightdeck/internal/flight"
	"github.com/neexbeast/flightdeck/internal/validation"
)

const maxBodyBytes = 1 << 20

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	repo      Repo
	cache     BriefingCache
	refresher Refresher
	validator PayloadValidator
	clock     clockwork.Clock
	log       *slog.Logger
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(repo Repo, cache BriefingCache, refresher Refresher, validator PayloadValidator, clock clockwork.Clock, log *slog.Logger) *Handlers {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Handlers{
		repo:      repo,
		cache:     cache,
		refresher: refresher,
		validator: validator,
		clock:     clock,
		log:       log,
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// icaoParam reads and normalizes an ICAO path parameter, writing a 400 when it is malformed.
func icaoParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	icao := flight.NormalizeICAO(chi.URLParam(r, name))
	if !validation.ValidICAO(icao) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid ICAO code %q", chi.URLParam(r, name)))
		return "", false
	}
	return icao, true
}

// decodeBody reads a bounded request body and validates it against kind's schema.
func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, kind validation.Kind, dst any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read request body")
		return false
	}

	if err := h.validator.Decode(kind, body, dst); err != nil {
		if errors.Is(err, validation.ErrInvalidPayload) {
			writeError(w, http.StatusBadRequest, err.Error())
			return false
		}
		h.log.Error("payload validation failed", "kind", kind, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return false
	}
	return true
}

// GetBriefing handles GET /api/v1/briefings/{icao}.
// Serves from Redis first, then from Postgres (re-caching the row). A station
// that was never refreshed is a 404.
func (h *Handlers) GetBriefing(w http.ResponseWriter, r *http.Request) {
	icao, ok := icaoParam(w, r, "icao")
	if !ok {
		return
	}

	cached, err := h.cache.Get(r.Context(), icao)
	if err != nil {
		h.log.Error("cache get failed", "icao", icao, "err", err)
	}
	if cached != nil {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	b, err := h.repo.GetBriefing(r.Context(), icao)
	if err != nil {
		h.log.Error("db get failed", "icao", icao, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if b == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no briefing for %s; POST /api/v1/briefings/%s/refresh first", icao, icao))
		return
	}

	if err := h.cache.Set(r.Context(), icao, b); err != nil {
		h.log.Warn("cache set failed after db hit", "icao", icao, "err", err)
	}

	writeJSON(w, http.StatusOK, b)
}

// RefreshBriefing handles POST /api/v1/briefings/{icao}/refresh.
func (h *Handlers) RefreshBriefing(w http.ResponseWriter, r *http.Request) {
	icao, ok := icaoParam(w, r, "icao")
	if !ok {
		return
	}

	b, err := h.refresher.Refresh(r.Context(), icao)
	if err != nil {
		h.log.Error("refresh failed", "icao", icao, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to refresh briefing")
		return
	}

	writeJSON(w, http.StatusOK, b)
}

// ListBriefings handles GET /api/v1/briefings?severity=high|moderate|info.
func (h *Handlers) ListBriefings(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("severity")
	severity, ok := aviation.ParseSeverity(raw)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("severity must be one of high, moderate, info; got %q", raw))
		return
	}

	briefings, err := h.repo.ListBriefingsBySeverity(r.Context(), severity)
	if err != nil {
		h.log.Error("list briefings failed", "severity", severity, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, briefings)
}

// HealthCheck names a dependency probed by the health endpoint.
type HealthCheck struct {
	Name   string
	Pinger Pinger
}

// HealthHandlerFunc returns an http.HandlerFunc that pings every check.
// It responds 200 when all pass and 503 otherwise.
func HealthHandlerFunc(checks []HealthCheck, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}

		for _, c := range checks {
			body[c.Name] = "ok"
			if err := c.Pinger.Ping(ctx); err != nil {
				log.Error("health check failed", "check", c.Name, "err", err)
				body[c.Name] = "error"
				body["status"] = "degraded"
				status = http.StatusServiceUnavailable
			}
		}

		writeJSON(w, status, body)
	}
}
