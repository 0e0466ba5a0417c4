package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/neexbeast/flightdeck/internal/aviation"
)

type proximityResponse struct {
	From       aviation.Coordinate `json:"from"`
	To         aviation.Coordinate `json:"to"`
	DistanceNm float64             `json:"distance_nm"`
	Severity   aviation.Severity   `json:"severity"`
}

// Proximity handles GET /api/v1/proximity?from_lat&from_lon&to_lat&to_lon.
// Coordinates outside the valid ranges are rejected before any distance is computed.
func (h *Handlers) Proximity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, err := coordinateQuery(q, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := coordinateQuery(q, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	d := aviation.DistanceNm(from, to)
	writeJSON(w, http.StatusOK, proximityResponse{
		From:       from,
		To:         to,
		DistanceNm: d,
		Severity:   aviation.ClassifySeverity(d),
	})
}

func coordinateQuery(q url.Values, prefix string) (aviation.Coordinate, error) {
	lat, err := floatQuery(q, prefix+"_lat")
	if err != nil {
		return aviation.Coordinate{}, err
	}
	lon, err := floatQuery(q, prefix+"_lon")
	if err != nil {
		return aviation.Coordinate{}, err
	}

	c := aviation.Coordinate{Lat: lat, Lon: lon}
	if err := c.Validate(); err != nil {
		return aviation.Coordinate{}, fmt.Errorf("%s: %w", prefix, err)
	}
	return c, nil
}

func floatQuery(q url.Values, key string) (float64, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, raw)
	}
	return v, nil
}
