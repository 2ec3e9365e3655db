package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/harrier-data/sensor.report/internal/db"
)

// serveRollups serves pre-aggregated hours straight from the rollup cache
// maintained by the rollup worker, skipping the raw readings table:
//
//	/api/rollups?key=garage-temp&start=...&end=...
//
// Buckets are hour-aligned UTC. The cache only holds closed hours, so the
// current hour never appears; query /api/read for up-to-the-second data.
func (s *Server) serveRollups(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	q := r.URL.Query()
	key := q.Get("key")
	if key == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Missing 'key' parameter")
		return
	}

	start, herr := queryTime(q, "start")
	if herr != nil {
		s.writeJSONError(w, herr.status, herr.msg)
		return
	}
	end, herr := queryTime(q, "end")
	if herr != nil {
		s.writeJSONError(w, herr.status, herr.msg)
		return
	}
	if !start.Before(end.Time) {
		s.writeJSONError(w, http.StatusBadRequest, "'start' must be before 'end'")
		return
	}

	sensor, err := s.db.GetSensorByKey(key)
	if errors.Is(err, db.ErrSensorNotFound) {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("Unknown sensor %q", key))
		return
	} else if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to resolve sensor: %v", err))
		return
	}

	rollups, err := s.db.HourlyRollups(sensor.ID, start.Time, end.Time)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read rollups: %v", err))
		return
	}
	if rollups == nil {
		rollups = []db.HourlyRollup{}
	}

	if err := json.NewEncoder(w).Encode(rollups); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write rollups")
		return
	}
}

// queryTime parses a time query parameter as RFC 3339 or unix seconds.
func queryTime(q url.Values, name string) (apiTime, *httpError) {
	var t apiTime
	raw := q.Get(name)
	if raw == "" {
		return t, badRequest("Missing %q parameter", name)
	}
	if err := t.UnmarshalJSON([]byte(fmt.Sprintf("%q", raw))); err != nil {
		// retry as a bare number (unix seconds)
		if numErr := t.UnmarshalJSON([]byte(raw)); numErr != nil {
			return t, badRequest("Invalid %q parameter: %v", name, err)
		}
	}
	return t, nil
}
