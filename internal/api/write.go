package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/harrier-data/sensor.report/internal/db"
	"github.com/harrier-data/sensor.report/internal/ingest"
)

// writeEntry is one reading in the POST /api/write batch.
type writeEntry struct {
	Sensor string   `json:"sensor"`
	Ts     *apiTime `json:"ts,omitempty"`
	Value  float64  `json:"value"`
}

// writeReadings ingests a JSON batch of readings. Unknown sensor keys reject
// the whole batch with 400 unless ?autocreate=1 registers them on the fly.
// Sensor registration and readings share one transaction: all or nothing.
func (s *Server) writeReadings(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var entries []writeEntry
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid write batch: %v", err))
		return
	}
	if len(entries) == 0 {
		s.writeJSONError(w, http.StatusBadRequest, "Empty write batch")
		return
	}

	autocreate := r.URL.Query().Get("autocreate") == "1"
	now := time.Now().UTC()

	batch := make([]db.KeyedReading, 0, len(entries))
	events := make([]ingest.Event, 0, len(entries))
	for _, entry := range entries {
		if entry.Sensor == "" {
			s.writeJSONError(w, http.StatusBadRequest, "Reading missing sensor key")
			return
		}
		at := now
		if entry.Ts != nil && !entry.Ts.IsZero() {
			at = entry.Ts.Time
		}
		batch = append(batch, db.KeyedReading{
			Key:   entry.Sensor,
			Ts:    float64(at.UnixNano()) / 1e9,
			Value: entry.Value,
		})
		events = append(events, ingest.Event{Key: entry.Sensor, Ts: at, Value: entry.Value})
	}

	created, err := s.db.InsertKeyedReadings(batch, autocreate)
	if errors.Is(err, db.ErrSensorNotFound) {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("%v (pass ?autocreate=1 to register)", err))
		return
	} else if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to store readings: %v", err))
		return
	}

	if s.hub != nil {
		for _, ev := range events {
			s.hub.Broadcast(ev)
		}
	}

	json.NewEncoder(w).Encode(map[string]int{
		"written":         len(batch),
		"sensors_created": created,
	})
}
