package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/harrier-data/sensor.report/internal/db"
	"github.com/harrier-data/sensor.report/internal/units"
)

// sensorsCollection serves GET (list) and POST (create) on /api/sensors.
func (s *Server) sensorsCollection(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		sensors, err := s.db.ListSensors()
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list sensors: %v", err))
			return
		}
		if sensors == nil {
			sensors = []db.Sensor{}
		}
		if err := json.NewEncoder(w).Encode(sensors); err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, "Failed to write sensors")
		}

	case http.MethodPost:
		var sensor db.Sensor
		if err := json.NewDecoder(r.Body).Decode(&sensor); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid sensor: %v", err))
			return
		}
		if sensor.Unit != "" && !units.IsKnown(sensor.Unit) {
			s.writeJSONError(w, http.StatusBadRequest,
				fmt.Sprintf("Unknown unit %q: known units are %s", sensor.Unit, units.ValidUnitsString()))
			return
		}
		if err := s.db.CreateSensor(&sensor); err != nil {
			s.writeJSONError(w, http.StatusConflict, fmt.Sprintf("Failed to create sensor: %v", err))
			return
		}
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(sensor); err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, "Failed to write sensor")
		}

	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// sensorItem serves GET, PUT, and DELETE on /api/sensors/{key}.
func (s *Server) sensorItem(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	key := strings.TrimPrefix(r.URL.Path, "/api/sensors/")
	if key == "" || strings.Contains(key, "/") {
		s.writeJSONError(w, http.StatusNotFound, "Unknown sensor path")
		return
	}

	switch r.Method {
	case http.MethodGet:
		sensor, err := s.db.GetSensorByKey(key)
		if errors.Is(err, db.ErrSensorNotFound) {
			s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("No sensor %q", key))
			return
		}
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load sensor: %v", err))
			return
		}
		if err := json.NewEncoder(w).Encode(sensor); err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, "Failed to write sensor")
		}

	case http.MethodPut:
		var sensor db.Sensor
		if err := json.NewDecoder(r.Body).Decode(&sensor); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid sensor: %v", err))
			return
		}
		if sensor.Unit != "" && !units.IsKnown(sensor.Unit) {
			s.writeJSONError(w, http.StatusBadRequest,
				fmt.Sprintf("Unknown unit %q: known units are %s", sensor.Unit, units.ValidUnitsString()))
			return
		}
		sensor.Key = key // the path wins over any key in the body
		err := s.db.UpdateSensor(&sensor)
		if errors.Is(err, db.ErrSensorNotFound) {
			s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("No sensor %q", key))
			return
		}
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to update sensor: %v", err))
			return
		}
		updated, err := s.db.GetSensorByKey(key)
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to reload sensor: %v", err))
			return
		}
		if err := json.NewEncoder(w).Encode(updated); err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, "Failed to write sensor")
		}

	case http.MethodDelete:
		err := s.db.DeleteSensor(key)
		if errors.Is(err, db.ErrSensorNotFound) {
			s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("No sensor %q", key))
			return
		}
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to delete sensor: %v", err))
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
