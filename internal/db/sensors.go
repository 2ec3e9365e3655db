package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harrier-data/sensor.report/internal/selector"
)

// Sensor is a registered data source. Attributes are free-form string pairs
// used by selectors to target groups of sensors.
type Sensor struct {
	ID         int64             `json:"id"`
	Key        string            `json:"key"`
	Name       string            `json:"name"`
	Kind       string            `json:"kind"`
	Unit       string            `json:"unit"`
	Attributes map[string]string `json:"attributes"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// ErrSensorNotFound is returned when a lookup matches no sensor.
var ErrSensorNotFound = fmt.Errorf("sensor not found")

// CreateSensor registers a sensor, assigning a uuid key when the caller gives
// none and filling in ID and timestamps.
func (db *DB) CreateSensor(sensor *Sensor) error {
	if sensor.Key == "" {
		sensor.Key = uuid.NewString()
	}
	if sensor.Attributes == nil {
		sensor.Attributes = map[string]string{}
	}

	attrs, err := json.Marshal(sensor.Attributes)
	if err != nil {
		return fmt.Errorf("failed to encode attributes: %w", err)
	}

	now := time.Now().UTC()
	result, err := db.Exec(`
		INSERT INTO sensors (key, name, kind, unit, attributes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sensor.Key, sensor.Name, sensor.Kind, sensor.Unit, string(attrs),
		now.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create sensor %q: %w", sensor.Key, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	sensor.ID = id
	sensor.CreatedAt = now
	sensor.UpdatedAt = now
	return nil
}

const sensorColumns = "id, key, name, kind, unit, attributes, created_at, updated_at"

func scanSensor(row interface{ Scan(...interface{}) error }) (*Sensor, error) {
	var s Sensor
	var attrs string
	var createdAt, updatedAt int64

	err := row.Scan(&s.ID, &s.Key, &s.Name, &s.Kind, &s.Unit, &attrs, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSensorNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(attrs), &s.Attributes); err != nil {
		return nil, fmt.Errorf("failed to decode attributes for sensor %q: %w", s.Key, err)
	}
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	s.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &s, nil
}

// GetSensor retrieves a sensor by ID.
func (db *DB) GetSensor(id int64) (*Sensor, error) {
	row := db.QueryRow("SELECT "+sensorColumns+" FROM sensors WHERE id = ?", id)
	return scanSensor(row)
}

// GetSensorByKey retrieves a sensor by its key.
func (db *DB) GetSensorByKey(key string) (*Sensor, error) {
	row := db.QueryRow("SELECT "+sensorColumns+" FROM sensors WHERE key = ?", key)
	return scanSensor(row)
}

// ListSensors returns all sensors ordered by key.
func (db *DB) ListSensors() ([]Sensor, error) {
	return db.querySensors("SELECT " + sensorColumns + " FROM sensors ORDER BY key")
}

// SensorsMatching returns the sensors selected by sel, ordered by key.
func (db *DB) SensorsMatching(sel selector.Selector) ([]Sensor, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	where, args := sel.SQL()
	query := "SELECT " + sensorColumns + " FROM sensors WHERE " + where + " ORDER BY key"
	return db.querySensors(query, args...)
}

func (db *DB) querySensors(query string, args ...interface{}) ([]Sensor, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sensors: %w", err)
	}
	defer rows.Close()

	var sensors []Sensor
	for rows.Next() {
		s, err := scanSensor(rows)
		if err != nil {
			return nil, err
		}
		sensors = append(sensors, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sensors, nil
}

// UpdateSensor updates a sensor's mutable fields (name, kind, unit,
// attributes) addressed by key.
func (db *DB) UpdateSensor(sensor *Sensor) error {
	attrs, err := json.Marshal(sensor.Attributes)
	if err != nil {
		return fmt.Errorf("failed to encode attributes: %w", err)
	}

	now := time.Now().UTC()
	result, err := db.Exec(`
		UPDATE sensors SET name = ?, kind = ?, unit = ?, attributes = ?, updated_at = ?
		WHERE key = ?`,
		sensor.Name, sensor.Kind, sensor.Unit, string(attrs), now.Unix(), sensor.Key,
	)
	if err != nil {
		return fmt.Errorf("failed to update sensor %q: %w", sensor.Key, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSensorNotFound
	}
	sensor.UpdatedAt = now
	return nil
}

// DeleteSensor removes a sensor and (via cascade) its readings and rollups.
func (db *DB) DeleteSensor(key string) error {
	result, err := db.Exec("DELETE FROM sensors WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("failed to delete sensor %q: %w", key, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSensorNotFound
	}
	return nil
}
