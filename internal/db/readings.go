package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/harrier-data/sensor.report/internal/pipeline"
)

// Reading is one stored measurement. Ts is unix seconds with fractional part,
// matching the readings.ts column.
type Reading struct {
	SensorID int64
	Ts       float64
	Value    float64
}

// tsOf converts a time to the stored unix-seconds form.
func tsOf(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// timeOf converts a stored timestamp back to time.Time (UTC).
func timeOf(ts float64) time.Time {
	return time.Unix(0, int64(ts*1e9)).UTC()
}

// InsertReading stores a single measurement.
func (db *DB) InsertReading(sensorID int64, at time.Time, value float64) error {
	_, err := db.Exec(
		"INSERT INTO readings (sensor_id, ts, value) VALUES (?, ?, ?)",
		sensorID, tsOf(at), value,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	return nil
}

// InsertReadings stores a batch of measurements in one transaction.
func (db *DB) InsertReadings(readings []Reading) error {
	if len(readings) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT INTO readings (sensor_id, ts, value) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range readings {
		if _, err := stmt.Exec(r.SensorID, r.Ts, r.Value); err != nil {
			return fmt.Errorf("failed to insert reading for sensor %d: %w", r.SensorID, err)
		}
	}
	return tx.Commit()
}

// KeyedReading is a measurement addressed by sensor key rather than ID, used
// by batch writes that may register sensors on the fly.
type KeyedReading struct {
	Key   string
	Ts    float64
	Value float64
}

// InsertKeyedReadings resolves keys and stores the batch in one transaction.
// An unknown key fails the whole batch with ErrSensorNotFound unless
// autocreate is set, in which case the sensor is registered (kind "unknown",
// unit "raw") inside the same transaction, so a failed batch leaves no
// sensors behind either. Returns the number of sensors created.
func (db *DB) InsertKeyedReadings(entries []KeyedReading, autocreate bool) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ids := make(map[string]int64)
	created := 0
	now := time.Now().UTC()
	for _, e := range entries {
		if _, ok := ids[e.Key]; ok {
			continue
		}
		var id int64
		err := tx.QueryRow("SELECT id FROM sensors WHERE key = ?", e.Key).Scan(&id)
		if err == sql.ErrNoRows {
			if !autocreate {
				return 0, fmt.Errorf("sensor %q: %w", e.Key, ErrSensorNotFound)
			}
			result, err := tx.Exec(`
				INSERT INTO sensors (key, name, kind, unit, attributes, created_at, updated_at)
				VALUES (?, ?, 'unknown', 'raw', '{}', ?, ?)`,
				e.Key, e.Key, now.Unix(), now.Unix(),
			)
			if err != nil {
				return 0, fmt.Errorf("failed to register sensor %q: %w", e.Key, err)
			}
			if id, err = result.LastInsertId(); err != nil {
				return 0, fmt.Errorf("failed to get last insert ID: %w", err)
			}
			created++
		} else if err != nil {
			return 0, fmt.Errorf("failed to resolve sensor %q: %w", e.Key, err)
		}
		ids[e.Key] = id
	}

	stmt, err := tx.Prepare("INSERT INTO readings (sensor_id, ts, value) VALUES (?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(ids[e.Key], e.Ts, e.Value); err != nil {
			return 0, fmt.Errorf("failed to insert reading for sensor %q: %w", e.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return created, nil
}

// SelectSeries returns a sensor's readings in [start, end) ordered ascending
// by timestamp, ready for pipeline execution.
func (db *DB) SelectSeries(sensorID int64, start, end time.Time) (pipeline.Series, error) {
	rows, err := db.Query(`
		SELECT ts, value FROM readings
		WHERE sensor_id = ? AND ts >= ? AND ts < ?
		ORDER BY ts`,
		sensorID, tsOf(start), tsOf(end),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to select series: %w", err)
	}
	defer rows.Close()

	var series pipeline.Series
	for rows.Next() {
		var ts, value float64
		if err := rows.Scan(&ts, &value); err != nil {
			return nil, err
		}
		series = append(series, pipeline.Point{Ts: timeOf(ts), Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return series, nil
}

// PlatformStats summarises the stored data for the /stats endpoint.
type PlatformStats struct {
	Sensors      int64      `json:"sensors"`
	Readings     int64      `json:"readings"`
	LatestTs     *time.Time `json:"latest_ts,omitempty"`
	EarliestTs   *time.Time `json:"earliest_ts,omitempty"`
	HourlyCached int64      `json:"hourly_rollups_cached"`
}

// Stats computes platform totals.
func (db *DB) Stats() (*PlatformStats, error) {
	var stats PlatformStats

	if err := db.QueryRow("SELECT COUNT(*) FROM sensors").Scan(&stats.Sensors); err != nil {
		return nil, fmt.Errorf("failed to count sensors: %w", err)
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM readings").Scan(&stats.Readings); err != nil {
		return nil, fmt.Errorf("failed to count readings: %w", err)
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM rollup_hourly").Scan(&stats.HourlyCached); err != nil {
		return nil, fmt.Errorf("failed to count rollups: %w", err)
	}

	if stats.Readings > 0 {
		var minTs, maxTs float64
		if err := db.QueryRow("SELECT MIN(ts), MAX(ts) FROM readings").Scan(&minTs, &maxTs); err != nil {
			return nil, fmt.Errorf("failed to read ts bounds: %w", err)
		}
		earliest, latest := timeOf(minTs), timeOf(maxTs)
		stats.EarliestTs = &earliest
		stats.LatestTs = &latest
	}
	return &stats, nil
}
