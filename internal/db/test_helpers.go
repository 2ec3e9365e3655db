package db

import (
	"os"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	fname := t.Name() + ".db"
	_ = os.Remove(fname)

	db, err := EnsureSchema(fname)
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	return db
}

func cleanupTestDB(t *testing.T, db *DB) {
	t.Helper()
	fname := t.Name() + ".db"
	db.Close()
	_ = os.Remove(fname)
	_ = os.Remove(fname + "-shm")
	_ = os.Remove(fname + "-wal")
}

// createTestSensor inserts a sensor with the given key and attributes and
// fails the test on error.
func createTestSensor(t *testing.T, db *DB, key string, attrs map[string]string) *Sensor {
	t.Helper()
	s := &Sensor{
		Key:        key,
		Name:       "Test " + key,
		Kind:       "temperature",
		Unit:       "celsius",
		Attributes: attrs,
	}
	if err := db.CreateSensor(s); err != nil {
		t.Fatalf("CreateSensor(%q) failed: %v", key, err)
	}
	return s
}

// seedReadings inserts n readings at one-minute spacing starting at start,
// with values v, v+step, v+2*step, ...
func seedReadings(t *testing.T, db *DB, sensorID int64, start time.Time, n int, v, step float64) {
	t.Helper()
	readings := make([]Reading, 0, n)
	for i := 0; i < n; i++ {
		readings = append(readings, Reading{
			SensorID: sensorID,
			Ts:       tsOf(start.Add(time.Duration(i) * time.Minute)),
			Value:    v + float64(i)*step,
		})
	}
	if err := db.InsertReadings(readings); err != nil {
		t.Fatalf("InsertReadings failed: %v", err)
	}
}
