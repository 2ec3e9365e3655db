package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/harrier-data/sensor.report/internal/monitoring"
	"github.com/harrier-data/sensor.report/internal/timeutil"
)

// HourlyRollup is one pre-aggregated hour of a sensor's stream, as cached in
// the rollup_hourly table by the RollupWorker.
type HourlyRollup struct {
	SensorID int64     `json:"sensor_id"`
	BucketTs time.Time `json:"bucket_ts"`
	Count    int64     `json:"count"`
	Mean     float64   `json:"mean"`
	Min      float64   `json:"min"`
	Max      float64   `json:"max"`
	Sum      float64   `json:"sum"`
}

// RollupWorker periodically folds closed hourly buckets of raw readings into
// rollup_hourly. Buckets are recomputed with a one-bucket overlap so late
// arrivals within the previous hour are picked up on the next run.
type RollupWorker struct {
	DB       *DB
	Clock    timeutil.Clock
	Interval time.Duration
}

// NewRollupWorker returns a worker running every interval on the given clock.
func NewRollupWorker(db *DB, clock timeutil.Clock, interval time.Duration) *RollupWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &RollupWorker{DB: db, Clock: clock, Interval: interval}
}

// Run executes the worker loop until the context is cancelled. An immediate
// pass runs before the first tick so restarts catch up promptly.
func (w *RollupWorker) Run(ctx context.Context) error {
	if err := w.RunOnce(ctx); err != nil {
		monitoring.Logf("rollup worker initial run error: %v", err)
	}

	ticker := w.Clock.NewTicker(w.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			if err := w.RunOnce(ctx); err != nil {
				monitoring.Logf("rollup worker run error: %v", err)
			}
		}
	}
}

// RunOnce recomputes hourly rollups from the resume point (the newest cached
// bucket, minus the overlap) up to the last fully closed hour.
func (w *RollupWorker) RunOnce(ctx context.Context) error {
	now := w.Clock.Now().UTC()
	closedEnd := now.Truncate(time.Hour)

	sensors, err := w.DB.ListSensors()
	if err != nil {
		return fmt.Errorf("rollup worker: %w", err)
	}

	for _, sensor := range sensors {
		if err := w.rollupSensor(ctx, sensor.ID, closedEnd); err != nil {
			return fmt.Errorf("rollup worker sensor %q: %w", sensor.Key, err)
		}
	}
	return nil
}

func (w *RollupWorker) rollupSensor(ctx context.Context, sensorID int64, closedEnd time.Time) error {
	start, err := w.resumePoint(ctx, sensorID)
	if err != nil {
		return err
	}
	if start == nil || !start.Before(closedEnd) {
		return nil
	}

	rows, err := w.DB.QueryContext(ctx, `
		SELECT CAST(ts / 3600 AS INTEGER) * 3600 AS bucket,
		       COUNT(*), AVG(value), MIN(value), MAX(value), SUM(value)
		FROM readings
		WHERE sensor_id = ? AND ts >= ? AND ts < ?
		GROUP BY bucket ORDER BY bucket`,
		sensorID, float64(start.Unix()), float64(closedEnd.Unix()),
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	var rollups []HourlyRollup
	for rows.Next() {
		var bucket int64
		r := HourlyRollup{SensorID: sensorID}
		if err := rows.Scan(&bucket, &r.Count, &r.Mean, &r.Min, &r.Max, &r.Sum); err != nil {
			return err
		}
		r.BucketTs = time.Unix(bucket, 0).UTC()
		rollups = append(rollups, r)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return w.upsertRollups(ctx, rollups)
}

// resumePoint decides where recomputation starts: one bucket before the
// newest cached bucket, or the first reading when the cache is empty.
// Returns nil when the sensor has no readings at all.
func (w *RollupWorker) resumePoint(ctx context.Context, sensorID int64) (*time.Time, error) {
	var lastBucket sql.NullInt64
	err := w.DB.QueryRowContext(ctx,
		"SELECT MAX(bucket_ts) FROM rollup_hourly WHERE sensor_id = ?", sensorID,
	).Scan(&lastBucket)
	if err != nil {
		return nil, err
	}
	if lastBucket.Valid {
		t := time.Unix(lastBucket.Int64, 0).UTC().Add(-time.Hour)
		return &t, nil
	}

	var firstTs sql.NullFloat64
	err = w.DB.QueryRowContext(ctx,
		"SELECT MIN(ts) FROM readings WHERE sensor_id = ?", sensorID,
	).Scan(&firstTs)
	if err != nil {
		return nil, err
	}
	if !firstTs.Valid {
		return nil, nil
	}
	t := timeOf(firstTs.Float64).Truncate(time.Hour)
	return &t, nil
}

func (w *RollupWorker) upsertRollups(ctx context.Context, rollups []HourlyRollup) error {
	if len(rollups) == 0 {
		return nil
	}

	tx, err := w.DB.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO rollup_hourly (sensor_id, bucket_ts, count, mean, min, max, sum)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (sensor_id, bucket_ts) DO UPDATE SET
			count = excluded.count, mean = excluded.mean,
			min = excluded.min, max = excluded.max, sum = excluded.sum`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rollups {
		if _, err := stmt.Exec(r.SensorID, r.BucketTs.Unix(), r.Count, r.Mean, r.Min, r.Max, r.Sum); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// HourlyRollups returns cached rollups for a sensor in [start, end) ordered
// by bucket.
func (db *DB) HourlyRollups(sensorID int64, start, end time.Time) ([]HourlyRollup, error) {
	rows, err := db.Query(`
		SELECT bucket_ts, count, mean, min, max, sum
		FROM rollup_hourly
		WHERE sensor_id = ? AND bucket_ts >= ? AND bucket_ts < ?
		ORDER BY bucket_ts`,
		sensorID, start.Unix(), end.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query rollups: %w", err)
	}
	defer rows.Close()

	var out []HourlyRollup
	for rows.Next() {
		var bucket int64
		r := HourlyRollup{SensorID: sensorID}
		if err := rows.Scan(&bucket, &r.Count, &r.Mean, &r.Min, &r.Max, &r.Sum); err != nil {
			return nil, err
		}
		r.BucketTs = time.Unix(bucket, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
