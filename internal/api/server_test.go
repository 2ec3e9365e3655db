package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harrier-data/sensor.report/internal/db"
	"github.com/harrier-data/sensor.report/internal/ingest"
	"github.com/harrier-data/sensor.report/internal/linemux"
	"github.com/harrier-data/sensor.report/internal/timeutil"
)

type testEnv struct {
	db     *db.DB
	server *Server
	mux    *http.ServeMux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database, err := db.EnsureSchema(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	server := NewServer(linemux.NewDisabledLineMux(), database, ingest.NewHub(), "celsius", time.UTC)
	return &testEnv{db: database, server: server, mux: server.ServeMux()}
}

func (e *testEnv) addSensor(t *testing.T, key, kind, unit string, attrs map[string]string) *db.Sensor {
	t.Helper()
	s := &db.Sensor{Key: key, Name: key, Kind: kind, Unit: unit, Attributes: attrs}
	if err := e.db.CreateSensor(s); err != nil {
		t.Fatalf("CreateSensor(%q) failed: %v", key, err)
	}
	return s
}

func (e *testEnv) addReadings(t *testing.T, sensorID int64, start time.Time, n int, v, step float64) {
	t.Helper()
	readings := make([]db.Reading, 0, n)
	for i := 0; i < n; i++ {
		readings = append(readings, db.Reading{
			SensorID: sensorID,
			Ts:       float64(start.Add(time.Duration(i) * time.Minute).Unix()),
			Value:    v + float64(i)*step,
		})
	}
	if err := e.db.InsertReadings(readings); err != nil {
		t.Fatalf("InsertReadings failed: %v", err)
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)
	return w
}

func decodeSeries(t *testing.T, w *httptest.ResponseRecorder) map[string][]struct {
	Ts    time.Time `json:"ts"`
	Value float64   `json:"value"`
} {
	t.Helper()
	out := make(map[string][]struct {
		Ts    time.Time `json:"ts"`
		Value float64   `json:"value"`
	})
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestReadRollup(t *testing.T) {
	env := newTestEnv(t)
	sensor := env.addSensor(t, "garage-temp", "temperature", "celsius", map[string]string{"room": "garage"})

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	env.addReadings(t, sensor.ID, start, 120, 10.0, 0.0) // two hours of 10.0

	w := env.do(t, "POST", "/api/read", map[string]interface{}{
		"sensors": map[string]interface{}{"keys": []string{"garage-temp"}},
		"pipeline": map[string]interface{}{
			"operations": []map[string]string{{"op": "rollup", "period": "1h", "fold": "mean"}},
		},
		"start": start.Format(time.RFC3339),
		"end":   start.Add(3 * time.Hour).Format(time.RFC3339),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	series := decodeSeries(t, w)
	pts, ok := series["garage-temp"]
	if !ok {
		t.Fatalf("expected garage-temp in response, got %v", series)
	}
	if len(pts) != 2 {
		t.Fatalf("expected 2 hourly buckets, got %d", len(pts))
	}
	if !pts[0].Ts.Equal(start) || pts[0].Value != 10.0 {
		t.Errorf("unexpected first bucket %+v", pts[0])
	}
	if !pts[1].Ts.Equal(start.Add(time.Hour)) {
		t.Errorf("unexpected second bucket ts %v", pts[1].Ts)
	}
}

func TestReadEmptyPipelineReturnsRawSeries(t *testing.T) {
	env := newTestEnv(t)
	sensor := env.addSensor(t, "raw", "temperature", "celsius", nil)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	env.addReadings(t, sensor.ID, start, 3, 1.0, 1.0)

	w := env.do(t, "POST", "/api/read", map[string]interface{}{
		"sensors": "all",
		"start":   float64(start.Unix()),
		"end":     float64(start.Add(time.Hour).Unix()),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	series := decodeSeries(t, w)
	if len(series["raw"]) != 3 {
		t.Errorf("expected 3 raw points, got %d", len(series["raw"]))
	}
}

func TestReadMultiRollupFansOut(t *testing.T) {
	env := newTestEnv(t)
	sensor := env.addSensor(t, "fan", "temperature", "celsius", nil)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	env.addReadings(t, sensor.ID, start, 60, 10.0, 1.0)

	w := env.do(t, "POST", "/api/read", map[string]interface{}{
		"sensors": map[string]interface{}{"keys": []string{"fan"}},
		"pipeline": map[string]interface{}{
			"operations": []map[string]interface{}{
				{"op": "multi_rollup", "period": "1h", "folds": []string{"min", "max"}},
			},
		},
		"start": start.Format(time.RFC3339),
		"end":   start.Add(time.Hour).Format(time.RFC3339),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	series := decodeSeries(t, w)
	if _, ok := series["fan/min"]; !ok {
		t.Errorf("expected fan/min output, got keys %v", keysOf(series))
	}
	if _, ok := series["fan/max"]; !ok {
		t.Errorf("expected fan/max output, got keys %v", keysOf(series))
	}
	if got := series["fan/min"][0].Value; got != 10.0 {
		t.Errorf("expected min 10.0, got %v", got)
	}
	if got := series["fan/max"][0].Value; got != 69.0 {
		t.Errorf("expected max 69.0, got %v", got)
	}
}

func keysOf(m map[string][]struct {
	Ts    time.Time `json:"ts"`
	Value float64   `json:"value"`
}) []string {
	var keys []string
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func TestReadAggregateAcrossSensors(t *testing.T) {
	env := newTestEnv(t)
	a := env.addSensor(t, "a", "temperature", "celsius", map[string]string{"room": "k"})
	b := env.addSensor(t, "b", "temperature", "celsius", map[string]string{"room": "k"})
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	env.addReadings(t, a.ID, start, 60, 10.0, 0.0)
	env.addReadings(t, b.ID, start, 60, 20.0, 0.0)

	w := env.do(t, "POST", "/api/read", map[string]interface{}{
		"sensors": map[string]interface{}{"attributes": map[string]string{"room": "k"}},
		"pipeline": map[string]interface{}{
			"operations": []map[string]string{{"op": "rollup", "period": "1h", "fold": "mean"}},
		},
		"aggregate": "mean",
		"start":     start.Format(time.RFC3339),
		"end":       start.Add(time.Hour).Format(time.RFC3339),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	series := decodeSeries(t, w)
	agg, ok := series["aggregate"]
	if !ok {
		t.Fatalf("expected aggregate in response, got %v", keysOf(series))
	}
	if len(agg) != 1 || agg[0].Value != 15.0 {
		t.Errorf("expected aggregate mean 15.0, got %v", agg)
	}
}

func TestReadUnitsConversion(t *testing.T) {
	env := newTestEnv(t)
	sensor := env.addSensor(t, "outdoor", "temperature", "celsius", nil)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	env.addReadings(t, sensor.ID, start, 1, 20.0, 0.0)

	w := env.do(t, "POST", "/api/read", map[string]interface{}{
		"sensors": map[string]interface{}{"keys": []string{"outdoor"}},
		"units":   "fahrenheit",
		"start":   start.Format(time.RFC3339),
		"end":     start.Add(time.Hour).Format(time.RFC3339),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	series := decodeSeries(t, w)
	if got := series["outdoor"][0].Value; got != 68.0 {
		t.Errorf("expected 20C = 68F, got %v", got)
	}
}

func TestReadValidation(t *testing.T) {
	env := newTestEnv(t)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		body map[string]interface{}
		want int
	}{
		{"missing range", map[string]interface{}{"sensors": "all"}, http.StatusBadRequest},
		{"inverted range", map[string]interface{}{
			"sensors": "all",
			"start":   start.Format(time.RFC3339),
			"end":     start.Add(-time.Hour).Format(time.RFC3339),
		}, http.StatusBadRequest},
		{"bad pipeline", map[string]interface{}{
			"sensors":  "all",
			"pipeline": map[string]interface{}{"operations": []map[string]string{{"op": "rollup", "period": "0s", "fold": "mean"}}},
			"start":    start.Format(time.RFC3339),
			"end":      start.Add(time.Hour).Format(time.RFC3339),
		}, http.StatusBadRequest},
		{"bad aggregate", map[string]interface{}{
			"sensors":   "all",
			"aggregate": "median",
			"start":     start.Format(time.RFC3339),
			"end":       start.Add(time.Hour).Format(time.RFC3339),
		}, http.StatusBadRequest},
		{"mixed selector", map[string]interface{}{
			"sensors": map[string]interface{}{"keys": []string{"a"}, "attributes": map[string]string{"x": "y"}},
			"start":   start.Format(time.RFC3339),
			"end":     start.Add(time.Hour).Format(time.RFC3339),
		}, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, "POST", "/api/read", tc.body)
			if w.Code != tc.want {
				t.Errorf("expected %d, got %d: %s", tc.want, w.Code, w.Body.String())
			}
		})
	}

	if w := env.do(t, "GET", "/api/read", nil); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET, got %d", w.Code)
	}
}

func TestSensorsCRUD(t *testing.T) {
	env := newTestEnv(t)

	// Create
	w := env.do(t, "POST", "/api/sensors", map[string]interface{}{
		"key": "porch", "name": "Porch", "kind": "temperature", "unit": "celsius",
		"attributes": map[string]string{"room": "porch"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	// Duplicate key conflicts
	w = env.do(t, "POST", "/api/sensors", map[string]interface{}{
		"key": "porch", "name": "Other", "kind": "temperature", "unit": "celsius",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate, got %d", w.Code)
	}

	// Unknown unit rejected
	w = env.do(t, "POST", "/api/sensors", map[string]interface{}{
		"key": "odd", "name": "Odd", "kind": "temperature", "unit": "furlongs",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown unit, got %d", w.Code)
	}

	// List
	w = env.do(t, "GET", "/api/sensors", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var sensors []db.Sensor
	if err := json.Unmarshal(w.Body.Bytes(), &sensors); err != nil {
		t.Fatalf("decode sensors: %v", err)
	}
	if len(sensors) != 1 || sensors[0].Key != "porch" {
		t.Errorf("unexpected sensors %v", sensors)
	}

	// Get item
	w = env.do(t, "GET", "/api/sensors/porch", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	w = env.do(t, "GET", "/api/sensors/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}

	// Update
	w = env.do(t, "PUT", "/api/sensors/porch", map[string]interface{}{
		"name": "Porch Thermometer", "kind": "temperature", "unit": "celsius",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var updated db.Sensor
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode sensor: %v", err)
	}
	if updated.Name != "Porch Thermometer" {
		t.Errorf("expected updated name, got %q", updated.Name)
	}

	// Delete
	w = env.do(t, "DELETE", "/api/sensors/porch", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	w = env.do(t, "DELETE", "/api/sensors/porch", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 deleting twice, got %d", w.Code)
	}
}

func TestWriteReadings(t *testing.T) {
	env := newTestEnv(t)
	env.addSensor(t, "known", "temperature", "celsius", nil)

	body := []map[string]interface{}{
		{"sensor": "known", "ts": 1767225600, "value": 1.5},
		{"sensor": "known", "ts": 1767225660, "value": 2.5},
	}
	w := env.do(t, "POST", "/api/write", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["written"] != 2 || resp["sensors_created"] != 0 {
		t.Errorf("unexpected response %v", resp)
	}

	stats, err := env.db.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Readings != 2 {
		t.Errorf("expected 2 stored readings, got %d", stats.Readings)
	}
}

func TestWriteUnknownSensor(t *testing.T) {
	env := newTestEnv(t)

	body := []map[string]interface{}{{"sensor": "stranger", "ts": 1767225600, "value": 1}}

	w := env.do(t, "POST", "/api/write", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without autocreate, got %d", w.Code)
	}

	w = env.do(t, "POST", "/api/write?autocreate=1", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with autocreate, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["sensors_created"] != 1 {
		t.Errorf("expected 1 sensor created, got %v", resp)
	}

	if _, err := env.db.GetSensorByKey("stranger"); err != nil {
		t.Errorf("expected sensor registered: %v", err)
	}
}

func TestWriteFailedBatchLeavesNothingBehind(t *testing.T) {
	env := newTestEnv(t)
	env.addSensor(t, "known", "temperature", "celsius", nil)

	// Without autocreate the unknown key fails the batch. The known sensor's
	// reading must not land either.
	body := []map[string]interface{}{
		{"sensor": "known", "ts": 1767225600, "value": 1.5},
		{"sensor": "stranger", "ts": 1767225660, "value": 2.5},
	}
	w := env.do(t, "POST", "/api/write", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}

	stats, err := env.db.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Readings != 0 {
		t.Errorf("expected no readings stored after failed batch, got %d", stats.Readings)
	}
	if _, err := env.db.GetSensorByKey("stranger"); !errors.Is(err, db.ErrSensorNotFound) {
		t.Errorf("expected stranger unregistered, got %v", err)
	}
}

func TestWriteEmptyBatch(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, "POST", "/api/write", []map[string]interface{}{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty batch, got %d", w.Code)
	}
}

func TestRollupsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	sensor := env.addSensor(t, "cached", "temperature", "celsius", nil)

	// Two closed hours plus an open third; the worker caches the closed two.
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	env.addReadings(t, sensor.ID, start, 60, 10.0, 0.0)
	env.addReadings(t, sensor.ID, start.Add(time.Hour), 60, 20.0, 0.0)
	env.addReadings(t, sensor.ID, start.Add(2*time.Hour), 10, 30.0, 0.0)

	clock := timeutil.NewMockClock(time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC))
	worker := db.NewRollupWorker(env.db, clock, time.Minute)
	if err := worker.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	path := "/api/rollups?key=cached" +
		"&start=" + start.Format(time.RFC3339) + "&end=" + start.Add(3*time.Hour).Format(time.RFC3339)
	w := env.do(t, "GET", path, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Errorf("expected JSON content type, got %q", ct)
	}

	var rollups []db.HourlyRollup
	if err := json.Unmarshal(w.Body.Bytes(), &rollups); err != nil {
		t.Fatalf("decode rollups %q: %v", w.Body.String(), err)
	}
	if len(rollups) != 2 {
		t.Fatalf("expected 2 closed buckets, got %d", len(rollups))
	}
	if !rollups[0].BucketTs.Equal(start) || rollups[0].Mean != 10.0 || rollups[0].Count != 60 {
		t.Errorf("unexpected first bucket %+v", rollups[0])
	}
	if !rollups[1].BucketTs.Equal(start.Add(time.Hour)) || rollups[1].Mean != 20.0 {
		t.Errorf("unexpected second bucket %+v", rollups[1])
	}

	// An uncached window is an empty array, not null.
	w = env.do(t, "GET", "/api/rollups?key=cached&start="+
		start.Add(24*time.Hour).Format(time.RFC3339)+"&end="+start.Add(25*time.Hour).Format(time.RFC3339), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for empty window, got %d", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("expected empty array, got %q", body)
	}
}

func TestRollupsEndpointValidation(t *testing.T) {
	env := newTestEnv(t)
	env.addSensor(t, "cached", "temperature", "celsius", nil)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	window := "&start=" + start.Format(time.RFC3339) + "&end=" + start.Add(time.Hour).Format(time.RFC3339)

	cases := []struct {
		name string
		path string
		want int
	}{
		{"missing key", "/api/rollups" + window, http.StatusBadRequest},
		{"missing range", "/api/rollups?key=cached", http.StatusBadRequest},
		{"inverted range", "/api/rollups?key=cached&start=" +
			start.Add(time.Hour).Format(time.RFC3339) + "&end=" + start.Format(time.RFC3339), http.StatusBadRequest},
		{"unknown sensor", "/api/rollups?key=ghost" + window, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, "GET", tc.path, nil)
			if w.Code != tc.want {
				t.Errorf("expected %d, got %d: %s", tc.want, w.Code, w.Body.String())
			}
		})
	}

	if w := env.do(t, "POST", "/api/rollups?key=cached"+window, nil); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for POST, got %d", w.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	sensor := env.addSensor(t, "counted", "temperature", "celsius", nil)
	env.addReadings(t, sensor.ID, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), 5, 1.0, 0.0)

	w := env.do(t, "GET", "/api/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var stats db.PlatformStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Sensors != 1 || stats.Readings != 5 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestConfigEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/api/config", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var config map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &config); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if config["units"] != "celsius" || config["timezone"] != "UTC" {
		t.Errorf("unexpected config %v", config)
	}
}

func TestChartEndpoint(t *testing.T) {
	env := newTestEnv(t)
	sensor := env.addSensor(t, "charted", "temperature", "celsius", nil)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	env.addReadings(t, sensor.ID, start, 60, 10.0, 0.1)

	path := "/api/chart?keys=charted&period=1h&fold=mean" +
		"&start=" + start.Format(time.RFC3339) + "&end=" + start.Add(2*time.Hour).Format(time.RFC3339)
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("expected HTML chart, got content type %q", ct)
	}
	if !strings.Contains(w.Body.String(), "echarts") {
		t.Error("expected echarts markup in chart response")
	}

	// Missing range is a 400 with a JSON error body.
	w = env.do(t, "GET", "/api/chart?keys=charted", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without range, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Errorf("expected JSON error content type, got %q", ct)
	}
	var chartErr map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &chartErr); err != nil {
		t.Errorf("expected JSON error body, got %q", w.Body.String())
	}
}

func TestSendCommand(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("POST", "/command", strings.NewReader("command=FMT=CSV"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	if w := env.do(t, "GET", "/command", nil); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET, got %d", w.Code)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	env := newTestEnv(t)
	handler := LoggingMiddleware(env.mux)

	req := httptest.NewRequest("GET", "/api/stats", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected middleware to pass through, got %d", w.Code)
	}
}
