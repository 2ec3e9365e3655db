package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/harrier-data/sensor.report/internal/pipeline"
	"github.com/harrier-data/sensor.report/internal/selector"
	"github.com/harrier-data/sensor.report/internal/units"
)

// apiTime accepts either an RFC 3339 string or unix seconds (with optional
// fraction) in request bodies.
type apiTime struct {
	time.Time
}

func (t *apiTime) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		parsed, err := time.Parse(time.RFC3339, asString)
		if err != nil {
			return fmt.Errorf("invalid time %q: want RFC 3339 or unix seconds", asString)
		}
		t.Time = parsed
		return nil
	}

	var asUnix float64
	if err := json.Unmarshal(data, &asUnix); err != nil {
		return fmt.Errorf("invalid time: want RFC 3339 or unix seconds")
	}
	sec, frac := int64(asUnix), asUnix-float64(int64(asUnix))
	t.Time = time.Unix(sec, int64(frac*1e9)).UTC()
	return nil
}

// readRequest is the body of POST /api/read.
type readRequest struct {
	Sensors   selector.Selector  `json:"sensors"`
	Pipeline  *pipeline.Pipeline `json:"pipeline"`
	Start     apiTime            `json:"start"`
	End       apiTime            `json:"end"`
	Aggregate pipeline.Fold      `json:"aggregate,omitempty"`
	Units     string             `json:"units,omitempty"`
}

// aggregateKey is the response key for the cross-sensor combined series.
const aggregateKey = "aggregate"

// httpError carries a status code out of the shared query path.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(format string, args ...interface{}) *httpError {
	return &httpError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func serverError(format string, args ...interface{}) *httpError {
	return &httpError{status: http.StatusInternalServerError, msg: fmt.Sprintf(format, args...)}
}

func (req *readRequest) validate() *httpError {
	if req.Start.IsZero() || req.End.IsZero() {
		return badRequest("Missing 'start' or 'end'")
	}
	if !req.Start.Before(req.End.Time) {
		return badRequest("'start' must be before 'end'")
	}
	if err := req.Sensors.Validate(); err != nil {
		return badRequest("Invalid selector: %v", err)
	}
	if req.Aggregate != "" && !req.Aggregate.IsValid() {
		return badRequest("Unknown aggregate fold %q", req.Aggregate)
	}
	return nil
}

// runRead resolves the selector, executes the pipeline over each sensor's
// readings in [start, end), and returns the transformed series keyed by
// sensor key. Multi-output pipelines fan out as "<key>/<output>".
func (s *Server) runRead(req readRequest) (map[string]pipeline.Series, *httpError) {
	if herr := req.validate(); herr != nil {
		return nil, herr
	}

	p := req.Pipeline
	if p == nil {
		p = pipeline.Start()
	}
	p = p.In(s.location)
	if err := p.Validate(); err != nil {
		return nil, badRequest("Invalid pipeline: %v", err)
	}

	sensors, err := s.db.SensorsMatching(req.Sensors)
	if err != nil {
		return nil, serverError("Failed to resolve sensors: %v", err)
	}

	response := make(map[string]pipeline.Series)
	for _, sensor := range sensors {
		series, err := s.db.SelectSeries(sensor.ID, req.Start.Time, req.End.Time)
		if err != nil {
			return nil, serverError("Failed to read series: %v", err)
		}
		if req.Units != "" {
			series = convertSeries(series, sensor.Unit, req.Units)
		}

		result, err := p.Execute(series)
		if err != nil {
			return nil, badRequest("Pipeline failed for %q: %v", sensor.Key, err)
		}

		for output, out := range result {
			name := sensor.Key
			if output != pipeline.DefaultOutput {
				name = sensor.Key + "/" + output
			}
			response[name] = out
		}
	}

	if req.Aggregate != "" {
		combined, err := pipeline.Aggregate(req.Aggregate, sortedSeries(response)...)
		if err != nil {
			return nil, badRequest("Aggregate failed: %v", err)
		}
		response[aggregateKey] = combined
	}

	return response, nil
}

func (s *Server) readSeries(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req readRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid read request: %v", err))
		return
	}

	response, herr := s.runRead(req)
	if herr != nil {
		s.writeJSONError(w, herr.status, herr.msg)
		return
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write read response")
		return
	}
}

// convertSeries converts every value from the sensor's canonical unit to the
// requested target; unknown pairs pass through unchanged.
func convertSeries(series pipeline.Series, canonical, target string) pipeline.Series {
	out := make(pipeline.Series, len(series))
	for i, pt := range series {
		out[i] = pipeline.Point{Ts: pt.Ts, Value: units.Convert(pt.Value, canonical, target)}
	}
	return out
}

// sortedSeries flattens a named series map in deterministic key order.
func sortedSeries(m map[string]pipeline.Series) []pipeline.Series {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]pipeline.Series, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
