// Package ingest accepts sensor readings from the gateway feed, the MQTT
// broker, and the UDP listener, normalises them, and writes them to storage.
package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Event is a single normalised reading on its way into storage.
type Event struct {
	Key   string    `json:"sensor"`
	Ts    time.Time `json:"ts"`
	Value float64   `json:"value"`
}

// eventJSON is the wire form of an Event. The timestamp is unix seconds and
// may carry a fractional part; when omitted the receive time is used.
type eventJSON struct {
	Key   string   `json:"sensor"`
	Ts    *float64 `json:"ts,omitempty"`
	Value *float64 `json:"value"`
}

// ParseLine parses one feed line into an Event. Two forms are accepted:
//
//	<sensor-key>,<unix-ts>,<value>
//	{"sensor":"<key>","ts":<unix-ts>,"value":<v>}
//
// Blank lines and lines starting with '#' yield ok=false with no error.
// A zero timestamp in either form means "stamp on receipt" and is filled
// with now.
func ParseLine(line string, now time.Time) (Event, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Event{}, false, nil
	}

	if strings.HasPrefix(line, "{") {
		ev, err := parseJSONEvent([]byte(line), now)
		if err != nil {
			return Event{}, false, err
		}
		return ev, true, nil
	}

	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return Event{}, false, fmt.Errorf("malformed reading line %q: want key,ts,value", line)
	}

	key := strings.TrimSpace(parts[0])
	if key == "" {
		return Event{}, false, fmt.Errorf("malformed reading line %q: empty sensor key", line)
	}

	ts, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Event{}, false, fmt.Errorf("malformed timestamp in %q: %w", line, err)
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return Event{}, false, fmt.Errorf("malformed value in %q: %w", line, err)
	}

	at := now
	if ts > 0 {
		sec, frac := int64(ts), ts-float64(int64(ts))
		at = time.Unix(sec, int64(frac*1e9)).UTC()
	}
	return Event{Key: key, Ts: at, Value: value}, true, nil
}

func parseJSONEvent(data []byte, now time.Time) (Event, error) {
	var wire eventJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return Event{}, fmt.Errorf("malformed reading JSON: %w", err)
	}
	if wire.Key == "" {
		return Event{}, fmt.Errorf("reading JSON missing sensor key")
	}
	if wire.Value == nil {
		return Event{}, fmt.Errorf("reading JSON missing value")
	}

	at := now
	if wire.Ts != nil && *wire.Ts > 0 {
		sec, frac := int64(*wire.Ts), *wire.Ts-float64(int64(*wire.Ts))
		at = time.Unix(sec, int64(frac*1e9)).UTC()
	}
	return Event{Key: wire.Key, Ts: at, Value: *wire.Value}, nil
}
