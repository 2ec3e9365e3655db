package ingest

import (
	"context"
	"fmt"

	"github.com/harrier-data/sensor.report/internal/db"
	"github.com/harrier-data/sensor.report/internal/monitoring"
	"github.com/harrier-data/sensor.report/internal/timeutil"
)

// Subscriber is the subset of the line mux the handler consumes.
type Subscriber interface {
	Subscribe() (string, chan string)
	Unsubscribe(string)
}

// Handler normalises incoming readings, resolves their sensor, stores them,
// and publishes them to live listeners.
type Handler struct {
	DB    *db.DB
	Hub   *Hub
	Clock timeutil.Clock

	// AutoCreate registers unknown sensor keys on first sight instead of
	// rejecting their readings.
	AutoCreate bool
}

// NewHandler wires a handler over storage and the live hub. A nil hub
// disables live publishing.
func NewHandler(database *db.DB, hub *Hub, clock timeutil.Clock, autoCreate bool) *Handler {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Handler{DB: database, Hub: hub, Clock: clock, AutoCreate: autoCreate}
}

// HandleLine parses and stores a single feed line. Blank and comment lines
// are dropped silently.
func (h *Handler) HandleLine(line string) error {
	ev, ok, err := ParseLine(line, h.Clock.Now())
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return h.HandleEvent(ev)
}

// HandleEvent resolves the event's sensor and stores the reading.
func (h *Handler) HandleEvent(ev Event) error {
	sensor, err := h.DB.GetSensorByKey(ev.Key)
	if err == db.ErrSensorNotFound && h.AutoCreate {
		sensor = &db.Sensor{Key: ev.Key, Name: ev.Key, Kind: "unknown", Unit: "raw"}
		if err := h.DB.CreateSensor(sensor); err != nil {
			return fmt.Errorf("autocreate sensor %q: %w", ev.Key, err)
		}
		monitoring.Logf("registered new sensor %q from incoming reading", ev.Key)
	} else if err != nil {
		return fmt.Errorf("resolve sensor %q: %w", ev.Key, err)
	}

	if err := h.DB.InsertReading(sensor.ID, ev.Ts, ev.Value); err != nil {
		return fmt.Errorf("store reading for %q: %w", ev.Key, err)
	}

	if h.Hub != nil {
		h.Hub.Broadcast(ev)
	}
	return nil
}

// Pump consumes lines from a mux subscription until the context is done.
// Malformed lines are logged and skipped so one bad sensor cannot stall the
// feed.
func (h *Handler) Pump(ctx context.Context, mux Subscriber) {
	id, ch := mux.Subscribe()
	defer mux.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-ch:
			if !ok {
				return
			}
			if err := h.HandleLine(line); err != nil {
				monitoring.Logf("ingest: %v", err)
			}
		}
	}
}
