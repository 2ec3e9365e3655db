package ingest

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"

	"github.com/harrier-data/sensor.report/internal/monitoring"
)

// topicPrefix is the topic space readings are published under; the sensor
// key is the remainder of the topic: sensors/<key>.
const topicPrefix = "sensors/"

// Broker is an embedded MQTT broker that feeds published readings into the
// ingest handler. Devices publish to sensors/<key> with either a bare float
// payload or the reading JSON form.
type Broker struct {
	server  *mqtt.Server
	handler *Handler
}

// NewBroker builds a broker listening on addr (e.g. ":1883").
func NewBroker(addr string, handler *Handler) (*Broker, error) {
	server := mqtt.New(&mqtt.Options{InlineClient: false})

	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("failed to add auth hook: %w", err)
	}

	b := &Broker{server: server, handler: handler}
	if err := server.AddHook(&readingHook{broker: b}, nil); err != nil {
		return nil, fmt.Errorf("failed to add reading hook: %w", err)
	}

	tcp := listeners.NewTCP(listeners.Config{ID: "ingest", Address: addr})
	if err := server.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("failed to add TCP listener: %w", err)
	}

	return b, nil
}

// Serve runs the broker until Close is called.
func (b *Broker) Serve() error {
	return b.server.Serve()
}

// Close shuts the broker down.
func (b *Broker) Close() error {
	return b.server.Close()
}

// handlePublish ingests one published message. The topic names the sensor;
// the payload is a bare float value, or the reading JSON form when it needs
// its own timestamp or key.
func (b *Broker) handlePublish(topic string, payload []byte) error {
	if !strings.HasPrefix(topic, topicPrefix) {
		return nil // not a reading topic
	}
	key := strings.TrimPrefix(topic, topicPrefix)
	if key == "" || strings.Contains(key, "/") {
		return fmt.Errorf("invalid reading topic %q", topic)
	}

	body := strings.TrimSpace(string(payload))
	if strings.HasPrefix(body, "{") {
		ev, err := parseJSONEvent([]byte(body), b.handler.Clock.Now())
		if err != nil {
			return err
		}
		if ev.Key != key {
			return fmt.Errorf("payload sensor %q does not match topic %q", ev.Key, topic)
		}
		return b.handler.HandleEvent(ev)
	}

	value, err := strconv.ParseFloat(body, 64)
	if err != nil {
		return fmt.Errorf("malformed value %q on %q: %w", body, topic, err)
	}
	return b.handler.HandleEvent(Event{Key: key, Ts: b.handler.Clock.Now(), Value: value})
}

// readingHook feeds published packets into the broker's handler.
type readingHook struct {
	mqtt.HookBase
	broker *Broker
}

func (h *readingHook) ID() string { return "sensor-readings" }

func (h *readingHook) Provides(b byte) bool {
	return bytes.Contains([]byte{
		mqtt.OnConnect,
		mqtt.OnPublish,
	}, []byte{b})
}

func (h *readingHook) OnConnect(cl *mqtt.Client, pk packets.Packet) error {
	monitoring.Logf("mqtt client connected: %s", cl.ID)
	return nil
}

func (h *readingHook) OnPublish(cl *mqtt.Client, pk packets.Packet) (packets.Packet, error) {
	if err := h.broker.handlePublish(pk.TopicName, pk.Payload); err != nil {
		// reject the reading but keep the session alive
		monitoring.Logf("mqtt ingest: %v", err)
	}
	return pk, nil
}
