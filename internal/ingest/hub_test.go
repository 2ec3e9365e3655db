package ingest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialTestHub(t *testing.T, hub *Hub) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("websocket dial failed: %v", err)
	}
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	conn, cleanup := dialTestHub(t, hub)
	defer cleanup()

	// Registration happens in the upgrade handler; wait for it.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}

	want := Event{Key: "garage-temp", Ts: time.Unix(1767225600, 0).UTC(), Value: 21.5}
	hub.Broadcast(want)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if got.Key != want.Key || got.Value != want.Value || !got.Ts.Equal(want.Ts) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestHubRemovesClosedClients(t *testing.T) {
	hub := NewHub()
	conn, cleanup := dialTestHub(t, hub)
	defer cleanup()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	conn.Close()

	// The read loop notices the close and removes the client.
	deadline = time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount() != 0 {
		t.Errorf("expected closed client removed, have %d", hub.ClientCount())
	}
}

func TestHubClose(t *testing.T) {
	hub := NewHub()
	_, cleanup := dialTestHub(t, hub)
	defer cleanup()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	hub.Close()
	if hub.ClientCount() != 0 {
		t.Errorf("expected no clients after Close, have %d", hub.ClientCount())
	}

	// Broadcast after close is a no-op.
	hub.Broadcast(Event{Key: "x", Value: 1})
}
