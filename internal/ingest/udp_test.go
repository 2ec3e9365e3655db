package ingest

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestUDPListenerIngestsDatagrams(t *testing.T) {
	database := newTestDB(t)
	handler := NewHandler(database, nil, nil, true)

	listener := NewUDPListener(UDPListenerConfig{
		Address: "127.0.0.1:0",
		Handler: handler,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- listener.Start(ctx) }()

	// Wait for the socket to bind.
	deadline := time.Now().Add(2 * time.Second)
	for listener.Addr() == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	addr := listener.Addr()
	if addr == nil {
		t.Fatal("listener did not bind")
	}

	conn, err := net.Dial("udp", addr.String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// One datagram with two lines, one CSV and one JSON.
	payload := "udp-a,1767225600,1.5\n{\"sensor\":\"udp-b\",\"ts\":1767225601,\"value\":2.5}\n"
	if _, err := conn.Write([]byte(payload)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	// Poll for both readings to land.
	deadline = time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		stats, err := database.Stats()
		if err == nil && stats.Readings == 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	stats, err := database.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Readings != 2 {
		t.Fatalf("expected 2 readings ingested, got %d", stats.Readings)
	}
	if stats.Sensors != 2 {
		t.Errorf("expected 2 sensors autocreated, got %d", stats.Sensors)
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("listener did not stop after cancel")
	}
}

func TestUDPListenerBadAddress(t *testing.T) {
	listener := NewUDPListener(UDPListenerConfig{
		Address: "not-an-address",
		Handler: NewHandler(nil, nil, nil, false),
	})
	if err := listener.Start(context.Background()); err == nil {
		t.Error("expected error for unresolvable address")
	}
}
