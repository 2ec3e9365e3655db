package linemux

import (
	"context"
	"net/http"
	"sync"
)

// DisabledLineMux is a no-op LineMux implementation used when no gateway
// hardware is attached (for --disable-gateway). It allows the server and
// admin routes to run without a real device. Subscribers are tracked so
// their channels can be deterministically closed on Unsubscribe() or
// Close(), letting readers unblock predictably during shutdown.
type DisabledLineMux struct {
	mu          sync.Mutex
	subscribers map[string]chan string
	closing     bool
}

func NewDisabledLineMux() *DisabledLineMux {
	return &DisabledLineMux{
		subscribers: make(map[string]chan string),
	}
}

func (d *DisabledLineMux) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string)

	d.mu.Lock()
	if d.closing {
		// If already closing, return a closed channel so callers don't block.
		close(ch)
		d.mu.Unlock()
		return id, ch
	}
	d.subscribers[id] = ch
	d.mu.Unlock()
	return id, ch
}

func (d *DisabledLineMux) Unsubscribe(id string) {
	d.mu.Lock()
	if ch, ok := d.subscribers[id]; ok {
		close(ch)
		delete(d.subscribers, id)
	}
	d.mu.Unlock()
}

func (d *DisabledLineMux) SendCommand(string) error { return nil }

func (d *DisabledLineMux) Monitor(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }

func (d *DisabledLineMux) Close() error {
	d.mu.Lock()
	if d.closing {
		d.mu.Unlock()
		return nil
	}
	d.closing = true
	// Close all subscriber channels
	for id, ch := range d.subscribers {
		close(ch)
		delete(d.subscribers, id)
	}
	d.mu.Unlock()
	return nil
}

func (d *DisabledLineMux) Initialize() error { return nil }

func (d *DisabledLineMux) AttachAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/gateway-disabled", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("gateway disabled"))
	})
}
