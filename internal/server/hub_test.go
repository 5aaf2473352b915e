package server

import (
	"testing"
	"time"

	"github.com/voxhall/voxhall/internal/presence"
)

// TestHubRunAndShutdown verifies the hub loop starts, survives a nil
// registration, and shuts down within the timeout.
func TestHubRunAndShutdown(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	select {
	case hub.register <- nil:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("register channel did not accept input")
	}

	if err := hub.Shutdown(time.Second); err != nil {
		t.Errorf("Shutdown returned %v", err)
	}
}

// TestSendToUnknownSession verifies fire-and-forget delivery: sending to an
// unregistered session id is a silent no-op.
func TestSendToUnknownSession(t *testing.T) {
	hub := NewHub()
	hub.SendTo("nobody", []byte(`{"event":"server_message"}`))
}

// TestUnregisterAfterShutdownDoesNotBlock verifies that a read pump
// unwinding after the hub stopped does not hang on the unregister hand-off.
func TestUnregisterAfterShutdownDoesNotBlock(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	if err := hub.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown returned %v", err)
	}

	c := NewClient(nil, hub, "sid-late", "test")
	done := make(chan struct{})
	go func() {
		c.signalUnregister()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unregister hand-off blocked after hub shutdown")
	}
}

// TestSlowClientIsDropped verifies that a client with a full send buffer is
// removed from the hub instead of blocking delivery.
func TestSlowClientIsDropped(t *testing.T) {
	relay := NewRelay(presence.NewMemoryBackend())
	hub := relay.hub

	c := NewClient(nil, hub, "sid-slow", "test")
	hub.clients[c.sid] = c

	for i := 0; i < cap(c.send); i++ {
		c.send <- []byte("backlog")
	}

	hub.SendTo("sid-slow", []byte("one too many"))

	if _, ok := hub.clients["sid-slow"]; ok {
		t.Error("client with full send buffer still registered")
	}
	if !c.closed {
		t.Error("dropped client not marked closed")
	}
}
