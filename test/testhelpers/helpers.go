// Package testhelpers provides common utilities for testing the VoxHall
// relay.
//
// It contains reusable helpers shared across integration tests: starting a
// relay-backed test server, making HTTP requests, and exchanging JSON events
// over WebSocket connections.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxhall/voxhall/internal/presence"
	"github.com/voxhall/voxhall/internal/server"
)

// StartRelayServer boots a relay over a fresh in-memory backend behind an
// httptest server and registers cleanup for both.
func StartRelayServer(t *testing.T) *httptest.Server {
	t.Helper()

	server.SetConfig(nil)
	relay := server.NewRelay(presence.NewMemoryBackend())
	go relay.Hub().Run()

	ts := httptest.NewServer(server.SetupRoutes(relay))
	t.Cleanup(func() {
		ts.Close()
		if err := relay.Hub().Shutdown(5 * time.Second); err != nil {
			t.Logf("hub shutdown: %v", err)
		}
	})
	return ts
}

// ConnectWebSocket opens a WebSocket connection to the test server's /ws
// endpoint and registers cleanup for it.
func ConnectWebSocket(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to %s: %v", wsURL, err)
	}
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendEvent writes one JSON event envelope to the connection.
func SendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("Failed to marshal %s data: %v", event, err)
	}
	payload, err := json.Marshal(server.Event{Event: event, Data: raw})
	if err != nil {
		t.Fatalf("Failed to marshal %s envelope: %v", event, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("Failed to send %s event: %v", event, err)
	}
}

// WaitForEvent reads events from the connection until one with the given
// name arrives, discarding others. It fails the test after the timeout.
func WaitForEvent(t *testing.T, conn *websocket.Conn, event string, timeout time.Duration) server.Event {
	t.Helper()

	deadline := time.Now().Add(timeout)
	if err := conn.SetReadDeadline(deadline); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Waiting for %s event failed: %v", event, err)
		}

		var ev server.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatalf("Received invalid event %q: %v", raw, err)
		}
		if ev.Event == event {
			return ev
		}
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s event", event)
		}
	}
}

// AssertNoEvent fails the test if any event arrives within the window.
func AssertNoEvent(t *testing.T, conn *websocket.Conn, window time.Duration) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(window)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	if _, raw, err := conn.ReadMessage(); err == nil {
		t.Fatalf("Expected silence, received: %s", raw)
	}
}

// DecodeData unmarshals an event's payload into dst.
func DecodeData(t *testing.T, ev server.Event, dst any) {
	t.Helper()
	if err := json.Unmarshal(ev.Data, dst); err != nil {
		t.Fatalf("Failed to decode %s data: %v", ev.Event, err)
	}
}

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// MakeRequest creates and executes an HTTP request with a 5-second timeout.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{Timeout: 5 * time.Second}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	return resp
}
