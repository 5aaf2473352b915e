// Package integration contains end-to-end tests that exercise the VoxHall
// relay through real HTTP and WebSocket connections.
package integration

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/voxhall/voxhall/test/testhelpers"
)

// TestHealthEndpoint verifies the health check responds on the root route.
func TestHealthEndpoint(t *testing.T) {
	ts := testhelpers.StartRelayServer(t)

	resp := testhelpers.MakeRequest(t, http.MethodGet, ts.URL+"/")
	defer func() { _ = resp.Body.Close() }()

	testhelpers.AssertStatusCode(t, resp, http.StatusOK)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	if string(body) != "VoxHall relay is running!" {
		t.Errorf("Health body = %q", body)
	}
}

// TestWebSocketEndpointRejectsPost verifies the upgrade endpoint only
// accepts GET requests.
func TestWebSocketEndpointRejectsPost(t *testing.T) {
	ts := testhelpers.StartRelayServer(t)

	resp := testhelpers.MakeRequest(t, http.MethodPost, ts.URL+"/ws")
	defer func() { _ = resp.Body.Close() }()

	testhelpers.AssertStatusCode(t, resp, http.StatusMethodNotAllowed)
}

// TestWebRTCConfigEndpoint verifies clients receive the configured ICE
// server list as JSON.
func TestWebRTCConfigEndpoint(t *testing.T) {
	ts := testhelpers.StartRelayServer(t)

	resp := testhelpers.MakeRequest(t, http.MethodGet, ts.URL+"/webrtc/config")
	defer func() { _ = resp.Body.Close() }()

	testhelpers.AssertStatusCode(t, resp, http.StatusOK)

	var payload struct {
		ICEServers []struct {
			URLs []string `json:"urls"`
		} `json:"iceServers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("Failed to decode WebRTC config: %v", err)
	}
	if len(payload.ICEServers) == 0 {
		t.Fatal("WebRTC config contains no ICE servers")
	}
	if len(payload.ICEServers[0].URLs) == 0 {
		t.Error("First ICE server has no urls")
	}
}

// TestTestPageServed verifies the built-in test page renders.
func TestTestPageServed(t *testing.T) {
	ts := testhelpers.StartRelayServer(t)

	resp := testhelpers.MakeRequest(t, http.MethodGet, ts.URL+"/test")
	defer func() { _ = resp.Body.Close() }()

	testhelpers.AssertStatusCode(t, resp, http.StatusOK)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	if len(body) == 0 {
		t.Error("Test page body is empty")
	}
}
