// Package server wires HTTP handlers into a ServeMux for the VoxHall
// application via routing helpers.
package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes: health check, WebSocket endpoint, client WebRTC configuration, and
// the test page.
func SetupRoutes(relay *Relay) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/ws", relay.WebSocketHandler)
	mux.HandleFunc("/webrtc/config", WebRTCConfigHandler)
	mux.HandleFunc("/test", TestPageHandler)
	return mux
}
