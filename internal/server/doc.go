// Package server implements the HTTP and WebSocket transport for the
// VoxHall signaling relay.
//
// The implementation is organized into specialized files for configuration,
// hub management, clients, event routing, and HTTP handlers to keep the
// codebase maintainable and testable as the project grows. The presence
// state itself lives in the internal/presence package and is injected
// through the Relay type.
package server
