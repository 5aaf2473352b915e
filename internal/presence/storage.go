// Package presence implements the session and room registries that back the
// VoxHall signaling relay, layered over a pluggable storage backend.
//
// The registries hold the only real state in the system: which connections
// are alive, what display name each one picked, and which room it sits in.
// Two Backend implementations exist: a process-local in-memory store and a
// Redis store that can be shared by multiple relay processes.
package presence

import "context"

// Session is the server-side record of one live client connection. The ID is
// assigned by the transport layer at upgrade time and is opaque here. Room is
// empty until the session joins a room.
type Session struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Room string `json:"room,omitempty"`
}

// Backend is the storage contract shared by the in-memory and Redis
// implementations.
//
// All operations are total: reading a missing session yields ok=false and
// reading a missing room yields an empty member list, never an error. Errors
// indicate backend connectivity problems only; callers are expected to log
// them and skip the triggering event's effect rather than crash.
type Backend interface {
	// GetSession returns the stored session for id, if any.
	GetSession(ctx context.Context, id string) (Session, bool, error)
	// PutSession stores or replaces the session keyed by its ID.
	PutSession(ctx context.Context, s Session) error
	// DeleteSession removes the session. Deleting an absent session is a no-op.
	DeleteSession(ctx context.Context, id string) error

	// RoomMembers returns the session ids in the room. Iteration order is
	// unspecified and may differ between backends.
	RoomMembers(ctx context.Context, room string) ([]string, error)
	// AddMember adds id to the room's member set, creating the room if needed.
	AddMember(ctx context.Context, room, id string) error
	// AddMemberBounded adds id to the room only while the member count is
	// below max, as a single atomic step. It reports whether id is a member
	// afterwards; adding an existing member always succeeds.
	AddMemberBounded(ctx context.Context, room, id string, max int) (bool, error)
	// RemoveMember removes id from the room. Absent room or member is a no-op.
	RemoveMember(ctx context.Context, room, id string) error
	// DeleteRoom removes the room's member set entirely.
	DeleteRoom(ctx context.Context, room string) error

	// Ping verifies backend connectivity. Used at startup, where a failure
	// on a shared backend is fatal.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}
