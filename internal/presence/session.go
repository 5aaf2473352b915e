package presence

import (
	"context"
	"fmt"
)

// SessionRegistry owns the session lifecycle. It is the only component that
// mutates Session records: create on connect, identity assignment on join,
// destroy on disconnect.
type SessionRegistry struct {
	backend Backend
	rooms   *RoomRegistry
}

// NewSessionRegistry returns a registry over the given backend. Room cleanup
// on destroy is delegated to rooms.
func NewSessionRegistry(backend Backend, rooms *RoomRegistry) *SessionRegistry {
	return &SessionRegistry{backend: backend, rooms: rooms}
}

// Create installs a fresh session with no display name and no room.
func (r *SessionRegistry) Create(ctx context.Context, id string) error {
	if err := r.backend.PutSession(ctx, Session{ID: id}); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Get returns the session for id. An unknown id yields ok=false, not an error.
func (r *SessionRegistry) Get(ctx context.Context, id string) (Session, bool, error) {
	return r.backend.GetSession(ctx, id)
}

// SetIdentity records the display name and room chosen at join time. It does
// not touch room membership; callers go through RoomRegistry for that.
func (r *SessionRegistry) SetIdentity(ctx context.Context, id, name, room string) error {
	if err := r.backend.PutSession(ctx, Session{ID: id, Name: name, Room: room}); err != nil {
		return fmt.Errorf("set session identity: %w", err)
	}
	return nil
}

// Destroy removes the session and, if it belonged to a room, removes it from
// that room's member set as well. Destroying an absent session is a no-op.
func (r *SessionRegistry) Destroy(ctx context.Context, id string) error {
	s, ok, err := r.backend.GetSession(ctx, id)
	if err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	if !ok {
		return nil
	}

	if s.Room != "" {
		if err := r.rooms.Leave(ctx, s.Room, id); err != nil {
			return fmt.Errorf("destroy session: %w", err)
		}
	}

	if err := r.backend.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}
