package presence

import (
	"context"
	"fmt"
)

// RoomRegistry owns room membership. Rooms are created implicitly on the
// first join and destroyed implicitly when the last member leaves, so a room
// exists exactly while its member set is non-empty.
type RoomRegistry struct {
	backend Backend
}

// NewRoomRegistry returns a registry over the given backend.
func NewRoomRegistry(backend Backend) *RoomRegistry {
	return &RoomRegistry{backend: backend}
}

// Members returns the session ids currently in the room. An unknown room
// yields an empty slice.
func (r *RoomRegistry) Members(ctx context.Context, room string) ([]string, error) {
	return r.backend.RoomMembers(ctx, room)
}

// Size returns the current member count of the room.
func (r *RoomRegistry) Size(ctx context.Context, room string) (int, error) {
	ids, err := r.backend.RoomMembers(ctx, room)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Join adds id to the room, creating the room if needed. Capacity is not
// checked here; capacity-aware callers use JoinBounded.
func (r *RoomRegistry) Join(ctx context.Context, room, id string) error {
	if err := r.backend.AddMember(ctx, room, id); err != nil {
		return fmt.Errorf("join room %q: %w", room, err)
	}
	return nil
}

// JoinBounded adds id to the room only while the member count is below max.
// The check and the insert are one atomic backend operation, so a room never
// exceeds capacity even under concurrent joins through a shared backend.
func (r *RoomRegistry) JoinBounded(ctx context.Context, room, id string, max int) (bool, error) {
	joined, err := r.backend.AddMemberBounded(ctx, room, id, max)
	if err != nil {
		return false, fmt.Errorf("join room %q: %w", room, err)
	}
	return joined, nil
}

// Leave removes id from the room and deletes the room entity once its member
// set is empty.
func (r *RoomRegistry) Leave(ctx context.Context, room, id string) error {
	if err := r.backend.RemoveMember(ctx, room, id); err != nil {
		return fmt.Errorf("leave room %q: %w", room, err)
	}

	remaining, err := r.backend.RoomMembers(ctx, room)
	if err != nil {
		return fmt.Errorf("leave room %q: %w", room, err)
	}
	if len(remaining) == 0 {
		if err := r.backend.DeleteRoom(ctx, room); err != nil {
			return fmt.Errorf("leave room %q: %w", room, err)
		}
	}
	return nil
}
