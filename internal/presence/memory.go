package presence

import (
	"context"
	"sync"
)

// MemoryBackend keeps sessions and room membership in process-local maps.
// It is safe for concurrent use but its state is invisible to other
// processes: running several relay processes against separate memory
// backends silently partitions presence, so deployments that scale out must
// use the Redis backend instead.
type MemoryBackend struct {
	mu       sync.RWMutex
	sessions map[string]Session
	rooms    map[string]map[string]struct{}
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		sessions: make(map[string]Session),
		rooms:    make(map[string]map[string]struct{}),
	}
}

// GetSession returns the stored session for id, if any.
func (m *MemoryBackend) GetSession(_ context.Context, id string) (Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	return s, ok, nil
}

// PutSession stores or replaces the session keyed by its ID.
func (m *MemoryBackend) PutSession(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.ID] = s
	return nil
}

// DeleteSession removes the session if present.
func (m *MemoryBackend) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

// RoomMembers returns the session ids currently in the room.
func (m *MemoryBackend) RoomMembers(_ context.Context, room string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	members := m.rooms[room]
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids, nil
}

// AddMember adds id to the room's member set, creating the room if needed.
func (m *MemoryBackend) AddMember(_ context.Context, room, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.addLocked(room, id)
	return nil
}

// AddMemberBounded adds id to the room only while the member count is below
// max. The count check and the insert happen under one lock acquisition, so
// concurrent joiners cannot push a room past capacity.
func (m *MemoryBackend) AddMemberBounded(_ context.Context, room, id string, max int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[room][id]; ok {
		return true, nil
	}
	if len(m.rooms[room]) >= max {
		return false, nil
	}
	m.addLocked(room, id)
	return true, nil
}

func (m *MemoryBackend) addLocked(room, id string) {
	members, ok := m.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		m.rooms[room] = members
	}
	members[id] = struct{}{}
}

// RemoveMember removes id from the room. A missing room or member is a no-op.
func (m *MemoryBackend) RemoveMember(_ context.Context, room, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if members, ok := m.rooms[room]; ok {
		delete(members, id)
	}
	return nil
}

// DeleteRoom removes the room's member set entirely.
func (m *MemoryBackend) DeleteRoom(_ context.Context, room string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.rooms, room)
	return nil
}

// Ping always succeeds for the in-memory backend.
func (m *MemoryBackend) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory backend.
func (m *MemoryBackend) Close() error {
	return nil
}
