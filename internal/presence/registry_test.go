package presence

import (
	"context"
	"testing"
)

func newRegistries() (*SessionRegistry, *RoomRegistry) {
	backend := NewMemoryBackend()
	rooms := NewRoomRegistry(backend)
	sessions := NewSessionRegistry(backend, rooms)
	return sessions, rooms
}

// TestSessionLifecycle walks a session through create, join, and destroy and
// checks the membership-consistency invariant at each step: a session's room
// field and the room's member set always agree.
func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	sessions, rooms := newRegistries()

	if err := sessions.Create(ctx, "sid1"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	s, ok, err := sessions.Get(ctx, "sid1")
	if err != nil || !ok {
		t.Fatalf("Get after Create = ok %v, err %v", ok, err)
	}
	if s.Room != "" || s.Name != "" {
		t.Errorf("fresh session = %+v; want empty name and room", s)
	}

	if err := sessions.SetIdentity(ctx, "sid1", "Alice", "lobby"); err != nil {
		t.Fatalf("SetIdentity failed: %v", err)
	}
	if err := rooms.Join(ctx, "lobby", "sid1"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	s, _, _ = sessions.Get(ctx, "sid1")
	members, _ := rooms.Members(ctx, s.Room)
	if len(members) != 1 || members[0] != "sid1" {
		t.Errorf("members of %q = %v; want [sid1]", s.Room, members)
	}

	if err := sessions.Destroy(ctx, "sid1"); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if _, ok, _ := sessions.Get(ctx, "sid1"); ok {
		t.Error("session still present after Destroy")
	}
	if members, _ := rooms.Members(ctx, "lobby"); len(members) != 0 {
		t.Errorf("lobby members after Destroy = %v; want empty", members)
	}

	// Destroy is idempotent.
	if err := sessions.Destroy(ctx, "sid1"); err != nil {
		t.Errorf("second Destroy returned %v", err)
	}
}

// TestRoomExistenceInvariant checks that a room entity exists exactly while
// it has members: implicit creation on first join, implicit deletion when
// the last member leaves.
func TestRoomExistenceInvariant(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	rooms := NewRoomRegistry(backend)

	if err := rooms.Join(ctx, "lobby", "sid1"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if err := rooms.Join(ctx, "lobby", "sid2"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	if n, _ := rooms.Size(ctx, "lobby"); n != 2 {
		t.Errorf("Size = %d; want 2", n)
	}

	if err := rooms.Leave(ctx, "lobby", "sid1"); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if n, _ := rooms.Size(ctx, "lobby"); n != 1 {
		t.Errorf("Size after one leave = %d; want 1", n)
	}

	if err := rooms.Leave(ctx, "lobby", "sid2"); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if members, _ := rooms.Members(ctx, "lobby"); len(members) != 0 {
		t.Errorf("empty room still has members %v", members)
	}
	// The backing entity must be gone, not just empty.
	if _, ok := backend.rooms["lobby"]; ok {
		t.Error("room entity survives with zero members")
	}
}

// TestJoinBoundedCapacity verifies the atomic capacity-limited join: joins
// succeed up to max and a refused join leaves the room size unchanged.
func TestJoinBoundedCapacity(t *testing.T) {
	ctx := context.Background()
	_, rooms := newRegistries()

	for _, id := range []string{"sid1", "sid2", "sid3"} {
		joined, err := rooms.JoinBounded(ctx, "huddle", id, 3)
		if err != nil || !joined {
			t.Fatalf("JoinBounded(%s) = %v, %v; want joined", id, joined, err)
		}
	}

	joined, err := rooms.JoinBounded(ctx, "huddle", "sid4", 3)
	if err != nil {
		t.Fatalf("JoinBounded at capacity returned %v", err)
	}
	if joined {
		t.Error("JoinBounded admitted a member past capacity")
	}
	if n, _ := rooms.Size(ctx, "huddle"); n != 3 {
		t.Errorf("Size after refused join = %d; want 3", n)
	}
}

// TestPeerResolver covers exact-match resolution, misses, and case
// sensitivity, plus room isolation of equal display names.
func TestPeerResolver(t *testing.T) {
	ctx := context.Background()
	sessions, rooms := newRegistries()
	resolver := NewPeerResolver(sessions, rooms)

	seed := []Session{
		{ID: "sid1", Name: "Alice", Room: "lobby"},
		{ID: "sid2", Name: "Bob", Room: "lobby"},
		{ID: "sid3", Name: "Alice", Room: "den"},
	}
	for _, s := range seed {
		if err := sessions.SetIdentity(ctx, s.ID, s.Name, s.Room); err != nil {
			t.Fatalf("SetIdentity(%s) failed: %v", s.ID, err)
		}
		if err := rooms.Join(ctx, s.Room, s.ID); err != nil {
			t.Fatalf("Join(%s) failed: %v", s.ID, err)
		}
	}

	id, ok, err := resolver.Resolve(ctx, "lobby", "Bob")
	if err != nil || !ok || id != "sid2" {
		t.Errorf("Resolve(lobby, Bob) = %q, %v, %v; want sid2", id, ok, err)
	}

	// The Alice in den must not shadow the one in lobby.
	id, ok, _ = resolver.Resolve(ctx, "lobby", "Alice")
	if !ok || id != "sid1" {
		t.Errorf("Resolve(lobby, Alice) = %q, %v; want sid1", id, ok)
	}

	if _, ok, _ := resolver.Resolve(ctx, "lobby", "alice"); ok {
		t.Error("Resolve matched case-insensitively")
	}
	if _, ok, _ := resolver.Resolve(ctx, "lobby", "Carol"); ok {
		t.Error("Resolve found a peer that never joined")
	}
	if _, ok, _ := resolver.Resolve(ctx, "void", "Alice"); ok {
		t.Error("Resolve found a peer in a room that does not exist")
	}
}
