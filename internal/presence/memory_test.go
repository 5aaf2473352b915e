package presence

import (
	"context"
	"testing"
)

// TestMemoryBackendSessions verifies the session CRUD operations of the
// in-memory backend, including the absent-key behavior of the contract.
func TestMemoryBackendSessions(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	if _, ok, err := backend.GetSession(ctx, "missing"); err != nil || ok {
		t.Fatalf("GetSession on empty backend = ok %v, err %v; want absent, nil", ok, err)
	}

	if err := backend.PutSession(ctx, Session{ID: "sid1", Name: "Alice", Room: "lobby"}); err != nil {
		t.Fatalf("PutSession failed: %v", err)
	}

	s, ok, err := backend.GetSession(ctx, "sid1")
	if err != nil || !ok {
		t.Fatalf("GetSession = ok %v, err %v; want present, nil", ok, err)
	}
	if s.Name != "Alice" || s.Room != "lobby" {
		t.Errorf("GetSession returned %+v; want Alice in lobby", s)
	}

	if err := backend.DeleteSession(ctx, "sid1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, ok, _ := backend.GetSession(ctx, "sid1"); ok {
		t.Error("session still present after DeleteSession")
	}

	// Deleting an absent session must stay a no-op.
	if err := backend.DeleteSession(ctx, "sid1"); err != nil {
		t.Errorf("DeleteSession on absent session returned %v", err)
	}
}

// TestMemoryBackendRooms verifies member add/remove semantics and that an
// unknown room reads as an empty member set rather than an error.
func TestMemoryBackendRooms(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	ids, err := backend.RoomMembers(ctx, "nowhere")
	if err != nil {
		t.Fatalf("RoomMembers on unknown room returned %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("RoomMembers on unknown room = %v; want empty", ids)
	}

	for _, id := range []string{"sid1", "sid2"} {
		if err := backend.AddMember(ctx, "lobby", id); err != nil {
			t.Fatalf("AddMember(%s) failed: %v", id, err)
		}
	}
	// Re-adding a member must not duplicate it.
	if err := backend.AddMember(ctx, "lobby", "sid1"); err != nil {
		t.Fatalf("AddMember(duplicate) failed: %v", err)
	}

	ids, _ = backend.RoomMembers(ctx, "lobby")
	if len(ids) != 2 {
		t.Errorf("lobby has %d members %v; want 2", len(ids), ids)
	}

	if err := backend.RemoveMember(ctx, "lobby", "sid1"); err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}
	if err := backend.RemoveMember(ctx, "lobby", "ghost"); err != nil {
		t.Errorf("RemoveMember of absent member returned %v", err)
	}

	ids, _ = backend.RoomMembers(ctx, "lobby")
	if len(ids) != 1 || ids[0] != "sid2" {
		t.Errorf("lobby members = %v; want [sid2]", ids)
	}

	if err := backend.DeleteRoom(ctx, "lobby"); err != nil {
		t.Fatalf("DeleteRoom failed: %v", err)
	}
	if ids, _ := backend.RoomMembers(ctx, "lobby"); len(ids) != 0 {
		t.Errorf("lobby members after DeleteRoom = %v; want empty", ids)
	}
}

// TestMemoryBackendBoundedAdd verifies that AddMemberBounded refuses new
// members at capacity but keeps accepting ids that are already members.
func TestMemoryBackendBoundedAdd(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	joined, err := backend.AddMemberBounded(ctx, "lobby", "sid1", 2)
	if err != nil || !joined {
		t.Fatalf("AddMemberBounded(sid1) = %v, %v; want joined", joined, err)
	}
	if joined, _ := backend.AddMemberBounded(ctx, "lobby", "sid2", 2); !joined {
		t.Fatal("AddMemberBounded(sid2) refused below capacity")
	}

	if joined, _ := backend.AddMemberBounded(ctx, "lobby", "sid3", 2); joined {
		t.Error("AddMemberBounded(sid3) succeeded at capacity")
	}
	if ids, _ := backend.RoomMembers(ctx, "lobby"); len(ids) != 2 {
		t.Errorf("lobby has %d members after refused join; want 2", len(ids))
	}

	// An existing member re-joining must succeed even at capacity.
	if joined, _ := backend.AddMemberBounded(ctx, "lobby", "sid1", 2); !joined {
		t.Error("AddMemberBounded refused an existing member at capacity")
	}
}
