package presence

import "context"

// PeerResolver maps a (room, display name) pair to a session id so that
// calls and signaling payloads can be routed to a named peer.
type PeerResolver struct {
	sessions *SessionRegistry
	rooms    *RoomRegistry
}

// NewPeerResolver returns a resolver over the given registries.
func NewPeerResolver(sessions *SessionRegistry, rooms *RoomRegistry) *PeerResolver {
	return &PeerResolver{sessions: sessions, rooms: rooms}
}

// Resolve returns the id of the first session in the room whose display name
// matches exactly (case-sensitive). Display names are not unique, and member
// iteration order is backend-dependent, so with duplicate names the winner
// is unspecified. A name with no match yields ok=false, not an error.
func (r *PeerResolver) Resolve(ctx context.Context, room, name string) (string, bool, error) {
	ids, err := r.rooms.Members(ctx, room)
	if err != nil {
		return "", false, err
	}

	for _, id := range ids {
		s, ok, err := r.sessions.Get(ctx, id)
		if err != nil {
			return "", false, err
		}
		if ok && s.Name == name {
			return id, true, nil
		}
	}
	return "", false, nil
}
