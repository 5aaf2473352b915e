// Package server routes inbound client events through the presence
// registries: joins, chat broadcast, and call/negotiation relay.
package server

import (
	"context"
	"encoding/json"
	"log"
	"time"
	"unicode/utf8"

	"github.com/voxhall/voxhall/internal/presence"
)

// Relay is the signaling router. It owns the hub and the presence
// registries, validates inbound events, and forwards or broadcasts the
// resulting outbound events. All state lives in the injected storage
// backend, so independent Relay instances never share anything.
type Relay struct {
	hub      *Hub
	sessions *presence.SessionRegistry
	rooms    *presence.RoomRegistry
	resolver *presence.PeerResolver
}

// NewRelay wires a Relay over the given storage backend.
func NewRelay(backend presence.Backend) *Relay {
	rooms := presence.NewRoomRegistry(backend)
	sessions := presence.NewSessionRegistry(backend, rooms)

	relay := &Relay{
		hub:      NewHub(),
		sessions: sessions,
		rooms:    rooms,
		resolver: presence.NewPeerResolver(sessions, rooms),
	}
	relay.hub.SetHandler(relay)
	return relay
}

// Hub returns the relay's connection hub for startup and shutdown wiring.
func (r *Relay) Hub() *Hub {
	return r.hub
}

// HandleConnect installs a fresh session for the new connection and greets
// it.
func (r *Relay) HandleConnect(c *Client) {
	ctx := context.Background()

	if err := r.sessions.Create(ctx, c.sid); err != nil {
		log.Printf("Creating session %s failed: %v", c.sid, err)
		return
	}
	r.sendEvent(c.sid, evServerMessage, ServerMessage{Msg: "Connected to server"})
}

// HandleEvent dispatches one inbound event to its handler.
func (r *Relay) HandleEvent(c *Client, ev Event) {
	switch ev.Event {
	case evJoin:
		r.handleJoin(c, ev.Data)
	case evTextMessage:
		r.handleTextMessage(c, ev.Data)
	case evCallUser:
		r.handleCallUser(c, ev.Data)
	case evCallAnswer:
		r.handleCallAnswer(c, ev.Data)
	case evWebRTCSignal:
		r.handleWebRTCSignal(c, ev.Data)
	case evHangup:
		r.handleHangup(c, ev.Data)
	default:
		log.Printf("Unknown event %q from %s; discarding", ev.Event, c.addr)
	}
}

// HandleDisconnect tears down the session: room membership, membership
// broadcast to the remaining room, session record. Safe to call for
// already-destroyed sessions.
func (r *Relay) HandleDisconnect(sessionID string) {
	ctx := context.Background()

	s, ok, err := r.sessions.Get(ctx, sessionID)
	if err != nil {
		log.Printf("Disconnect lookup for %s failed: %v", sessionID, err)
		return
	}
	if !ok {
		return
	}

	if err := r.sessions.Destroy(ctx, sessionID); err != nil {
		log.Printf("Destroying session %s failed: %v", sessionID, err)
		return
	}

	if s.Room != "" {
		ids, names, err := r.roomUsers(ctx, s.Room)
		if err != nil {
			log.Printf("Listing room %q after disconnect failed: %v", s.Room, err)
			return
		}
		r.broadcast(ids, evUserLeft, RoomUpdate{Username: s.Name, Users: names})
		log.Printf("%s left %s", s.Name, s.Room)
	}
}

func (r *Relay) handleJoin(c *Client, data json.RawMessage) {
	ctx := context.Background()
	cfg := currentConfig()

	var req JoinRequest
	if err := json.Unmarshal(data, &req); err != nil {
		r.sendError(c.sid, "invalid join payload")
		return
	}
	if req.Room == "" {
		req.Room = "lobby"
	}

	username, err := validateUsername(req.Username, cfg.Limits)
	if err != nil {
		r.sendError(c.sid, err.Error())
		return
	}

	s, ok, err := r.sessions.Get(ctx, c.sid)
	if err != nil {
		log.Printf("Join lookup for %s failed: %v", c.sid, err)
		return
	}
	if !ok {
		r.sendError(c.sid, "session not found")
		return
	}

	// The new room must admit the session before any leave side effects
	// run, so a refused join leaves the prior membership untouched.
	sameRoom := s.Room == req.Room
	joined, err := r.rooms.JoinBounded(ctx, req.Room, c.sid, cfg.Limits.MaxUsersPerRoom)
	if err != nil {
		log.Printf("Joining room %q failed: %v", req.Room, err)
		return
	}
	if !joined {
		r.sendError(c.sid, "room is full")
		return
	}

	// A re-join performs the full leave side effects for the old room.
	if s.Room != "" && !sameRoom {
		if err := r.rooms.Leave(ctx, s.Room, c.sid); err != nil {
			log.Printf("Leaving room %q for re-join failed: %v", s.Room, err)
			if leaveErr := r.rooms.Leave(ctx, req.Room, c.sid); leaveErr != nil {
				log.Printf("Rolling back join of %s failed: %v", c.sid, leaveErr)
			}
			return
		}
		ids, names, err := r.roomUsers(ctx, s.Room)
		if err != nil {
			log.Printf("Listing room %q after re-join leave failed: %v", s.Room, err)
		} else {
			r.broadcast(ids, evUserLeft, RoomUpdate{Username: s.Name, Users: names})
		}
	}

	if err := r.sessions.SetIdentity(ctx, c.sid, username, req.Room); err != nil {
		log.Printf("Storing identity for %s failed: %v", c.sid, err)
		if !sameRoom {
			if leaveErr := r.rooms.Leave(ctx, req.Room, c.sid); leaveErr != nil {
				log.Printf("Rolling back join of %s failed: %v", c.sid, leaveErr)
			}
		}
		r.sendError(c.sid, "join failed")
		return
	}

	ids, names, err := r.roomUsers(ctx, req.Room)
	if err != nil {
		log.Printf("Listing room %q after join failed: %v", req.Room, err)
		return
	}

	r.sendEvent(c.sid, evJoinSuccess, JoinSuccess{Username: username, Room: req.Room})
	r.broadcastExcept(ids, c.sid, evUserJoined, RoomUpdate{Username: username, Users: names})
	r.sendEvent(c.sid, evUserList, RoomUpdate{Users: names})
	log.Printf("%s joined %s", username, req.Room)
}

func (r *Relay) handleTextMessage(c *Client, data json.RawMessage) {
	ctx := context.Background()
	cfg := currentConfig()

	s, ok := r.joinedSession(ctx, c.sid)
	if !ok {
		return
	}

	if !cfg.Features.TextChat {
		r.sendError(c.sid, "text chat is disabled")
		return
	}

	var req TextMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		r.sendError(c.sid, "invalid text_message payload")
		return
	}

	// Length is checked on the raw text in runes; sanitizing afterwards
	// means escaped characters never inflate the count.
	if utf8.RuneCountInString(req.Message) > cfg.Limits.MaxMessageLength {
		r.sendError(c.sid, "message too long")
		return
	}
	message := sanitizeMessage(req.Message)

	ids, _, err := r.roomUsers(ctx, s.Room)
	if err != nil {
		log.Printf("Listing room %q for text message failed: %v", s.Room, err)
		return
	}

	r.broadcast(ids, evTextMessage, TextMessage{
		Username:  s.Name,
		Message:   message,
		Timestamp: time.Now().Format("15:04"),
	})
}

func (r *Relay) handleCallUser(c *Client, data json.RawMessage) {
	ctx := context.Background()
	cfg := currentConfig()

	s, ok := r.joinedSession(ctx, c.sid)
	if !ok {
		return
	}

	var req CallRequest
	if err := json.Unmarshal(data, &req); err != nil {
		r.sendError(c.sid, "invalid call_user payload")
		return
	}
	if req.CallType == "" {
		req.CallType = "audio"
	}

	switch req.CallType {
	case "audio":
		if !cfg.Features.AudioCalls {
			r.sendError(c.sid, "audio calls are disabled")
			return
		}
	case "video":
		if !cfg.Features.VideoCalls {
			r.sendError(c.sid, "video calls are disabled")
			return
		}
	default:
		r.sendError(c.sid, "unsupported call type")
		return
	}

	targetID, found := r.resolvePeer(ctx, s.Room, req.Target)
	if !found {
		return
	}

	r.sendEvent(targetID, evIncomingCall, IncomingCall{Caller: s.Name, CallType: req.CallType})
	log.Printf("%s calls %s (%s)", s.Name, req.Target, req.CallType)
}

func (r *Relay) handleCallAnswer(c *Client, data json.RawMessage) {
	ctx := context.Background()

	s, ok := r.joinedSession(ctx, c.sid)
	if !ok {
		return
	}

	var req CallAnswerRequest
	if err := json.Unmarshal(data, &req); err != nil {
		r.sendError(c.sid, "invalid call_answer payload")
		return
	}
	if req.CallType == "" {
		req.CallType = "audio"
	}

	callerID, found := r.resolvePeer(ctx, s.Room, req.Caller)
	if !found {
		return
	}

	if req.Accepted {
		r.sendEvent(callerID, evCallAccepted, CallAccepted{Answerer: s.Name, CallType: req.CallType})
		log.Printf("%s accepts %s call from %s", s.Name, req.CallType, req.Caller)
	} else {
		r.sendEvent(callerID, evCallRejected, CallRejected{Answerer: s.Name})
		log.Printf("%s rejects call from %s", s.Name, req.Caller)
	}
}

func (r *Relay) handleWebRTCSignal(c *Client, data json.RawMessage) {
	ctx := context.Background()

	s, ok := r.joinedSession(ctx, c.sid)
	if !ok {
		return
	}

	var req SignalRequest
	if err := json.Unmarshal(data, &req); err != nil {
		r.sendError(c.sid, "invalid webrtc_signal payload")
		return
	}

	targetID, found := r.resolvePeer(ctx, s.Room, req.Target)
	if !found {
		return
	}

	// The payload is relayed untouched; the relay never interprets it.
	r.sendEvent(targetID, evWebRTCSignal, SignalForward{Sender: s.Name, Signal: req.Signal})
}

func (r *Relay) handleHangup(c *Client, data json.RawMessage) {
	ctx := context.Background()

	s, ok := r.joinedSession(ctx, c.sid)
	if !ok {
		return
	}

	var req HangupRequest
	if err := json.Unmarshal(data, &req); err != nil {
		r.sendError(c.sid, "invalid hangup payload")
		return
	}

	targetID, found := r.resolvePeer(ctx, s.Room, req.Target)
	if !found {
		return
	}

	r.sendEvent(targetID, evCallEnded, CallEnded{Username: s.Name})
	log.Printf("%s hangs up", s.Name)
}

// joinedSession returns the caller's session when it exists and has joined a
// room. Events from sessions that never joined are dropped without an error
// event, matching the relay's routing-miss policy.
func (r *Relay) joinedSession(ctx context.Context, sid string) (presence.Session, bool) {
	s, ok, err := r.sessions.Get(ctx, sid)
	if err != nil {
		log.Printf("Session lookup for %s failed: %v", sid, err)
		return presence.Session{}, false
	}
	if !ok || s.Room == "" {
		return presence.Session{}, false
	}
	return s, true
}

// resolvePeer maps a display name to a session id in the given room. A miss
// is a silent drop by design; only backend errors are logged.
func (r *Relay) resolvePeer(ctx context.Context, room, name string) (string, bool) {
	id, found, err := r.resolver.Resolve(ctx, room, name)
	if err != nil {
		log.Printf("Resolving %q in room %q failed: %v", name, room, err)
		return "", false
	}
	return id, found
}

// roomUsers returns the member session ids of a room together with their
// display names. Sessions missing from the registry are skipped.
func (r *Relay) roomUsers(ctx context.Context, room string) ([]string, []string, error) {
	ids, err := r.rooms.Members(ctx, room)
	if err != nil {
		return nil, nil, err
	}

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		s, ok, err := r.sessions.Get(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if ok && s.Name != "" {
			names = append(names, s.Name)
		}
	}
	return ids, names, nil
}

func (r *Relay) sendEvent(sessionID, name string, payload any) {
	raw, err := encodeEvent(name, payload)
	if err != nil {
		log.Printf("Encoding %s event failed: %v", name, err)
		return
	}
	r.hub.SendTo(sessionID, raw)
}

func (r *Relay) sendError(sessionID, msg string) {
	r.sendEvent(sessionID, evError, ErrorMessage{Msg: msg})
}

func (r *Relay) broadcast(sessionIDs []string, name string, payload any) {
	raw, err := encodeEvent(name, payload)
	if err != nil {
		log.Printf("Encoding %s event failed: %v", name, err)
		return
	}
	r.hub.SendToMany(sessionIDs, raw)
}

func (r *Relay) broadcastExcept(sessionIDs []string, exclude, name string, payload any) {
	filtered := make([]string, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		if id != exclude {
			filtered = append(filtered, id)
		}
	}
	r.broadcast(filtered, name, payload)
}
