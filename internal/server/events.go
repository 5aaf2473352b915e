// Package server defines the JSON event envelope and payload types exchanged
// with clients, shared across client and router logic.
package server

import (
	"encoding/json"
	"strings"
)

// Event is the envelope for every message on the wire, in both directions.
// Data holds the event-specific payload and stays raw until the router knows
// which type to decode it into.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound event names.
const (
	evJoin         = "join"
	evTextMessage  = "text_message"
	evCallUser     = "call_user"
	evCallAnswer   = "call_answer"
	evWebRTCSignal = "webrtc_signal"
	evHangup       = "hangup"
)

// Outbound event names.
const (
	evServerMessage = "server_message"
	evJoinSuccess   = "join_success"
	evUserJoined    = "user_joined"
	evUserLeft      = "user_left"
	evUserList      = "user_list"
	evIncomingCall  = "incoming_call"
	evCallAccepted  = "call_accepted"
	evCallRejected  = "call_rejected"
	evCallEnded     = "call_ended"
	evError         = "error"
)

// JoinRequest asks to enter a room under a display name.
type JoinRequest struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// TextMessageRequest carries a chat message for the sender's room.
type TextMessageRequest struct {
	Message string `json:"message"`
}

// CallRequest asks to ring a named peer in the sender's room.
type CallRequest struct {
	Target   string `json:"target"`
	CallType string `json:"call_type"`
}

// CallAnswerRequest accepts or rejects a call from a named peer.
type CallAnswerRequest struct {
	Caller   string `json:"caller"`
	Accepted bool   `json:"accepted"`
	CallType string `json:"call_type"`
}

// SignalRequest relays an opaque negotiation payload to a named peer. The
// relay never inspects Signal.
type SignalRequest struct {
	Target string          `json:"target"`
	Signal json.RawMessage `json:"signal"`
}

// HangupRequest ends a call with a named peer.
type HangupRequest struct {
	Target string `json:"target"`
}

// ServerMessage is an informational note from the relay itself.
type ServerMessage struct {
	Msg string `json:"msg"`
}

// JoinSuccess confirms a join to the joiner only.
type JoinSuccess struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// RoomUpdate announces a membership change together with the resulting user
// list. It backs user_joined, user_left, and user_list events.
type RoomUpdate struct {
	Username string   `json:"username,omitempty"`
	Users    []string `json:"users"`
}

// TextMessage is a chat message broadcast to a room, stamped by the server.
type TextMessage struct {
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// IncomingCall rings the callee.
type IncomingCall struct {
	Caller   string `json:"caller"`
	CallType string `json:"call_type"`
}

// CallAccepted notifies the caller that the callee picked up.
type CallAccepted struct {
	Answerer string `json:"answerer"`
	CallType string `json:"call_type"`
}

// CallRejected notifies the caller that the callee declined.
type CallRejected struct {
	Answerer string `json:"answerer"`
}

// SignalForward is a relayed negotiation payload, unchanged except for the
// sender attribution.
type SignalForward struct {
	Sender string          `json:"sender"`
	Signal json.RawMessage `json:"signal"`
}

// CallEnded notifies a peer that the other side hung up.
type CallEnded struct {
	Username string `json:"username"`
}

// ErrorMessage reports a user input error to the originating session only.
type ErrorMessage struct {
	Msg string `json:"msg"`
}

// encodeEvent marshals an envelope with the given name and payload.
func encodeEvent(name string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Event: name, Data: raw})
}

// isExpectedCloseError checks if an error is expected during connection
// closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
