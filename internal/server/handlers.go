// Package server exposes HTTP handlers, including WebSocket upgrades, the
// health check, the client WebRTC configuration, and the built-in test page.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// WebSocketHandler upgrades the HTTP connection, assigns the session id for
// the connection's lifetime, and registers the client with the hub. Session
// ids are opaque to the presence core; they are minted here in the transport
// layer.
func (r *Relay) WebSocketHandler(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, r.hub, uuid.NewString(), req.RemoteAddr)

	// The hub launches the pump goroutines and runs connect handling.
	r.hub.Register(client)
}

// HealthHandler provides a plain text health check endpoint.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "VoxHall relay is running!")
}

// WebRTCConfigHandler serves the ICE server list clients should use for
// their peer connections. The relay itself never dials these servers.
func WebRTCConfigHandler(w http.ResponseWriter, _ *http.Request) {
	cfg := currentConfig()

	servers, err := parseICEServers(cfg.WebRTC.ICEServers)
	if err != nil {
		log.Printf("Configured ICE servers are invalid: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	payload := struct {
		ICEServers []webrtc.ICEServer `json:"iceServers"`
	}{ICEServers: servers}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error writing WebRTC config response: %v", err)
	}
}

// TestPageHandler serves an HTML page for exercising the relay by hand:
// join a room, chat, and ring another user.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	html := `<!DOCTYPE html>
<html>
<head>
    <title>VoxHall Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #log {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { padding: 5px; margin-right: 6px; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
        #users { color: #555; margin: 6px 0; }
    </style>
</head>
<body>
    <h1>VoxHall Test</h1>

    <div>
        <input type="text" id="username" placeholder="Username" value="Alice">
        <input type="text" id="room" placeholder="Room" value="lobby">
        <button onclick="join()">Join</button>
    </div>

    <div id="users">No room joined</div>

    <div>
        <input type="text" id="message" placeholder="Message...">
        <button onclick="sendText()">Send</button>
        <input type="text" id="target" placeholder="Call target">
        <button onclick="call('audio')">Audio call</button>
        <button onclick="call('video')">Video call</button>
        <button onclick="hangup()">Hang up</button>
    </div>

    <div id="log"></div>

    <script>
        const logDiv = document.getElementById('log');
        const proto = location.protocol === 'https:' ? 'wss' : 'ws';
        const ws = new WebSocket(proto + '://' + location.host + '/ws');

        function logLine(text) {
            const el = document.createElement('div');
            el.textContent = text;
            logDiv.appendChild(el);
            logDiv.scrollTop = logDiv.scrollHeight;
        }

        function send(event, data) {
            ws.send(JSON.stringify({event: event, data: data}));
        }

        ws.onmessage = function(e) {
            const msg = JSON.parse(e.data);
            const d = msg.data || {};
            switch (msg.event) {
            case 'user_joined':
            case 'user_left':
            case 'user_list':
                document.getElementById('users').textContent =
                    'Users: ' + (d.users || []).join(', ');
                logLine('[' + msg.event + '] ' + (d.username || ''));
                break;
            case 'text_message':
                logLine(d.timestamp + ' ' + d.username + ': ' + d.message);
                break;
            case 'incoming_call':
                logLine('Incoming ' + d.call_type + ' call from ' + d.caller);
                send('call_answer', {caller: d.caller, accepted: confirm('Accept call from ' + d.caller + '?'), call_type: d.call_type});
                break;
            default:
                logLine('[' + msg.event + '] ' + JSON.stringify(d));
            }
        };
        ws.onclose = function() { logLine('Connection closed'); };

        function join() {
            send('join', {
                username: document.getElementById('username').value,
                room: document.getElementById('room').value
            });
        }
        function sendText() {
            send('text_message', {message: document.getElementById('message').value});
            document.getElementById('message').value = '';
        }
        function call(type) {
            send('call_user', {target: document.getElementById('target').value, call_type: type});
        }
        function hangup() {
            send('hangup', {target: document.getElementById('target').value});
        }
    </script>
</body>
</html>`
	if _, err := fmt.Fprint(w, html); err != nil {
		log.Printf("Error writing HTML response: %v", err)
	}
}
