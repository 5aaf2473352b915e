// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

// maxFrameSize caps a single inbound WebSocket frame. It is deliberately
// larger than limits.max_message_length because signaling payloads carry
// full SDP offers.
const maxFrameSize = 64 * 1024

// Client represents one WebSocket connection in the relay. It owns the
// connection state, the buffered send channel, and the session id assigned
// at upgrade time.
type Client struct {
	conn        *websocket.Conn
	send        chan []byte
	hub         *Hub
	sid         string
	addr        string
	closed      bool
	rateLimiter *rateLimiter
	rateLimit   int
}

// NewClient creates a Client for the given connection and session id. The
// send channel is buffered to absorb bursts of room traffic.
func NewClient(conn *websocket.Conn, hub *Hub, sid, addr string) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(maxFrameSize)
	}

	return &Client{
		conn:        conn,
		send:        make(chan []byte, 256),
		hub:         hub,
		sid:         sid,
		addr:        addr,
		closed:      false,
		rateLimiter: newRateLimiter(cfg.Limits.RateLimitMessages),
		rateLimit:   cfg.Limits.RateLimitMessages,
	}
}

// SessionID returns the session id the transport assigned to this
// connection.
func (c *Client) SessionID() string {
	return c.sid
}

// SendChan returns the client's send channel for reading outgoing messages.
func (c *Client) SendChan() <-chan []byte {
	return c.send
}

// setupReadConnection configures read deadlines and the pong handler.
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		log.Printf("Error setting initial read deadline for %s: %v", c.addr, err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
			log.Printf("Error setting read deadline in pong handler for %s: %v", c.addr, err)
		}
		return nil
	})
}

// handleReadError logs the error appropriately and reports whether the read
// loop should stop.
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, websocket.ErrReadLimit) {
		log.Printf("Frame from %s exceeded maximum size of %d bytes", c.addr, maxFrameSize)
		return true
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		log.Printf("Client %s disconnected: %v", c.addr, err)
		return true
	}

	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		log.Printf("Client %s connection closed: %v", c.addr, err)
		return true
	}

	log.Printf("WebSocket read error from %s: %v", c.addr, err)
	return true
}

// checkRateLimit reports whether the inbound event is within the
// per-connection budget.
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		log.Printf("Rate limit exceeded for %s (%d events per second); discarding event", c.addr, c.rateLimit)
		return false
	}
	return true
}

// processEvent decodes the envelope and hands it to the router. Malformed
// envelopes are logged and dropped.
func (c *Client) processEvent(raw []byte) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		log.Printf("Invalid event from %s: %v", c.addr, err)
		return
	}
	if ev.Event == "" {
		log.Printf("Event without a name from %s; discarding", c.addr)
		return
	}

	if c.hub.handler != nil {
		c.hub.handler.HandleEvent(c, ev)
	}
}

// signalUnregister hands the client to the hub's run loop, or gives up when
// the hub is shutting down and no longer receives.
func (c *Client) signalUnregister() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.ctx.Done():
	}
}

func (c *Client) readPump() {
	defer func() {
		c.signalUnregister()
		if err := c.conn.Close(); err != nil {
			if !isExpectedCloseError(err) {
				log.Printf("Error closing connection in readPump: %v", err)
			}
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if c.handleReadError(err) {
				break
			}
			continue
		}

		if !c.checkRateLimit() {
			continue
		}

		c.processEvent(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.handleMessage(message, ok) {
				return
			}
		case <-ticker.C:
			if !c.handlePing() {
				return
			}
		}
	}
}

// closeConnection closes the WebSocket connection, ignoring expected errors.
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error closing connection in writePump: %v", err)
		}
	}
}

// handleMessage writes one outgoing message plus anything already queued,
// and reports whether the pump should continue.
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		log.Printf("Error setting write deadline for %s: %v", c.addr, err)
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			if !isExpectedCloseError(err) {
				log.Printf("Error writing close message to %s: %v", c.addr, err)
			}
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		log.Printf("Error writing message to %s: %v", c.addr, err)
		return false
	}

	// Drain anything queued behind this message; each event stays its own
	// frame so client-side decoding is one JSON document per frame.
	n := len(c.send)
	for i := 0; i < n; i++ {
		if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
			log.Printf("Error writing queued message to %s: %v", c.addr, err)
			return false
		}
	}
	return true
}

// handlePing sends a ping message to keep the connection alive.
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		log.Printf("Error setting write deadline for ping to %s: %v", c.addr, err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		log.Printf("Error writing ping message to %s: %v", c.addr, err)
		return false
	}
	return true
}
