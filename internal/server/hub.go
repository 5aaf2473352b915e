// Package server coordinates connection registration, targeted delivery, and
// connection cleanup for the VoxHall relay via the Hub type.
package server

import (
	"context"
	"log"
	"sync"
	"time"
)

// eventHandler receives connection lifecycle and inbound events. The Relay
// implements it; the indirection keeps the hub free of routing logic.
type eventHandler interface {
	HandleConnect(c *Client)
	HandleEvent(c *Client, ev Event)
	HandleDisconnect(sessionID string)
}

// Hub tracks live WebSocket clients keyed by session id and delivers
// outbound payloads to individual sessions or sets of sessions. Registration
// and unregistration run through channels on a single goroutine; delivery is
// mutex-protected and never blocks on a slow client.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	handler    eventHandler
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a Hub. The handler is attached later with SetHandler since
// hub and router reference each other.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// SetHandler attaches the event handler. Must be called before Run.
func (h *Hub) SetHandler(handler eventHandler) {
	h.handler = handler
}

// Register queues a client for registration with the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister queues a client for removal from the hub.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Run starts the hub's main loop, handling client registration and
// unregistration until Shutdown is called. It should run in its own
// goroutine.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				log.Printf("Received nil client registration; skipping")
				continue
			}

			h.mutex.Lock()
			client.closed = false
			h.clients[client.sid] = client
			clientCount := len(h.clients)
			h.mutex.Unlock()
			log.Printf("Client %s registered from %s. Total clients: %d", client.sid, client.addr, clientCount)

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

			if h.handler != nil {
				h.handler.HandleConnect(client)
			}

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client.sid]; ok {
				delete(h.clients, client.sid)
				client.closed = true
				clientCount := len(h.clients)
				h.mutex.Unlock()
				// Close the channel after releasing the lock.
				close(client.send)
				log.Printf("Client %s unregistered from %s. Total clients: %d", client.sid, client.addr, clientCount)

				if h.handler != nil {
					h.handler.HandleDisconnect(client.sid)
				}
			} else {
				h.mutex.Unlock()
			}
		}
	}
}

func (h *Hub) safeSend(client *Client, message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in safeSend: %v", r)
		}
	}()

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	registered, exists := h.clients[client.sid]
	if !exists || registered != client || client.closed {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// SendTo delivers payload to one session. Delivery is fire-and-forget: an
// unknown session id is ignored and a session with a full send buffer is
// dropped from the hub.
func (h *Hub) SendTo(sessionID string, payload []byte) {
	h.SendToMany([]string{sessionID}, payload)
}

// SendToMany delivers payload to each of the given sessions under the same
// fire-and-forget policy as SendTo.
func (h *Hub) SendToMany(sessionIDs []string, payload []byte) {
	var failed []*Client

	for _, id := range sessionIDs {
		h.mutex.RLock()
		client, ok := h.clients[id]
		h.mutex.RUnlock()
		if !ok {
			continue
		}
		if !h.safeSend(client, payload) {
			failed = append(failed, client)
		}
	}

	h.removeFailedClients(failed)
}

// removeFailedClients drops clients whose send buffers were full and runs
// the disconnect handling they would have received on a clean close.
func (h *Hub) removeFailedClients(clients []*Client) {
	if len(clients) == 0 {
		return
	}

	var removed []*Client
	h.mutex.Lock()
	for _, client := range clients {
		if registered, exists := h.clients[client.sid]; exists && registered == client {
			delete(h.clients, client.sid)
			client.closed = true
			removed = append(removed, client)
			log.Printf("Client %s from %s removed due to full send buffer", client.sid, client.addr)
		}
	}
	h.mutex.Unlock()

	// Close channels and fire disconnects after releasing the lock.
	for _, client := range removed {
		close(client.send)
		if h.handler != nil {
			h.handler.HandleDisconnect(client.sid)
		}
	}
}

// shutdownClients closes all active client connections.
func (h *Hub) shutdownClients() {
	log.Println("Shutting down all client connections...")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error closing client connection from %s: %v", client.addr, err)
				}
			}
		}
	}

	log.Printf("Closed %d client connections", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all client
// goroutines to finish, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
