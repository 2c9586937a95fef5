package realtime

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Client represents a single websocket client connection.
// We keep it minimal here; the actual network conn is managed in the ws handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Hub maintains active user connections and pushes report lifecycle events
// to them. Constructed once at startup and injected where needed.
type Hub struct {
	mu              sync.RWMutex
	userIDToClients map[int64]map[Client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{userIDToClients: make(map[int64]map[Client]struct{})}
}

// Register adds a client under a user ID.
func (h *Hub) Register(userID int64, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.userIDToClients[userID]; !ok {
		h.userIDToClients[userID] = make(map[Client]struct{})
	}
	h.userIDToClients[userID][client] = struct{}{}
}

// Unregister removes a client; if user has no more clients, cleans up map.
func (h *Hub) Unregister(userID int64, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.userIDToClients[userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.userIDToClients, userID)
		}
	}
}

// Broadcast sends a message to all clients of a user.
func (h *Hub) Broadcast(userID int64, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.userIDToClients[userID] {
		if ok := c.Send(message); !ok {
			// client write failed; the handler cleans it up on its side
		}
	}
}

// Notify marshals an event payload and broadcasts it to the user.
func (h *Hub) Notify(userID int64, event string, payload map[string]any) {
	if h == nil {
		return
	}
	msg := map[string]any{"type": event}
	for k, v := range payload {
		msg[k] = v
	}
	bytes, err := json.Marshal(msg)
	if err != nil {
		log.Warn().Err(err).Str("event", event).Msg("failed to marshal realtime event")
		return
	}
	h.Broadcast(userID, bytes)
}
