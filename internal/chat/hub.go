// Package chat is the websocket transport for the relay: it owns the live
// connection table and delivers the engine's outbound events over each
// client's send channel.
package chat

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"chat-relay/internal/engine"
	"chat-relay/internal/metrics"
)

// Hub maps connection ids to live clients and implements engine.Sender.
// The engine decides who receives what; the hub only moves bytes.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	log     zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		log:     log,
	}
}

// Register adds a client to the table. The caller starts the pumps.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	total := len(h.clients)
	h.mu.Unlock()

	metrics.ActiveConnections.Set(float64(total))
	h.log.Info().Str("conn", c.ID).Int("active", total).Msg("client registered")
}

// Unregister removes a client and closes its send channel. Safe to call
// more than once per client. The close happens inside the write-lock
// critical section: delivery paths send on c.send while holding the read
// lock, so a channel is never closed while a send is in flight.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	current, ok := h.clients[c.ID]
	if ok && current == c {
		delete(h.clients, c.ID)
		c.closeSend()
	}
	total := len(h.clients)
	h.mu.Unlock()
	if !ok || current != c {
		return
	}

	metrics.ActiveConnections.Set(float64(total))
	h.log.Info().Str("conn", c.ID).Int("active", total).Msg("client unregistered")
}

// Unicast delivers an event to one connection.
func (h *Hub) Unicast(connID string, ev engine.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[connID]; ok {
		h.deliver(c, payload)
	}
}

// Multicast delivers an event to an explicit set of connections.
func (h *Hub) Multicast(connIDs []string, ev engine.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, id := range connIDs {
		if c, ok := h.clients[id]; ok {
			h.deliver(c, payload)
		}
	}
}

// Broadcast delivers an event to every live connection.
func (h *Hub) Broadcast(ev engine.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		h.deliver(c, payload)
	}
}

// deliver pushes a payload without blocking. Callers hold h.mu, so the send
// can never race the channel close in Unregister. A client whose buffer is
// full is a slow consumer; its socket is closed asynchronously, which drives
// the normal read-pump disconnect path.
func (h *Hub) deliver(c *Client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		h.log.Warn().Str("conn", c.ID).Msg("send buffer full, evicting slow consumer")
		go c.Close()
	}
}

// Shutdown closes every live connection.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	h.log.Info().Int("count", len(targets)).Msg("closing all client connections")
	for _, c := range targets {
		c.Close()
	}
}
