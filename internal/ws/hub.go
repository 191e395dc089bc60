package ws

import (
	"sync"

	"raceledger/internal/logger"
)

// Hub fans race events out to connected clients. Clients subscribe to race
// addresses; an event for a race reaches only its subscribers.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	// race address -> subscribed clients
	subs map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		subs:    make(map[string]map[*Client]bool),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		for race, set := range h.subs {
			delete(set, c)
			if len(set) == 0 {
				delete(h.subs, race)
			}
		}
		close(c.Send)
	}
	h.mu.Unlock()
}

func (h *Hub) subscribe(c *Client, race string) {
	h.mu.Lock()
	set, ok := h.subs[race]
	if !ok {
		set = make(map[*Client]bool)
		h.subs[race] = set
	}
	set[c] = true
	h.mu.Unlock()
}

func (h *Hub) unsubscribe(c *Client, race string) {
	h.mu.Lock()
	if set, ok := h.subs[race]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, race)
		}
	}
	h.mu.Unlock()
}

// broadcast delivers msg to every subscriber of the race. Slow clients are
// skipped rather than blocking the ledger path.
func (h *Hub) broadcast(race string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.subs[race] {
		select {
		case c.Send <- msg:
		default:
			logger.Warn("ws send buffer full, dropping event", "player", c.Player)
		}
	}
}

// Subscribers reports how many clients watch a race. Used by tests and the
// readiness probe.
func (h *Hub) Subscribers(race string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[race])
}
