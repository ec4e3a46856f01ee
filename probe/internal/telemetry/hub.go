package telemetry

import (
	"sync"

	"github.com/discipl/ipv8-healthcheck/probe/internal/core/domain"
)

// Hub fans probe results out to live subscribers such as SSE clients.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan domain.Result]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[chan domain.Result]struct{}),
	}
}

// Subscribe registers a new listener for probe results.
func (h *Hub) Subscribe() chan domain.Result {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan domain.Result, 16) // Buffer so a slow client never blocks the monitor
	h.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes a listener channel.
func (h *Hub) Unsubscribe(ch chan domain.Result) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[ch]; ok {
		delete(h.subscribers, ch)
		close(ch)
	}
}

// Broadcast sends a result to every listener.
func (h *Hub) Broadcast(res domain.Result) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers {
		select {
		case ch <- res:
		default: // Drop the result if the buffer is full
		}
	}
}

// Len reports the number of active listeners.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
