package history

import "sync"

// Hub fans completion entries out to live subscribers. Slow subscribers miss
// entries instead of blocking the publisher.
type Hub struct {
	listeners []chan Entry
	mu        sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{}
}

func (h *Hub) Subscribe() chan Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Entry, 16)
	h.listeners = append(h.listeners, ch)
	return ch
}

func (h *Hub) Unsubscribe(ch chan Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, listener := range h.listeners {
		if listener == ch {
			h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

func (h *Hub) Publish(e Entry) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.listeners {
		select {
		case ch <- e:
		default:
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}
