// Package events provides the subscribe/unsubscribe capability shared by
// recognition engines and audio tracks.
package events

import "sync"

// Hub fans events out to handlers registered per kind. Handlers run on the
// emitting goroutine, outside the hub lock.
type Hub[K comparable, E any] struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[K]map[uint64]func(E)
}

// Subscribe registers handler for kind and returns a function removing it.
// The returned function is safe to call more than once.
func (h *Hub[K, E]) Subscribe(kind K, handler func(E)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.handlers == nil {
		h.handlers = make(map[K]map[uint64]func(E))
	}
	if h.handlers[kind] == nil {
		h.handlers[kind] = make(map[uint64]func(E))
	}
	h.nextID++
	id := h.nextID
	h.handlers[kind][id] = handler
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.handlers[kind], id)
	}
}

// Emit delivers evt to every handler subscribed to kind.
func (h *Hub[K, E]) Emit(kind K, evt E) {
	h.mu.Lock()
	handlers := make([]func(E), 0, len(h.handlers[kind]))
	for _, fn := range h.handlers[kind] {
		handlers = append(handlers, fn)
	}
	h.mu.Unlock()

	for _, fn := range handlers {
		fn(evt)
	}
}

// Len reports how many handlers are subscribed to kind.
func (h *Hub[K, E]) Len(kind K) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handlers[kind])
}
