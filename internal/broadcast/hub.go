package broadcast

import (
	"sync"

	"github.com/agrinet/becknmart/internal/domain"
)

// Handler receives a published item
type Handler func(item domain.CatalogItem)

// Unsubscribe removes a handler. Calling it more than once is a no-op.
type Unsubscribe func()

// Hub is a same-context notification channel. Notify runs every handler
// synchronously in the caller's goroutine. Handlers may subscribe or
// unsubscribe from inside a callback.
type Hub struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]Handler
}

func NewHub() *Hub {
	return &Hub{handlers: make(map[uint64]Handler)}
}

// Subscribe registers fn until the returned Unsubscribe is called
func (h *Hub) Subscribe(fn Handler) Unsubscribe {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.handlers[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.handlers, id)
			h.mu.Unlock()
		})
	}
}

// Notify delivers item to the handlers registered when it was called.
// A handler removed by an earlier callback in the same loop is skipped.
func (h *Hub) Notify(item domain.CatalogItem) {
	h.mu.RLock()
	ids := make([]uint64, 0, len(h.handlers))
	for id := range h.handlers {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.mu.RLock()
		fn, ok := h.handlers[id]
		h.mu.RUnlock()
		if ok {
			fn(item)
		}
	}
}

// Len number of registered handlers
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers)
}
