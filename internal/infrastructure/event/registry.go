package event

import (
	"slices"
	"sync"

	"github.com/erp/stockledger/internal/domain/shared"
)

// wildcard is the registry key of handlers that receive every event type
const wildcard = "*"

// HandlerRegistry maps event types to handlers.
// A handler registered twice for the same type is kept once.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string][]shared.EventHandler
}

// NewHandlerRegistry creates an empty registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[string][]shared.EventHandler),
	}
}

// Register adds handler for eventTypes. No event types means every event.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = []string{wildcard}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, eventType := range eventTypes {
		if slices.Contains(r.handlers[eventType], handler) {
			continue
		}
		r.handlers[eventType] = append(r.handlers[eventType], handler)
	}
}

// Unregister removes handler from every event type
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for eventType, handlers := range r.handlers {
		handlers = slices.DeleteFunc(slices.Clone(handlers), func(h shared.EventHandler) bool { return h == handler })
		if len(handlers) == 0 {
			delete(r.handlers, eventType)
			continue
		}
		r.handlers[eventType] = handlers
	}
}

// GetHandlers returns the handlers for eventType followed by the wildcard handlers.
// The returned slice is a copy.
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specific := r.handlers[eventType]
	all := r.handlers[wildcard]
	result := make([]shared.EventHandler, 0, len(specific)+len(all))
	result = append(result, specific...)
	for _, h := range all {
		if !slices.Contains(result, h) {
			result = append(result, h)
		}
	}
	return result
}

// Len returns the number of distinct registered handlers
func (r *HandlerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[shared.EventHandler]struct{})
	for _, handlers := range r.handlers {
		for _, h := range handlers {
			seen[h] = struct{}{}
		}
	}
	return len(seen)
}
