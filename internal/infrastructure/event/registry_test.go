package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry_SpecificTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newTestHandler("StockMoved", "StockBelowThreshold")

	registry.Register(handler, "StockMoved", "StockBelowThreshold")

	assert.Equal(t, 1, len(registry.GetHandlers("StockMoved")))
	assert.Equal(t, 1, len(registry.GetHandlers("StockBelowThreshold")))
	assert.Empty(t, registry.GetHandlers("TenantCreated"))
}

func TestHandlerRegistry_Wildcard(t *testing.T) {
	registry := NewHandlerRegistry()
	specific := newTestHandler("StockMoved")
	all := newTestHandler()

	registry.Register(specific, "StockMoved")
	registry.Register(all)

	handlers := registry.GetHandlers("StockMoved")
	assert.Len(t, handlers, 2)
	assert.Same(t, specific, handlers[0], "type handlers come before wildcard handlers")
	assert.Len(t, registry.GetHandlers("Anything"), 1)
}

func TestHandlerRegistry_DuplicateRegistration(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newTestHandler("StockMoved")

	registry.Register(handler, "StockMoved")
	registry.Register(handler, "StockMoved")
	registry.Register(handler)

	assert.Len(t, registry.GetHandlers("StockMoved"), 1)
	assert.Equal(t, 1, registry.Len())
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()
	h1 := newTestHandler("StockMoved")
	h2 := newTestHandler("StockMoved")

	registry.Register(h1, "StockMoved", "TenantCreated")
	registry.Register(h2, "StockMoved")
	registry.Unregister(h1)

	handlers := registry.GetHandlers("StockMoved")
	assert.Len(t, handlers, 1)
	assert.Same(t, h2, handlers[0])
	assert.Empty(t, registry.GetHandlers("TenantCreated"))
	assert.Equal(t, 1, registry.Len())
}
