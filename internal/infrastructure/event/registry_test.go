package event

import (
	"testing"

	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry_Register(t *testing.T) {
	r := NewHandlerRegistry()
	h := &recordingHandler{}

	r.Register(h, "A", "B")

	assert.Equal(t, []shared.EventHandler{h}, r.HandlersFor("A"))
	assert.Equal(t, []shared.EventHandler{h}, r.HandlersFor("B"))
	assert.Empty(t, r.HandlersFor("C"))
}

func TestHandlerRegistry_RegisterTwiceIsNoop(t *testing.T) {
	r := NewHandlerRegistry()
	h := &recordingHandler{}

	r.Register(h, "A")
	r.Register(h, "A")
	r.Register(h)
	r.Register(h)

	assert.Len(t, r.HandlersFor("A"), 2, "once for the type, once as wildcard")
	assert.Equal(t, 1, r.Len())
}

func TestHandlerRegistry_WildcardComesLast(t *testing.T) {
	r := NewHandlerRegistry()
	specific := &recordingHandler{}
	wildcard := &recordingHandler{}

	r.Register(wildcard)
	r.Register(specific, "A")

	handlers := r.HandlersFor("A")
	assert.Len(t, handlers, 2)
	assert.Same(t, specific, handlers[0])
	assert.Same(t, wildcard, handlers[1])
}
