package relay

import (
	"reflect"
	"sync"
)

// Registry is an in-memory Provider. Services are kept in registration order.
type Registry struct {
	mu       sync.RWMutex
	services map[reflect.Type][]any
}

func NewRegistry() *Registry {
	return &Registry{services: make(map[reflect.Type][]any)}
}

// Add registers v under t.
func (r *Registry) Add(t reflect.Type, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[t] = append(r.services[t], v)
}

// Register adds v under its static type T.
func Register[T any](r *Registry, v T) {
	r.Add(TypeOf[T](), v)
}

// Required returns the most recently registered service for t.
func (r *Registry) Required(t reflect.Type) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := r.services[t]
	if len(items) == 0 {
		return nil, &NoServiceError{Type: t}
	}
	return items[len(items)-1], nil
}

// All returns a cursor over a snapshot of the services registered for t.
func (r *Registry) All(t reflect.Type) Cursor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &sliceCursor{items: append([]any(nil), r.services[t]...), pos: -1}
}

type sliceCursor struct {
	items []any
	pos   int
}

func (c *sliceCursor) Next() bool {
	if c.pos+1 >= len(c.items) {
		c.pos = len(c.items)
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor) Value() any {
	if c.pos < 0 || c.pos >= len(c.items) {
		return nil
	}
	return c.items[c.pos]
}

func (c *sliceCursor) Reset() {
	c.pos = -1
}
