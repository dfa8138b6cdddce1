package outbox

import (
	"context"
	"encoding/json"
	"sync"
)

// HandlerFunc consumes a raw message.
type HandlerFunc func(ctx context.Context, msg Message) error

// Handler is a named consumer of one event type. The name is the inbox key,
// so renaming a handler makes it see every past event again.
//
// Handle must honour ctx. When the dispatcher's handler timeout fires the
// delivery is recorded as failed and no inbox marker is written, but a
// handler that ignores ctx keeps running and may still complete its side
// effect. The next dispatch run invokes it again, so side effects must be
// idempotent or abandoned on ctx.Done.
type Handler struct {
	Name   string
	Handle HandlerFunc
}

// Registry maps event type names to handlers. It is resolved at dispatch
// time, so handlers may be added after the dispatcher is built.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string][]Handler)}
}

// Register adds h for eventType. A second handler with the same name for the
// same type replaces the first.
func (r *Registry) Register(eventType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.handlers[eventType]
	for i := range list {
		if list[i].Name == h.Name {
			list[i] = h
			return
		}
	}
	r.handlers[eventType] = append(list, h)
}

// Handlers returns a copy of the handlers registered for eventType.
func (r *Registry) Handlers(eventType string) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.handlers[eventType]
	out := make([]Handler, len(list))
	copy(out, list)
	return out
}

// Types lists every event type with at least one handler.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	return out
}

// Subscribe registers a typed handler. The payload is decoded as JSON into T
// before fn is called; a payload that does not decode fails the delivery.
func Subscribe[T Event](r *Registry, name string, fn func(ctx context.Context, msg Message, evt T) error) {
	var zero T
	eventType := zero.EventType()

	r.Register(eventType, Handler{
		Name: name,
		Handle: func(ctx context.Context, msg Message) error {
			var evt T
			if err := json.Unmarshal(msg.Payload, &evt); err != nil {
				return ErrNoDecoder(eventType, err)
			}
			return fn(ctx, msg, evt)
		},
	})
}
