package events

import (
	"sync"

	"github.com/google/uuid"
)

// Emitter broadcasts typed events to any number of subscribers.
// Events emitted from a single goroutine arrive at each subscriber in
// emission order. Callbacks run outside the emitter's lock, so a
// subscriber may subscribe or unsubscribe from within its callback.
type Emitter[T any] struct {
	mu          sync.Mutex
	subscribers map[string]func(T)
}

// NewEmitter creates an emitter with no subscribers.
func NewEmitter[T any]() *Emitter[T] {
	return &Emitter[T]{
		subscribers: make(map[string]func(T)),
	}
}

// Subscribe registers fn to receive future events and returns a
// function that removes the subscription. Unsubscribing twice is safe.
func (e *Emitter[T]) Subscribe(fn func(T)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := uuid.New().String()
	e.subscribers[id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subscribers, id)
	}
}

// Emit delivers event to every subscriber registered at the time of
// the call.
func (e *Emitter[T]) Emit(event T) {
	e.mu.Lock()
	subscribers := make([]func(T), 0, len(e.subscribers))
	for _, fn := range e.subscribers {
		subscribers = append(subscribers, fn)
	}
	e.mu.Unlock()

	for _, fn := range subscribers {
		fn(event)
	}
}
