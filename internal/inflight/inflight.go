package inflight

import (
	"context"
	"errors"
	"sync"
)

// ErrInFlight is returned when a request with the same key is already pending.
var ErrInFlight = errors.New("request already in flight")

// Registry tracks at most one pending request per service instance.
// A new request with the same key as the pending one is rejected; a
// request with a different key cancels the pending one and replaces it.
// Completions that are no longer current become no-ops.
type Registry struct {
	mu      sync.Mutex
	key     string
	cancel  context.CancelFunc
	pending bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Begin registers a request under key. It returns a context derived
// from ctx that is cancelled if the request is superseded, and a done
// function the caller must invoke exactly once when the request
// completes. If a request with the same key is already pending, Begin
// fails with ErrInFlight; a pending request with a different key is
// cancelled before the new one is registered.
func (r *Registry) Begin(ctx context.Context, key string) (context.Context, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending {
		if r.key == key {
			return nil, nil, ErrInFlight
		}
		r.cancel()
	}

	reqCtx, cancel := context.WithCancel(ctx)
	r.key = key
	r.cancel = cancel
	r.pending = true

	done := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		// A superseded request must not clear its successor's entry.
		if r.pending && r.key == key {
			r.pending = false
			r.cancel()
			r.cancel = nil
			r.key = ""
		}
	}

	return reqCtx, done, nil
}

// current reports whether a request under key is still the pending
// one. Supersession is observed by callers through the derived
// context's cancellation; this accessor verifies the registry's
// bookkeeping.
func (r *Registry) current(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending && r.key == key
}
