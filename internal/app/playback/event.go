package playback

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Change is delivered to listeners after a commit that touched their fields.
type Change struct {
	Fields Field    // Fields changed by the commit
	State  Snapshot // Store state right after the commit
}

// Listener reacts to store changes.
type Listener func(Change)

type subscription struct {
	id      string
	fields  Field
	fn      Listener
	removed atomic.Bool
}

// registry delivers changes to listeners in commit order, one at a time.
// Listeners may call back into the store; the resulting changes are queued
// and delivered after the current one.
type registry struct {
	mu   sync.Mutex
	subs []*subscription

	pending  []Change
	draining bool
}

func (r *registry) subscribe(fields Field, fn Listener) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	r.subs = append(r.subs, &subscription{id: id, fields: fields, fn: fn})
	return id
}

func (r *registry) unsubscribe(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, sub := range r.subs {
		if sub.id == id {
			sub.removed.Store(true)
			r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
			return
		}
	}
}

func (r *registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// enqueue must be called with the store lock held so that the queue order
// matches the commit order.
func (r *registry) enqueue(c Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, c)
}

// drain delivers queued changes unless another goroutine (or an outer call on
// this one) is already doing so.
func (r *registry) drain() {
	r.mu.Lock()
	if r.draining {
		r.mu.Unlock()
		return
	}
	r.draining = true

	for len(r.pending) > 0 {
		c := r.pending[0]
		r.pending = r.pending[1:]
		subs := make([]*subscription, len(r.subs))
		copy(subs, r.subs)
		r.mu.Unlock()

		for _, sub := range subs {
			if sub.fields.Has(c.Fields) && !sub.removed.Load() {
				sub.fn(c)
			}
		}

		r.mu.Lock()
	}

	r.draining = false
	r.mu.Unlock()
}

func (r *registry) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = nil
	r.pending = nil
}
