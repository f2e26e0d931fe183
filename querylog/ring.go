// Package querylog records recently executed statements. Recorders subscribe
// to a pool's statement hook; they never fail the statement that produced
// the event.
package querylog

import (
	"sync"

	"github.com/masseyr/dbhelper/pgpool"
)

// Ring keeps the most recent statement events in memory, overwriting the
// oldest once capacity is reached.
type Ring struct {
	mu     sync.Mutex
	events []pgpool.StatementEvent
	next   int
	full   bool
}

// NewRing creates a ring holding up to capacity events.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{events: make([]pgpool.StatementEvent, capacity)}
}

// Record stores one event. It satisfies pgpool.StatementHook.
func (r *Ring) Record(ev pgpool.StatementEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[r.next] = ev
	r.next++
	if r.next == len(r.events) {
		r.next = 0
		r.full = true
	}
}

// Recent returns the stored events, newest first.
func (r *Ring) Recent() []pgpool.StatementEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.next
	if r.full {
		n = len(r.events)
	}
	out := make([]pgpool.StatementEvent, 0, n)
	for i := 1; i <= n; i++ {
		idx := r.next - i
		if idx < 0 {
			idx += len(r.events)
		}
		out = append(out, r.events[idx])
	}
	return out
}

// Len reports how many events are currently stored.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.events)
	}
	return r.next
}
