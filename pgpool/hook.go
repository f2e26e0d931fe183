package pgpool

import "time"

// StatementEvent describes one statement executed through a cursor.
type StatementEvent struct {
	ConnID   string
	SQL      string
	Duration time.Duration
	Err      error
}

// StatementHook receives a notification after every statement a cursor
// executes, successful or not. Hooks run synchronously on the caller's
// goroutine and must not block.
type StatementHook func(ev StatementEvent)

func (p *Pool) notify(ev StatementEvent) {
	for _, h := range p.hooks {
		h(ev)
	}
}
