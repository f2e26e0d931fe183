package pgpool

import "context"

type connState int

const (
	connIdle connState = iota
	connInUse
	connClosed
)

// PooledConn is a live connection owned by a Pool. It is checked out to at
// most one caller at a time; the caller must hand it back with Release.
type PooledConn struct {
	id   string
	conn Conn
	pool *Pool

	// state is guarded by pool.mu.
	state connState
}

// ID returns the connection's identifier, useful for log correlation.
func (c *PooledConn) ID() string {
	return c.id
}

// Begin opens a transaction on the underlying session.
func (c *PooledConn) Begin(ctx context.Context) (Tx, error) {
	return c.conn.Begin(ctx)
}

// Ping checks that the underlying session is still alive.
func (c *PooledConn) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}
