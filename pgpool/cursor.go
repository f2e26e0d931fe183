package pgpool

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Cursor issues statements inside one transaction on one borrowed
// connection. It is only valid inside the WithCursor callback.
type Cursor struct {
	pool *Pool
	conn *PooledConn
	tx   Tx
}

// Exec runs a statement and returns the number of rows affected.
func (c *Cursor) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	start := time.Now()
	n, err := c.tx.Exec(ctx, sql, args...)
	c.pool.notify(StatementEvent{
		ConnID:   c.conn.id,
		SQL:      sql,
		Duration: time.Since(start),
		Err:      err,
	})
	return n, err
}

// Query runs a statement and returns its result set.
func (c *Cursor) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	start := time.Now()
	rows, err := c.tx.Query(ctx, sql, args...)
	c.pool.notify(StatementEvent{
		ConnID:   c.conn.id,
		SQL:      sql,
		Duration: time.Since(start),
		Err:      err,
	})
	return rows, err
}

// ConnID identifies the borrowed connection.
func (c *Cursor) ConnID() string {
	return c.conn.id
}

// WithCursor borrows a connection, opens a transaction, and runs fn with a
// cursor on it. When fn returns nil the transaction is committed; when fn
// returns an error or panics it is rolled back and the original fault
// propagates unchanged. The connection goes back to the pool exactly once on
// every path, including when commit or rollback themselves fail.
func (p *Pool) WithCursor(ctx context.Context, fn func(*Cursor) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	released := false
	release := func() {
		if released {
			return
		}
		released = true
		if rerr := p.Release(conn); rerr != nil {
			p.logger.Warn("cursor release failed", zap.String("conn_id", conn.id), zap.Error(rerr))
		}
	}
	defer release()

	tx, err := conn.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrTxFailed, err)
	}
	defer func() {
		if rec := recover(); rec != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				p.logger.Error("rollback after panic failed", zap.String("conn_id", conn.id), zap.Error(rbErr))
			}
			release()
			panic(rec)
		}
	}()

	if err := fn(&Cursor{pool: p, conn: conn, tx: tx}); err != nil {
		// Rollback failure must not mask the caller's fault.
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			p.logger.Error("rollback failed", zap.String("conn_id", conn.id), zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrTxFailed, err)
	}
	return nil
}
