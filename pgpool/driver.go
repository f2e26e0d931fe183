package pgpool

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Driver dials raw connections. The pool only ever talks to the database
// through this interface, so tests can swap in a fake and callers can plug
// custom dialers (TLS setup, proxies) without touching the pool.
type Driver interface {
	Connect(ctx context.Context, dsn string) (Conn, error)
}

// Conn is a single live session to the database server.
type Conn interface {
	Begin(ctx context.Context) (Tx, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Tx is one transaction on a Conn.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Rows is the subset of a driver result set the cursor exposes.
// pgx.Rows satisfies it directly.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// pgxDriver is the default Driver backed by jackc/pgx.
type pgxDriver struct{}

func (pgxDriver) Connect(ctx context.Context, dsn string) (Conn, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &pgxConn{conn: conn}, nil
}

type pgxConn struct {
	conn *pgx.Conn
}

func (c *pgxConn) Begin(ctx context.Context) (Tx, error) {
	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxTx{tx: tx}, nil
}

func (c *pgxConn) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *pgxConn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *pgxTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (t *pgxTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgxTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}
