package pgpool

import (
	"context"
	"errors"
	"sync"
)

// fakeDriver hands out in-memory connections so pool behavior can be tested
// without a server.
type fakeDriver struct {
	mu       sync.Mutex
	dials    int
	failFrom int // dial index at which Connect starts failing, -1 = never
	conns    []*fakeConn

	// defaults copied onto every new connection
	txCommitErr error
	txExecErr   error

	// onConnect, when set, runs outside the driver lock before each dial
	// and can block or fail it.
	onConnect func() error
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{failFrom: -1}
}

func (d *fakeDriver) Connect(_ context.Context, _ string) (Conn, error) {
	d.mu.Lock()
	hook := d.onConnect
	d.mu.Unlock()
	if hook != nil {
		if err := hook(); err != nil {
			return nil, err
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failFrom >= 0 && d.dials >= d.failFrom {
		return nil, errors.New("dial refused")
	}
	d.dials++
	c := &fakeConn{txCommitErr: d.txCommitErr, txExecErr: d.txExecErr}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDriver) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

type fakeConn struct {
	mu       sync.Mutex
	closed   bool
	closeErr error
	pingErr  error
	txs      []*fakeTx

	txCommitErr error
	txExecErr   error
}

func (c *fakeConn) Begin(_ context.Context) (Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tx := &fakeTx{commitErr: c.txCommitErr, execErr: c.txExecErr}
	c.txs = append(c.txs, tx)
	return tx, nil
}

func (c *fakeConn) Ping(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pingErr
}

func (c *fakeConn) Close(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return c.closeErr
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) lastTx() *fakeTx {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.txs) == 0 {
		return nil
	}
	return c.txs[len(c.txs)-1]
}

type fakeTx struct {
	mu         sync.Mutex
	stmts      []string
	committed  bool
	rolledBack bool
	commitErr  error
	execErr    error
}

func (t *fakeTx) Exec(_ context.Context, sql string, _ ...any) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stmts = append(t.stmts, sql)
	if t.execErr != nil {
		return 0, t.execErr
	}
	return 1, nil
}

func (t *fakeTx) Query(_ context.Context, sql string, _ ...any) (Rows, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stmts = append(t.stmts, sql)
	if t.execErr != nil {
		return nil, t.execErr
	}
	return &fakeRows{}, nil
}

func (t *fakeTx) Commit(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolledBack = true
	return nil
}

func (t *fakeTx) state() (stmts []string, committed, rolledBack bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.stmts...), t.committed, t.rolledBack
}

type fakeRows struct{}

func (*fakeRows) Next() bool        { return false }
func (*fakeRows) Scan(...any) error { return errors.New("no rows") }
func (*fakeRows) Err() error        { return nil }
func (*fakeRows) Close()            {}

func waiterCount(p *Pool) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waiters)
}
