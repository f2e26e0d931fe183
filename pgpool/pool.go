// Package pgpool manages a bounded pool of PostgreSQL connections with a
// scoped transactional cursor on top. Connections are established eagerly up
// to a minimum and grown lazily up to a maximum; acquisition is fair
// (first-requested, first-served) and bounded by a timeout.
package pgpool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Pool owns a bounded set of live connections to one database.
type Pool struct {
	cfg    Config
	driver Driver
	logger *zap.Logger
	hooks  []StatementHook

	mu      sync.Mutex
	conns   map[*PooledConn]struct{}
	idle    []*PooledConn
	waiters []chan *PooledConn
	total   int
	closed  bool
}

// Option configures a Pool at creation.
type Option func(*Pool)

// WithLogger sets the pool's logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pool) { p.logger = logger }
}

// WithDriver replaces the default pgx-backed driver.
func WithDriver(d Driver) Option {
	return func(p *Pool) { p.driver = d }
}

// WithStatementHook subscribes a hook to statement notifications.
// May be given more than once.
func WithStatementHook(h StatementHook) Option {
	return func(p *Pool) { p.hooks = append(p.hooks, h) }
}

// Stat is a point-in-time snapshot of pool counts.
type Stat struct {
	Idle  int `json:"idle"`
	InUse int `json:"in_use"`
	Total int `json:"total"`
	Max   int `json:"max"`
}

// New validates cfg and establishes exactly cfg.MinConns connections before
// returning. A failed dial closes any connections already established and
// surfaces the driver error wrapped in ErrConnect.
func New(ctx context.Context, cfg Config, opts ...Option) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pool{
		cfg:    cfg,
		driver: pgxDriver{},
		logger: zap.NewNop(),
		conns:  make(map[*PooledConn]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	for i := 0; i < cfg.MinConns; i++ {
		conn, err := p.dial(ctx)
		if err != nil {
			for _, c := range p.idle {
				_ = c.conn.Close(ctx)
			}
			return nil, fmt.Errorf("%w: %v", ErrConnect, err)
		}
		p.conns[conn] = struct{}{}
		p.idle = append(p.idle, conn)
		p.total++
	}
	p.logger.Info("connection pool ready",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
		zap.Int("min_conns", cfg.MinConns),
		zap.Int("max_conns", cfg.MaxConns),
	)
	return p, nil
}

// Acquire returns an idle connection, dials a new one when the pool is below
// its maximum, or blocks until a release hands one over. Waiting is bounded
// by ctx and by the configured acquire timeout, whichever fires first.
func (p *Pool) Acquire(ctx context.Context) (*PooledConn, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.acquireTimeout())
	defer cancel()

	for {
		if err := ctx.Err(); err != nil {
			return nil, p.acquireErr(err)
		}
		conn, w, err := p.tryAcquire(ctx)
		if err != nil {
			return nil, err
		}
		if conn != nil {
			return conn, nil
		}
		conn, err = p.waitForConn(ctx, w)
		if err != nil {
			return nil, err
		}
		if conn != nil {
			return conn, nil
		}
		// Woken without a connection: a capacity slot was freed. Retry the
		// acquire decision from the top.
	}
}

// tryAcquire serves from the idle set, dials when below max, or enqueues a
// waiter. Exactly one of conn, waiter channel, or error is returned non-zero.
func (p *Pool) tryAcquire(ctx context.Context) (*PooledConn, chan *PooledConn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, nil, ErrPoolClosed
	}
	if n := len(p.idle); n > 0 {
		conn := p.idle[n-1]
		p.idle = p.idle[:n-1]
		conn.state = connInUse
		p.mu.Unlock()
		return conn, nil, nil
	}
	if p.total < p.cfg.MaxConns {
		p.total++ // reserve the slot before dialing outside the lock
		p.mu.Unlock()
		conn, err := p.dial(ctx)
		if err != nil {
			p.mu.Lock()
			if !p.closed {
				p.total--
				// The reserved slot is free again; a waiter that queued while
				// this dial was in flight must not sit out its full timeout.
				p.wakeOneLocked()
			}
			p.mu.Unlock()
			return nil, nil, fmt.Errorf("%w: %v", ErrConnect, err)
		}
		conn.state = connInUse
		p.mu.Lock()
		if p.closed {
			// Shutdown already zeroed the counts and woke every waiter by
			// closing its channel; just discard the dial.
			p.mu.Unlock()
			_ = conn.conn.Close(ctx)
			return nil, nil, ErrPoolClosed
		}
		p.conns[conn] = struct{}{}
		p.mu.Unlock()
		return conn, nil, nil
	}
	w := make(chan *PooledConn, 1)
	p.waiters = append(p.waiters, w)
	p.mu.Unlock()
	return nil, w, nil
}

// waitForConn blocks on a waiter channel. It returns a connection handed
// over by a release, nil when the waiter was woken to retry because capacity
// was freed, or an error when the pool closed or ctx fired.
func (p *Pool) waitForConn(ctx context.Context, w chan *PooledConn) (*PooledConn, error) {
	select {
	case conn, ok := <-w:
		if !ok {
			return nil, ErrPoolClosed
		}
		return conn, nil
	case <-ctx.Done():
		p.mu.Lock()
		for i, q := range p.waiters {
			if q == w {
				p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
				break
			}
		}
		p.mu.Unlock()
		// A release may have handed us a connection between ctx firing and
		// the waiter being removed. Releases send under the pool lock, so a
		// missing queue entry means the channel already holds the handoff.
		select {
		case conn, ok := <-w:
			if !ok {
				return nil, ErrPoolClosed
			}
			if conn != nil {
				return conn, nil
			}
			// A wake signal raced our timeout; pass it on so the freed
			// capacity is not lost on the remaining waiters.
			p.mu.Lock()
			if !p.closed {
				p.wakeOneLocked()
			}
			p.mu.Unlock()
		default:
		}
		return nil, p.acquireErr(ctx.Err())
	}
}

// wakeOneLocked signals the oldest waiter to re-run the acquire decision.
// Callers must hold p.mu.
func (p *Pool) wakeOneLocked() {
	if len(p.waiters) == 0 {
		return
	}
	w := p.waiters[0]
	p.waiters = p.waiters[1:]
	w <- nil
}

func (p *Pool) acquireErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: no connection available within %s", ErrPoolExhausted, p.cfg.acquireTimeout())
	}
	return err
}

// Release returns a checked-out connection to the pool. The oldest waiter, if
// any, receives it directly; otherwise it joins the idle set. Releasing a
// foreign or already-released connection fails with ErrInvalidConn and leaves
// the pool untouched. Release never blocks.
func (p *Pool) Release(conn *PooledConn) error {
	if conn == nil || conn.pool != p {
		return fmt.Errorf("%w: connection does not belong to this pool", ErrInvalidConn)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	if conn.state != connInUse {
		return fmt.Errorf("%w: connection was already released", ErrInvalidConn)
	}
	if len(p.waiters) > 0 {
		w := p.waiters[0]
		p.waiters = p.waiters[1:]
		w <- conn // stays in use, ownership moves to the waiter
		return nil
	}
	conn.state = connIdle
	p.idle = append(p.idle, conn)
	return nil
}

// Shutdown closes every connection, idle and in-use alike, and marks the
// pool closed. In-use connections are closed best-effort; per-connection
// close errors are collected and returned together. Shutdown is idempotent.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	conns := make([]*PooledConn, 0, len(p.conns))
	for c := range p.conns {
		c.state = connClosed
		conns = append(conns, c)
	}
	p.conns = make(map[*PooledConn]struct{})
	waiters := p.waiters
	p.waiters = nil
	p.idle = nil
	p.total = 0
	p.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}
	var errs error
	for _, c := range conns {
		if err := c.conn.Close(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close connection %s: %w", c.id, err))
		}
	}
	p.logger.Info("connection pool shut down", zap.Int("closed", len(conns)))
	return errs
}

// Stat reports current pool counts. It has no side effects.
func (p *Pool) Stat() Stat {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stat{
		Idle:  len(p.idle),
		InUse: p.total - len(p.idle),
		Total: p.total,
		Max:   p.cfg.MaxConns,
	}
}

// Ping borrows a connection and checks the session is alive.
func (p *Pool) Ping(ctx context.Context) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := p.Release(conn); rerr != nil {
			p.logger.Warn("release after ping failed", zap.String("conn_id", conn.id), zap.Error(rerr))
		}
	}()
	return conn.Ping(ctx)
}

func (p *Pool) dial(ctx context.Context) (*PooledConn, error) {
	dctx, cancel := context.WithTimeout(ctx, p.cfg.connectTimeout())
	defer cancel()
	raw, err := p.driver.Connect(dctx, p.cfg.DSN())
	if err != nil {
		return nil, err
	}
	conn := &PooledConn{
		id:   ulid.Make().String(),
		conn: raw,
		pool: p,
	}
	p.logger.Debug("connection established", zap.String("conn_id", conn.id))
	return conn, nil
}
