package pgpool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithCursor(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.MinConns = 1
	cfg.MaxConns = 2

	t.Run("Should commit and return the connection on success", func(t *testing.T) {
		driver := newFakeDriver()
		pool := newTestPool(t, cfg, driver)

		err := pool.WithCursor(ctx, func(cur *Cursor) error {
			n, execErr := cur.Exec(ctx, "INSERT INTO samples VALUES ($1)", 1)
			require.NoError(t, execErr)
			assert.Equal(t, int64(1), n)
			return nil
		})
		require.NoError(t, err)

		stmts, committed, rolledBack := driver.conns[0].lastTx().state()
		assert.Equal(t, []string{"INSERT INTO samples VALUES ($1)"}, stmts)
		assert.True(t, committed)
		assert.False(t, rolledBack)
		assert.Equal(t, Stat{Idle: 1, InUse: 0, Total: 1, Max: 2}, pool.Stat())
	})

	t.Run("Should roll back and surface the original error", func(t *testing.T) {
		driver := newFakeDriver()
		pool := newTestPool(t, cfg, driver)

		bodyErr := errors.New("body failed")
		err := pool.WithCursor(ctx, func(*Cursor) error {
			return bodyErr
		})
		require.ErrorIs(t, err, bodyErr)

		_, committed, rolledBack := driver.conns[0].lastTx().state()
		assert.False(t, committed, "commit must never run after a fault")
		assert.True(t, rolledBack)
		assert.Equal(t, Stat{Idle: 1, InUse: 0, Total: 1, Max: 2}, pool.Stat())
	})

	t.Run("Should not catch statement errors inside the body", func(t *testing.T) {
		driver := newFakeDriver()
		execErr := errors.New("syntax error")
		driver.txExecErr = execErr
		pool := newTestPool(t, cfg, driver)

		var seen error
		err := pool.WithCursor(ctx, func(cur *Cursor) error {
			_, seen = cur.Exec(ctx, "SELEC 1")
			return seen
		})
		require.ErrorIs(t, seen, execErr, "statement error must reach the body")
		require.ErrorIs(t, err, execErr)
	})

	t.Run("Should release the connection when commit fails", func(t *testing.T) {
		driver := newFakeDriver()
		driver.txCommitErr = errors.New("deferred constraint violated")
		pool := newTestPool(t, cfg, driver)

		err := pool.WithCursor(ctx, func(cur *Cursor) error {
			_, execErr := cur.Exec(ctx, "UPDATE samples SET n = n + 1")
			return execErr
		})
		require.ErrorIs(t, err, ErrTxFailed)
		assert.Contains(t, err.Error(), "deferred constraint violated")
		assert.Equal(t, Stat{Idle: 1, InUse: 0, Total: 1, Max: 2}, pool.Stat(), "connection must not leak")
	})

	t.Run("Should roll back, release, and re-panic when the body panics", func(t *testing.T) {
		driver := newFakeDriver()
		pool := newTestPool(t, cfg, driver)

		require.PanicsWithValue(t, "boom", func() {
			_ = pool.WithCursor(ctx, func(*Cursor) error {
				panic("boom")
			})
		})

		_, committed, rolledBack := driver.conns[0].lastTx().state()
		assert.False(t, committed)
		assert.True(t, rolledBack)
		assert.Equal(t, Stat{Idle: 1, InUse: 0, Total: 1, Max: 2}, pool.Stat())
	})

	t.Run("Should propagate acquire errors unchanged", func(t *testing.T) {
		pool := newTestPool(t, cfg, newFakeDriver())
		require.NoError(t, pool.Shutdown(ctx))

		err := pool.WithCursor(ctx, func(*Cursor) error { return nil })
		require.ErrorIs(t, err, ErrPoolClosed)
	})

	t.Run("Should notify statement hooks with outcome", func(t *testing.T) {
		driver := newFakeDriver()
		var events []StatementEvent
		pool, err := New(ctx, cfg,
			WithDriver(driver),
			WithStatementHook(func(ev StatementEvent) { events = append(events, ev) }),
		)
		require.NoError(t, err)
		defer func() { _ = pool.Shutdown(ctx) }()

		err = pool.WithCursor(ctx, func(cur *Cursor) error {
			_, execErr := cur.Exec(ctx, "DELETE FROM samples")
			return execErr
		})
		require.NoError(t, err)

		require.Len(t, events, 1)
		assert.Equal(t, "DELETE FROM samples", events[0].SQL)
		assert.NoError(t, events[0].Err)
		assert.NotEmpty(t, events[0].ConnID)
	})
}
