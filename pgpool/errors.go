package pgpool

import "errors"

var (
	// ErrBadConfig is returned when pool parameters are invalid.
	ErrBadConfig = errors.New("invalid pool configuration")

	// ErrConnect is returned when the driver cannot establish a connection.
	ErrConnect = errors.New("connection failed")

	// ErrPoolExhausted is returned when no connection becomes available
	// before the acquire timeout elapses.
	ErrPoolExhausted = errors.New("pool exhausted")

	// ErrPoolClosed is returned when the pool is used after shutdown.
	ErrPoolClosed = errors.New("pool is closed")

	// ErrInvalidConn is returned when releasing a connection that does not
	// belong to this pool or was already released.
	ErrInvalidConn = errors.New("invalid connection")

	// ErrTxFailed is returned when a commit or rollback fails.
	ErrTxFailed = errors.New("transaction failed")
)
