package pgpool

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultAcquireTimeout = 30 * time.Second
	defaultConnectTimeout = 5 * time.Second
)

// Config holds the connection parameters and pool bounds for one database.
// It is copied at pool creation and never read again from the caller's copy.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string

	// MinConns connections are established eagerly at pool creation.
	MinConns int
	// MaxConns bounds idle plus in-use connections.
	MaxConns int

	// AcquireTimeout bounds how long Acquire blocks waiting for capacity.
	// Zero means defaultAcquireTimeout.
	AcquireTimeout time.Duration
	// ConnectTimeout bounds a single connection attempt.
	// Zero means defaultConnectTimeout.
	ConnectTimeout time.Duration
}

// Validate checks pool bounds and required connection fields.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host is required", ErrBadConfig)
	}
	if c.Database == "" {
		return fmt.Errorf("%w: database name is required", ErrBadConfig)
	}
	if c.User == "" {
		return fmt.Errorf("%w: user is required", ErrBadConfig)
	}
	if c.MinConns < 0 {
		return fmt.Errorf("%w: min connections %d is negative", ErrBadConfig, c.MinConns)
	}
	if c.MaxConns <= 0 {
		return fmt.Errorf("%w: max connections %d must be positive", ErrBadConfig, c.MaxConns)
	}
	if c.MinConns > c.MaxConns {
		return fmt.Errorf("%w: min connections %d exceeds max %d", ErrBadConfig, c.MinConns, c.MaxConns)
	}
	return nil
}

// DSN renders the keyword/value connection string consumed by the driver.
func (c Config) DSN() string {
	parts := []string{
		"host=" + c.Host,
		"dbname=" + c.Database,
		"user=" + c.User,
	}
	if c.Port > 0 {
		parts = append(parts, fmt.Sprintf("port=%d", c.Port))
	}
	if c.Password != "" {
		parts = append(parts, "password="+c.Password)
	}
	return strings.Join(parts, " ")
}

func (c Config) acquireTimeout() time.Duration {
	if c.AcquireTimeout > 0 {
		return c.AcquireTimeout
	}
	return defaultAcquireTimeout
}

func (c Config) connectTimeout() time.Duration {
	if c.ConnectTimeout > 0 {
		return c.ConnectTimeout
	}
	return defaultConnectTimeout
}
