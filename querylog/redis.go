package querylog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/masseyr/dbhelper/pgpool"
)

// RedisClient is the subset of redis commands the recorder uses.
type RedisClient interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
}

// RedisConfig holds connection parameters for the query-log store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects a single-node redis client and verifies it.
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("no redis address provided")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

type redisEntry struct {
	ConnID     string `json:"conn_id"`
	SQL        string `json:"sql"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
	At         int64  `json:"at"`
}

// RedisRecorder pushes statement events onto a capped redis list so the
// newest maxEntries statements survive process restarts.
type RedisRecorder struct {
	client     RedisClient
	key        string
	maxEntries int64
	timeout    time.Duration
	logger     *zap.Logger
}

// NewRedisRecorder builds a recorder writing to key, keeping maxEntries.
func NewRedisRecorder(client RedisClient, key string, maxEntries int64, logger *zap.Logger) *RedisRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &RedisRecorder{
		client:     client,
		key:        key,
		maxEntries: maxEntries,
		timeout:    2 * time.Second,
		logger:     logger,
	}
}

// Record stores one event. It satisfies pgpool.StatementHook; failures are
// logged and swallowed so the statement path is never disturbed.
func (r *RedisRecorder) Record(ev pgpool.StatementEvent) {
	entry := redisEntry{
		ConnID:     ev.ConnID,
		SQL:        ev.SQL,
		DurationMS: ev.Duration.Milliseconds(),
		At:         time.Now().Unix(),
	}
	if ev.Err != nil {
		entry.Error = ev.Err.Error()
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		r.logger.Warn("failed to encode query log entry", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.client.LPush(ctx, r.key, payload).Err(); err != nil {
		r.logger.Warn("failed to push query log entry", zap.Error(err))
		return
	}
	if err := r.client.LTrim(ctx, r.key, 0, r.maxEntries-1).Err(); err != nil {
		r.logger.Warn("failed to trim query log", zap.Error(err))
	}
}
