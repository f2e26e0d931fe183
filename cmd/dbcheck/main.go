package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/masseyr/dbhelper/internal/app"
	"github.com/masseyr/dbhelper/internal/config"
	"github.com/masseyr/dbhelper/pgpool"
	"github.com/masseyr/dbhelper/querylog"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[MAIN] No .env file found, relying on system env vars")
	}
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Statement hooks: in-memory ring always, redis when configured.
	ring := querylog.NewRing(cfg.QueryLogMax)
	opts := []pgpool.Option{
		pgpool.WithLogger(logger),
		pgpool.WithStatementHook(ring.Record),
	}
	if cfg.RedisAddr != "" {
		client, err := querylog.NewRedisClient(querylog.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		recorder := querylog.NewRedisRecorder(client, cfg.QueryLogKey, int64(cfg.QueryLogMax), logger)
		opts = append(opts, pgpool.WithStatementHook(recorder.Record))
	}

	ctx := context.Background()
	pool, err := pgpool.New(ctx, cfg.Pool, opts...)
	if err != nil {
		logger.Fatal("failed to create connection pool", zap.Error(err))
	}

	// One round trip through a scoped cursor to prove the database works.
	if err := pool.WithCursor(ctx, func(cur *pgpool.Cursor) error {
		_, err := cur.Exec(ctx, "SELECT 1")
		return err
	}); err != nil {
		logger.Fatal("database check failed", zap.Error(err))
	}
	logger.Info("database check passed", zap.Any("pool", pool.Stat()))

	srv := app.NewServer(cfg, logger, pool)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("admin server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Shutdown(shutdownCtx); err != nil {
		logger.Warn("pool shutdown reported errors", zap.Error(err))
	}
	logger.Info("stopped")
}
