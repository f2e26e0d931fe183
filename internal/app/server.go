// internal/app/server.go
package app

import (
	"github.com/masseyr/dbhelper/internal/config"
	"github.com/masseyr/dbhelper/internal/middleware"
	"github.com/masseyr/dbhelper/pgpool"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server exposes pool health and status over HTTP for operators.
type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgpool.Pool
}

func NewServer(cfg config.AppConfig, logger *zap.Logger, pool *pgpool.Pool) *Server {
	engine := gin.New()
	engine.Use(gin.Logger())
	engine.Use(middleware.RecoveryMiddleware(logger))
	SetupRouter(engine, logger, pool)
	return &Server{cfg: cfg, engine: engine, logger: logger, pool: pool}
}

func (s *Server) Start() error {
	s.logger.Info("admin server listening", zap.String("addr", s.cfg.HTTPAddr))
	return s.engine.Run(s.cfg.HTTPAddr)
}
