// internal/app/router.go
package app

import (
	"net/http"

	"github.com/masseyr/dbhelper/internal/pkg/response"
	"github.com/masseyr/dbhelper/pgpool"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func SetupRouter(r *gin.Engine, logger *zap.Logger, pool *pgpool.Pool) {
	// ==================== Health Check ====================
	r.GET("/healthz", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			logger.Warn("health check failed", zap.Error(err))
			response.Error(c, http.StatusServiceUnavailable, "database unreachable", err)
			return
		}
		response.Success(c, http.StatusOK, "ok", nil)
	})

	// ==================== Pool Status ====================
	r.GET("/status", func(c *gin.Context) {
		response.Success(c, http.StatusOK, "pool status", pool.Stat())
	})
}
