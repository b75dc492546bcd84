package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/libhub/orders-storage/internal/infrastructure/logger"
	"github.com/libhub/orders-storage/internal/interfaces/http/handler"
)

// NewRouter builds the admin HTTP router
func NewRouter(admin *handler.AdminHandler, log *zap.Logger, production bool) *gin.Engine {
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(logger.GinMiddleware(log))
	r.Use(logger.Recovery(log))

	r.GET("/healthz", admin.Health)

	adm := r.Group("/admin")
	{
		adm.GET("/outbox/stats", admin.OutboxStats)
		adm.GET("/outbox/dead", admin.ListDead)
		adm.POST("/outbox/dead/:id/retry", admin.RetryDead)
		adm.POST("/batch-tracking/cleanup", admin.TriggerBatchCleanup)
	}

	return r
}
