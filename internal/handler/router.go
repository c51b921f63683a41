package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storechat-go/internal/service"
)

// RouterConfig 路由装配配置
type RouterConfig struct {
	ChatHandler   *ChatHandler
	HealthService *service.HealthService

	// 可选组件，nil时对应路由不挂
	AuthHandler    gin.HandlerFunc // /api/v1下的认证中间件
	MetricsHandler gin.HandlerFunc // /metrics
}

// SetupRoutes 装配全部路由
// 业务接口在/api/v1下（可选认证），运维接口在根路径且永不认证
func SetupRoutes(r *gin.Engine, config *RouterConfig) {
	v1 := r.Group("/api/v1")
	if config.AuthHandler != nil {
		v1.Use(config.AuthHandler)
	}
	{
		v1.POST("/chat", config.ChatHandler.Chat)
		v1.GET("/examples", config.ChatHandler.Examples)
	}

	r.GET("/health", func(c *gin.Context) {
		result := config.HealthService.CheckHealth(c.Request.Context())
		status := http.StatusOK
		if result.Status == service.HealthStatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, result)
	})

	r.GET("/ready", func(c *gin.Context) {
		if config.HealthService.CheckReadiness(c.Request.Context()) {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, config.HealthService.VersionInfo())
	})

	if config.MetricsHandler != nil {
		r.GET("/metrics", config.MetricsHandler)
	}
}
