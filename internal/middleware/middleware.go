// Package middleware gin中间件链
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"storechat-go/internal/config"
)

// Setup 按固定顺序挂载基础中间件
// 恢复和日志最先，安全头与CORS其次，限流最后
func Setup(r *gin.Engine, serverConfig *config.ServerConfig, logger *zap.Logger) {
	r.Use(Recovery(logger))
	r.Use(StructuredLogger(logger))
	r.Use(SecurityHeaders())
	r.Use(CORS(serverConfig.AllowedOrigins))
	r.Use(RateLimit(NewRateLimiter(
		rate.Limit(serverConfig.RateLimitPerSecond),
		serverConfig.RateLimitBurst,
	)))
}

// Recovery 捕获panic，返回统一的500响应
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		if logger != nil {
			logger.Error("请求处理panic",
				zap.Any("panic", recovered),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("remote_addr", c.ClientIP()))
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "服务器内部错误",
		})
	})
}

// StructuredLogger 请求日志走zap，不写gin默认输出
func StructuredLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if logger != nil {
			logger.Info("HTTP请求",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Int("status", c.Writer.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_addr", c.ClientIP()),
				zap.Int("body_size", c.Writer.Size()))
		}
	}
}

// SecurityHeaders 基础安全响应头
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

// CORS 跨域处理，来源列表为*时全放行
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 1 && allowedOrigins[0] == "*"

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (allowAll || containsString(allowedOrigins, origin)) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", strings.Join(
				[]string{"Origin", "Content-Type", "Accept", "Authorization"}, ", "))
			c.Header("Access-Control-Max-Age", strconv.Itoa(86400))
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RateLimiter 按键限流器，每个客户端一个令牌桶
type RateLimiter struct {
	limiters sync.Map
	rate     rate.Limit
	burst    int
}

// NewRateLimiter 创建限流器
func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{rate: r, burst: burst}
}

// Allow 判断指定键是否放行
func (rl *RateLimiter) Allow(key string) bool {
	v, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.rate, rl.burst))
	return v.(*rate.Limiter).Allow()
}

// RateLimit 按客户端IP限流
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow("ip:" + c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    "RATE_LIMIT_EXCEEDED",
				"message": "请求频率超过限制，请稍后重试",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func containsString(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
