package config

import (
	"fmt"
	"time"
)

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// CORS配置，逗号分隔的来源列表，*表示全放行
	AllowedOrigins []string `env:"SERVER_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// 限流配置，按客户端IP
	RateLimitPerSecond float64 `env:"SERVER_RATE_LIMIT" envDefault:"10"`
	RateLimitBurst     int     `env:"SERVER_RATE_BURST" envDefault:"20"`

	// 认证配置，默认关闭，开启后/api/v1下的接口要求Bearer令牌
	AuthEnabled bool   `env:"SERVER_AUTH_ENABLED" envDefault:"false"`
	JWTSecret   string `env:"SERVER_JWT_SECRET"`
}

// Addr 监听地址
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate 校验服务配置
func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("端口必须在1-65535范围内: %d", c.Port)
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("读写超时必须为正")
	}
	if c.RateLimitPerSecond <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("限流参数必须为正")
	}
	if c.AuthEnabled && len(c.JWTSecret) < 32 {
		return fmt.Errorf("启用认证时SERVER_JWT_SECRET长度至少32字符")
	}
	return nil
}
