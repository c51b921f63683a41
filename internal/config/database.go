package config

import (
	"fmt"
	"time"
)

// DatabaseConfig PostgreSQL连接配置
// 连接池参数对齐pgxpool，适用于容器化部署
type DatabaseConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD"`
	Database string `env:"DB_NAME" envDefault:"storechat"`
	SSLMode  string `env:"DB_SSL_MODE" envDefault:"prefer"`

	MaxConns          int32         `env:"DB_MAX_CONNS" envDefault:"20"`
	MinConns          int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	MaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	MaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE" envDefault:"30m"`
	HealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"5m"`
	ConnectTimeout    time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"10s"`
	QueryTimeout      time.Duration `env:"DB_QUERY_TIMEOUT" envDefault:"5s"`

	// pgx日志级别：trace, debug, info, warn, error, none
	LogLevel string `env:"DB_LOG_LEVEL" envDefault:"warn"`

	ApplicationName string `env:"DB_APPLICATION_NAME" envDefault:"storechat"`
}

// ConnString 构建pgx连接字符串
func (c *DatabaseConfig) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s application_name=%s connect_timeout=%d",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
		c.ApplicationName, int(c.ConnectTimeout.Seconds()),
	)
}

// Validate 校验数据库配置
func (c *DatabaseConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("数据库主机地址不能为空")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("数据库端口必须在1-65535范围内: %d", c.Port)
	}
	if c.User == "" {
		return fmt.Errorf("数据库用户名不能为空")
	}
	if c.Database == "" {
		return fmt.Errorf("数据库名称不能为空")
	}
	if c.MaxConns <= 0 {
		return fmt.Errorf("最大连接数必须大于0")
	}
	if c.MinConns < 0 || c.MinConns > c.MaxConns {
		return fmt.Errorf("最小连接数必须在[0, %d]内: %d", c.MaxConns, c.MinConns)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("查询超时必须为正: %v", c.QueryTimeout)
	}

	switch c.SSLMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("SSL模式无效: %s", c.SSLMode)
	}
	return nil
}
