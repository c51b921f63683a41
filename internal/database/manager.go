// Package database PostgreSQL连接池生命周期管理
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"go.uber.org/zap"

	"storechat-go/internal/config"
)

// Manager 基于pgxpool的连接池管理器
// 启动时做一次连通性检查，失败直接拒绝启动
type Manager struct {
	pool   *pgxpool.Pool
	config *config.DatabaseConfig
	logger *zap.Logger
}

// NewManager 创建连接池管理器
func NewManager(ctx context.Context, dbConfig *config.DatabaseConfig, logger *zap.Logger) (*Manager, error) {
	if dbConfig == nil {
		return nil, fmt.Errorf("数据库配置不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	poolConfig, err := pgxpool.ParseConfig(dbConfig.ConnString())
	if err != nil {
		return nil, fmt.Errorf("解析数据库连接串失败: %w", err)
	}
	poolConfig.MaxConns = dbConfig.MaxConns
	poolConfig.MinConns = dbConfig.MinConns
	poolConfig.MaxConnLifetime = dbConfig.MaxConnLifetime
	poolConfig.MaxConnIdleTime = dbConfig.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = dbConfig.HealthCheckPeriod
	pgxLogger := config.NewPgxZapLogger(logger, dbConfig.LogLevel)
	poolConfig.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   pgxLogger,
		LogLevel: pgxLogger.Level(),
	}

	logger.Info("初始化数据库连接池",
		zap.String("host", dbConfig.Host),
		zap.Int("port", dbConfig.Port),
		zap.String("database", dbConfig.Database),
		zap.Int32("max_conns", dbConfig.MaxConns))

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("创建数据库连接池失败: %w", err)
	}

	m := &Manager{pool: pool, config: dbConfig, logger: logger}
	if err := m.HealthCheck(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("数据库启动检查失败: %w", err)
	}

	logger.Info("数据库连接池就绪")
	return m, nil
}

// Pool 返回底层连接池
func (m *Manager) Pool() *pgxpool.Pool {
	return m.pool
}

// HealthCheck 执行连通性检查并记录池状态
func (m *Manager) HealthCheck(ctx context.Context) error {
	if m.pool == nil {
		return fmt.Errorf("数据库连接池未初始化")
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result int
	if err := m.pool.QueryRow(checkCtx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("数据库健康检查失败: %w", err)
	}

	stat := m.pool.Stat()
	m.logger.Debug("连接池状态",
		zap.Int32("total_conns", stat.TotalConns()),
		zap.Int32("idle_conns", stat.IdleConns()),
		zap.Int32("acquired_conns", stat.AcquiredConns()))
	return nil
}

// Ping 仅测试连接可用性
func (m *Manager) Ping(ctx context.Context) error {
	return m.pool.Ping(ctx)
}

// Stats 连接池运行时统计，供健康接口使用
func (m *Manager) Stats() map[string]any {
	stat := m.pool.Stat()
	return map[string]any{
		"total_conns":    stat.TotalConns(),
		"idle_conns":     stat.IdleConns(),
		"acquired_conns": stat.AcquiredConns(),
		"max_conns":      m.config.MaxConns,
	}
}

// Close 关闭连接池
func (m *Manager) Close() {
	if m.pool != nil {
		m.logger.Info("关闭数据库连接池")
		m.pool.Close()
	}
}
