// Package service 运维面的健康与就绪检查
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"storechat-go/internal/config"
)

// Pinger 可探活的依赖组件
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthStatus 健康状态
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentStatus 单个组件的检查结果
type ComponentStatus struct {
	Status   HealthStatus `json:"status"`
	Message  string       `json:"message,omitempty"`
	Duration string       `json:"duration"`
}

// HealthCheckResult 健康检查汇总
type HealthCheckResult struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Service    string                     `json:"service"`
	Version    string                     `json:"version"`
	Components map[string]ComponentStatus `json:"components"`
}

// HealthService 健康检查服务
// 数据库是硬依赖，Redis是软依赖：数据库故障整体unhealthy，
// Redis故障只降级为degraded
type HealthService struct {
	db      Pinger
	cache   Pinger // 可为nil
	appInfo *config.AppInfo
	logger  *zap.Logger
}

// NewHealthService 创建健康检查服务，cache可为nil
func NewHealthService(db Pinger, cache Pinger, appInfo *config.AppInfo, logger *zap.Logger) *HealthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthService{db: db, cache: cache, appInfo: appInfo, logger: logger}
}

// CheckHealth 检查全部依赖组件
func (h *HealthService) CheckHealth(ctx context.Context) *HealthCheckResult {
	components := make(map[string]ComponentStatus)
	overall := HealthStatusHealthy

	dbStatus := h.checkComponent(ctx, "database", h.db)
	components["database"] = dbStatus
	if dbStatus.Status != HealthStatusHealthy {
		overall = HealthStatusUnhealthy
	}

	if h.cache != nil {
		cacheStatus := h.checkComponent(ctx, "redis", h.cache)
		components["redis"] = cacheStatus
		if cacheStatus.Status != HealthStatusHealthy && overall == HealthStatusHealthy {
			overall = HealthStatusDegraded
		}
	}

	return &HealthCheckResult{
		Status:     overall,
		Timestamp:  time.Now(),
		Service:    h.appInfo.Name,
		Version:    h.appInfo.Version,
		Components: components,
	}
}

// CheckReadiness 就绪检查，只看硬依赖
func (h *HealthService) CheckReadiness(ctx context.Context) bool {
	return h.checkComponent(ctx, "database", h.db).Status == HealthStatusHealthy
}

// VersionInfo /version接口的内容
func (h *HealthService) VersionInfo() *config.AppInfo {
	return h.appInfo
}

func (h *HealthService) checkComponent(ctx context.Context, name string, p Pinger) ComponentStatus {
	start := time.Now()
	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := p.Ping(checkCtx); err != nil {
		h.logger.Warn("组件探活失败", zap.String("component", name), zap.Error(err))
		return ComponentStatus{
			Status:   HealthStatusUnhealthy,
			Message:  "连接失败",
			Duration: time.Since(start).String(),
		}
	}
	return ComponentStatus{
		Status:   HealthStatusHealthy,
		Duration: time.Since(start).String(),
	}
}
