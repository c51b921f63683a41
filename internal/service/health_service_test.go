package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"storechat-go/internal/config"
)

type fakePinger struct{ err error }

func (f *fakePinger) Ping(context.Context) error { return f.err }

func testAppInfo() *config.AppInfo {
	return config.NewAppInfo("0.1.0", "", "", "test")
}

// TestCheckHealth_AllHealthy 全部组件正常
func TestCheckHealth_AllHealthy(t *testing.T) {
	h := NewHealthService(&fakePinger{}, &fakePinger{}, testAppInfo(), zap.NewNop())

	result := h.CheckHealth(context.Background())
	assert.Equal(t, HealthStatusHealthy, result.Status)
	assert.Equal(t, HealthStatusHealthy, result.Components["database"].Status)
	assert.Equal(t, HealthStatusHealthy, result.Components["redis"].Status)
	assert.Equal(t, "storechat", result.Service)
}

// TestCheckHealth_DatabaseDown 数据库故障整体unhealthy
func TestCheckHealth_DatabaseDown(t *testing.T) {
	h := NewHealthService(&fakePinger{err: errors.New("refused")}, nil, testAppInfo(), zap.NewNop())

	result := h.CheckHealth(context.Background())
	assert.Equal(t, HealthStatusUnhealthy, result.Status)
	// 错误细节不进响应
	assert.NotContains(t, result.Components["database"].Message, "refused")
}

// TestCheckHealth_RedisDownDegrades Redis故障只降级
func TestCheckHealth_RedisDownDegrades(t *testing.T) {
	h := NewHealthService(&fakePinger{}, &fakePinger{err: errors.New("refused")}, testAppInfo(), zap.NewNop())

	result := h.CheckHealth(context.Background())
	assert.Equal(t, HealthStatusDegraded, result.Status)
}

// TestCheckHealth_NoRedis 未配置Redis时不出现redis组件
func TestCheckHealth_NoRedis(t *testing.T) {
	h := NewHealthService(&fakePinger{}, nil, testAppInfo(), zap.NewNop())

	result := h.CheckHealth(context.Background())
	assert.Equal(t, HealthStatusHealthy, result.Status)
	_, hasRedis := result.Components["redis"]
	assert.False(t, hasRedis)
}

// TestCheckReadiness 就绪只看数据库
func TestCheckReadiness(t *testing.T) {
	ready := NewHealthService(&fakePinger{}, &fakePinger{err: errors.New("x")}, testAppInfo(), zap.NewNop())
	assert.True(t, ready.CheckReadiness(context.Background()))

	notReady := NewHealthService(&fakePinger{err: errors.New("x")}, nil, testAppInfo(), zap.NewNop())
	assert.False(t, notReady.CheckReadiness(context.Background()))
}
