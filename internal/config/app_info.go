package config

import (
	"runtime"
	"time"
)

// AppInfo 应用构建信息，/version接口返回
type AppInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	BuildTime   string `json:"build_time"`
	GitCommit   string `json:"git_commit"`
	GoVersion   string `json:"go_version"`
	Environment string `json:"environment"`
}

// NewAppInfo 创建应用信息，构建参数通常由ldflags注入
func NewAppInfo(version, buildTime, gitCommit, environment string) *AppInfo {
	if version == "" {
		version = "dev"
	}
	if buildTime == "" {
		buildTime = time.Now().UTC().Format(time.RFC3339)
	}
	if gitCommit == "" {
		gitCommit = "unknown"
	}
	if environment == "" {
		environment = "development"
	}
	return &AppInfo{
		Name:        "storechat",
		Version:     version,
		BuildTime:   buildTime,
		GitCommit:   gitCommit,
		GoVersion:   runtime.Version(),
		Environment: environment,
	}
}
