// Package config 服务配置
// 全部配置来自环境变量（可选.env文件补充），启动时解析一次并校验，
// 运行期任何组件都不再读进程环境
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// AppConfig 服务的完整配置
type AppConfig struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	AI       AIConfig
	Bot      BotConfig
}

// Load 解析环境变量为完整配置并校验
func Load() (*AppConfig, error) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("解析环境变量失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 逐段校验
func (c *AppConfig) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server配置无效: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database配置无效: %w", err)
	}
	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("redis配置无效: %w", err)
	}
	if err := c.AI.Validate(); err != nil {
		return fmt.Errorf("ai配置无效: %w", err)
	}
	if err := c.Bot.Validate(); err != nil {
		return fmt.Errorf("bot配置无效: %w", err)
	}
	return nil
}
