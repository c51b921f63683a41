package config

import (
	"fmt"
	"time"
)

// BotConfig 问答行为配置
type BotConfig struct {
	MaxResults        int           `env:"BOT_MAX_RESULTS" envDefault:"50"`
	DefaultLimit      int           `env:"BOT_DEFAULT_LIMIT" envDefault:"10"`
	LowStockThreshold int           `env:"BOT_LOW_STOCK_THRESHOLD" envDefault:"10"`
	MaxMessageLength  int           `env:"BOT_MAX_MESSAGE_LENGTH" envDefault:"2000"`
	CacheTTL          time.Duration `env:"BOT_CACHE_TTL" envDefault:"60s"`

	// 为空时使用内置schema文档
	SchemaPath string `env:"BOT_SCHEMA_PATH"`
}

// Validate 校验问答配置
func (c *BotConfig) Validate() error {
	if c.MaxResults < 1 {
		return fmt.Errorf("MaxResults必须为正: %d", c.MaxResults)
	}
	if c.DefaultLimit < 1 || c.DefaultLimit > c.MaxResults {
		return fmt.Errorf("DefaultLimit必须在[1, %d]内: %d", c.MaxResults, c.DefaultLimit)
	}
	if c.LowStockThreshold < 0 {
		return fmt.Errorf("LowStockThreshold不能为负: %d", c.LowStockThreshold)
	}
	if c.MaxMessageLength < 100 {
		return fmt.Errorf("MaxMessageLength过小: %d", c.MaxMessageLength)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("CacheTTL不能为负: %v", c.CacheTTL)
	}
	return nil
}
