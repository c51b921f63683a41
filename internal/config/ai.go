package config

import (
	"fmt"
	"time"
)

// AIConfig LLM兜底分类器配置
// 默认关闭，规则表已能覆盖绝大多数问题；开启后只在规则全不命中时咨询
type AIConfig struct {
	Enabled  bool          `env:"AI_ENABLED" envDefault:"false"`
	Provider string        `env:"AI_PROVIDER" envDefault:"ollama"`
	Model    string        `env:"AI_MODEL" envDefault:"qwen2.5:7b"`
	BaseURL  string        `env:"AI_BASE_URL" envDefault:"http://localhost:11434"`
	APIKey   string        `env:"AI_API_KEY"`
	Timeout  time.Duration `env:"AI_TIMEOUT" envDefault:"10s"`
}

// Validate 校验AI配置
func (c *AIConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch c.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("不支持的提供方: %s", c.Provider)
	}
	if c.Provider == "openai" && c.APIKey == "" {
		return fmt.Errorf("openai提供方需要AI_API_KEY")
	}
	if c.Model == "" {
		return fmt.Errorf("模型名称不能为空")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("超时必须为正: %v", c.Timeout)
	}
	return nil
}
