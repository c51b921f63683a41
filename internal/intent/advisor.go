// LLM意图顾问
// 基于LangChainGo的统一接口，支持Ollama与OpenAI兼容端点
// 顾问只产出意图标签和参数建议，绝不产出SQL
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// AdvisorConfig LLM顾问配置
type AdvisorConfig struct {
	Provider string        // ollama / openai
	Model    string        // 模型名称
	BaseURL  string        // 服务地址，Ollama默认http://localhost:11434
	APIKey   string        // OpenAI兼容端点的密钥
	Timeout  time.Duration // 单次推理超时
}

// LLMAdvisor 基于LangChainGo的意图顾问实现
type LLMAdvisor struct {
	model   llms.Model
	timeout time.Duration
	logger  *zap.Logger
}

// 固定指令：只允许产出已知标签和参数键的JSON
const advisorSystemPrompt = `你是一个电商数据库查询助手的意图分类器。
把用户的中文问题分类为以下标签之一：
order_lookup, product_lookup, user_lookup, statistics, health_check, account_info

只输出一个JSON对象，不要输出任何解释，格式：
{"label": "<标签>", "parameters": {"<键>": "<值>"}}

parameters只能使用这些键：order_id, customer_name, status, sku, category,
username, keyword, limit, date_from, date_to, stats_target。
日期用YYYY-MM-DD。无法分类时输出 {"label": "unknown", "parameters": {}}`

// NewLLMAdvisor 创建LLM顾问
func NewLLMAdvisor(cfg *AdvisorConfig, logger *zap.Logger) (*LLMAdvisor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	model, err := createProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("创建LLM提供商 %s 失败: %w", cfg.Provider, err)
	}

	return &LLMAdvisor{
		model:   model,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// createProvider 创建特定提供商的LLM实例
func createProvider(cfg *AdvisorConfig) (llms.Model, error) {
	switch strings.ToLower(cfg.Provider) {
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		return ollama.New(opts...)
	case "openai":
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(opts...)
	default:
		return nil, fmt.Errorf("不支持的LLM提供商: %s", cfg.Provider)
	}
}

// InferIntent 向模型咨询意图建议
// 返回的Proposal仍需分类器按白名单复核，本方法不做授权判断
func (a *LLMAdvisor) InferIntent(ctx context.Context, text string) (*Proposal, error) {
	inferCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, advisorSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, text),
	}

	start := time.Now()
	resp, err := a.model.GenerateContent(inferCtx, messages,
		llms.WithTemperature(0.0),
		llms.WithMaxTokens(256))
	if err != nil {
		return nil, fmt.Errorf("LLM推理失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM返回空响应")
	}

	proposal, err := parseProposal(resp.Choices[0].Content)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("LLM意图建议",
		zap.String("label", proposal.Label),
		zap.Int("parameters", len(proposal.Parameters)),
		zap.Duration("latency", time.Since(start)))
	return proposal, nil
}

// parseProposal 从模型输出中解析JSON，容忍代码围栏和前后缀噪声
func parseProposal(content string) (*Proposal, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("LLM输出中未找到JSON对象")
	}

	var p Proposal
	if err := json.Unmarshal([]byte(content[start:end+1]), &p); err != nil {
		return nil, fmt.Errorf("解析LLM输出失败: %w", err)
	}
	if p.Label == "" {
		return nil, fmt.Errorf("LLM输出缺少label字段")
	}
	return &p, nil
}
