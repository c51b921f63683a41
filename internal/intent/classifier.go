package intent

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"storechat-go/internal/schema"
)

// Proposal LLM建议的分类结果
// 仅是建议：键和值都要经过描述符白名单重新校验后才会被采纳
type Proposal struct {
	Label      string            `json:"label"`
	Parameters map[string]string `json:"parameters"`
}

// Advisor 可选的LLM咨询接口
// Absent时传nil，分类器退化为纯规则匹配，核心逻辑不变
type Advisor interface {
	InferIntent(ctx context.Context, text string) (*Proposal, error)
}

// Classifier 意图分类器
// 规则表求值 + 可选LLM兜底，除描述符外不持有任何跨请求可变状态
type Classifier struct {
	descriptor *schema.Descriptor
	advisor    Advisor
	rules      []rule
	now        func() time.Time
	logger     *zap.Logger
}

// NewClassifier 创建意图分类器
// advisor为nil时表示未配置LLM
func NewClassifier(descriptor *schema.Descriptor, advisor Advisor, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{
		descriptor: descriptor,
		advisor:    advisor,
		rules:      ruleTable,
		now:        time.Now,
		logger:     logger,
	}
}

// WithClock 替换时钟，用于相对日期解析的确定性测试
func (c *Classifier) WithClock(now func() time.Time) *Classifier {
	c.now = now
	return c
}

// Classify 将原始问题文本分类为一个意图
// 规则按表序求值、首条命中即胜出；全部未命中时咨询LLM（若配置），
// LLM不可用或输出无法映射则返回Unknown
func (c *Classifier) Classify(ctx context.Context, text string) Intent {
	text = strings.TrimSpace(text)
	if text == "" {
		return Intent{Type: Unknown}
	}

	now := c.now()
	for _, r := range c.rules {
		if !containsAny(text, r.keywords) {
			continue
		}
		it := Intent{Type: r.intentType, Source: "rule:" + r.name}
		if r.extract != nil {
			r.extract(text, now, &it.Params)
		}
		c.logger.Debug("规则命中",
			zap.String("rule", r.name),
			zap.String("intent", it.Type.String()))
		return it
	}

	if c.advisor == nil {
		return Intent{Type: Unknown}
	}

	proposal, err := c.advisor.InferIntent(ctx, text)
	if err != nil {
		// 模型不可用静默降级，不向调用方暴露
		c.logger.Warn("LLM意图咨询失败，降级为Unknown", zap.Error(err))
		return Intent{Type: Unknown}
	}
	return c.applyProposal(proposal, now)
}

// advisorLabels LLM标签到意图类型的映射
var advisorLabels = map[string]Type{
	"order_lookup":   OrderLookup,
	"product_lookup": ProductLookup,
	"user_lookup":    UserLookup,
	"statistics":     StatisticsQuery,
	"health_check":   HealthCheck,
	"account_info":   AccountInfo,
}

// paramColumn 建议参数键对应的(实体,列)，用于白名单复核
var paramColumn = map[string]struct{ entity, column string }{
	"order_id":      {"orders", "external_order_id"},
	"customer_name": {"orders", "customer_name"},
	"status":        {"orders", "status"},
	"sku":           {"products", "sku"},
	"category":      {"products", "category"},
	"username":      {"users", "username"},
}

// applyProposal 把LLM建议转换为意图，丢弃一切白名单之外的内容
func (c *Classifier) applyProposal(proposal *Proposal, now time.Time) Intent {
	if proposal == nil {
		return Intent{Type: Unknown}
	}

	label := strings.ToLower(strings.TrimSpace(proposal.Label))
	intentType, ok := advisorLabels[label]
	if !ok {
		c.logger.Debug("LLM建议的标签无法识别", zap.String("label", proposal.Label))
		return Intent{Type: Unknown}
	}

	it := Intent{Type: intentType, Source: "advisor"}
	if intentType == StatisticsQuery {
		it.Params.StatsTarget = StatsOrders
	}

	for key, value := range proposal.Parameters {
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		// 保留控制参数：limit与日期范围，不对应实体列
		switch key {
		case "limit":
			if n, err := strconv.Atoi(value); err == nil {
				it.Params.Limit = intptr(n)
			}
			continue
		case "date_from":
			if t, ok := parseAdvisorDate(value, now); ok {
				it.Params.DateFrom = &t
			}
			continue
		case "date_to":
			if t, ok := parseAdvisorDate(value, now); ok {
				it.Params.DateTo = &t
			}
			continue
		case "stats_target":
			if intentType == StatisticsQuery && StatsTarget(value) == StatsProducts {
				it.Params.StatsTarget = StatsProducts
			}
			continue
		case "keyword":
			it.Params.Keyword = strptr(value)
			continue
		}

		// 其余键必须映射到目标实体的可过滤列，否则丢弃
		ref, known := paramColumn[key]
		if !known {
			c.logger.Debug("丢弃LLM建议的未知参数键", zap.String("key", key))
			continue
		}
		entity, exists := c.descriptor.Entity(ref.entity)
		if !exists || !entity.IsFilterable(ref.column) {
			c.logger.Debug("丢弃不在白名单中的LLM参数",
				zap.String("key", key),
				zap.String("column", ref.column))
			continue
		}

		switch key {
		case "order_id":
			it.Params.OrderID = strptr(value)
		case "customer_name":
			it.Params.CustomerName = strptr(value)
		case "status":
			if s, ok := extractStatus(value); ok {
				it.Params.Status = strptr(s)
			}
		case "sku":
			it.Params.SKU = strptr(value)
		case "category":
			if cat, ok := extractCategory(value); ok {
				it.Params.Category = strptr(cat)
			}
		case "username":
			it.Params.Username = strptr(value)
		}
	}

	return it
}

// parseAdvisorDate 解析LLM给出的日期值，失败时该参数降级为缺失
func parseAdvisorDate(value string, now time.Time) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", "2006/01/02"} {
		if t, err := time.ParseInLocation(layout, value, now.Location()); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
