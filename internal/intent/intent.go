// Package intent 中文问题的意图识别与参数提取
// 按固定优先级的声明式规则表分类，可选地咨询LLM作为兜底建议
package intent

import "time"

// Type 查询意图类型
type Type int

const (
	Unknown Type = iota
	OrderLookup
	ProductLookup
	UserLookup
	StatisticsQuery
	HealthCheck
	AccountInfo
)

// String 返回意图的稳定标签，用于日志和指标
func (t Type) String() string {
	switch t {
	case OrderLookup:
		return "order_lookup"
	case ProductLookup:
		return "product_lookup"
	case UserLookup:
		return "user_lookup"
	case StatisticsQuery:
		return "statistics"
	case HealthCheck:
		return "health_check"
	case AccountInfo:
		return "account_info"
	default:
		return "unknown"
	}
}

// StatsTarget 统计意图的目标实体
type StatsTarget string

const (
	StatsOrders   StatsTarget = "orders"
	StatsProducts StatsTarget = "products"
)

// Params 提取出的参数，固定形状
// 每个字段对应目标实体的一个可过滤列或保留控制参数（limit/date_from/date_to），
// 开放式键值不可能到达查询构造层
type Params struct {
	OrderID      *string     // 订单编号，外部单号或数字ID
	CustomerName *string     // 客户名，子串匹配
	Status       *string     // 规范化后的订单状态（英文键）
	SKU          *string     // 产品编号，精确匹配
	Category     *string     // 产品分类（词表键）
	Username     *string     // 用户名，精确匹配
	Keyword      *string     // 自由文本过滤词
	LowStock     bool        // 库存不足筛选
	DateFrom     *time.Time  // 日期范围下界
	DateTo       *time.Time  // 日期范围上界
	Limit        *int        // 结果数上限，构造层负责钳制
	StatsTarget  StatsTarget // 仅统计意图使用
}

// Intent 一次分类的结果
type Intent struct {
	Type   Type
	Params Params
	Source string // 命中的规则名，或 "advisor"
}

// strptr 便捷构造
func strptr(s string) *string { return &s }

func intptr(n int) *int { return &n }
