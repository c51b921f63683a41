// Package format 把查询结果渲染成中文聊天回复
// 所有面向用户的话术集中在这里，其他层只产生数据和哨兵错误
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"storechat-go/internal/query"
)

// Config 渲染参数
type Config struct {
	MaxMessageLength int // 单条回复的最大长度（按rune计）
}

// DefaultConfig 默认渲染参数，上限对齐常见聊天平台的消息长度
func DefaultConfig() *Config {
	return &Config{MaxMessageLength: 2000}
}

// Validate 校验配置合法性
func (c *Config) Validate() error {
	if c.MaxMessageLength < 100 {
		return fmt.Errorf("MaxMessageLength过小: %d", c.MaxMessageLength)
	}
	return nil
}

// 订单状态的中文译名，键与数据库中的规范值一致
var statusLabels = map[string]string{
	"processing": "处理中",
	"pending":    "待处理",
	"shipped":    "已发货",
	"delivered":  "已送达",
	"cancelled":  "已取消",
	"closed":     "已关闭",
	"returned":   "已退货",
}

// 空结果话术按实体区分，和错误话术是两回事
var emptyMessages = map[string]string{
	"orders":   "ℹ️ 没有找到符合条件的订单",
	"products": "ℹ️ 没有找到符合条件的产品",
	"users":    "ℹ️ 没有找到符合条件的用户",
	"accounts": "ℹ️ 当前没有激活的店铺账号",
}

// Formatter 结果渲染器，无状态，可并发使用
type Formatter struct {
	config *Config
}

// NewFormatter 创建渲染器
func NewFormatter(config *Config) *Formatter {
	if config == nil {
		config = DefaultConfig()
	}
	return &Formatter{config: config}
}

// FormatRows 渲染行查询结果
// 空结果返回实体专属的无匹配话术；单行渲染成逐字段卡片；多行渲染成编号列表
func (f *Formatter) FormatRows(rs *query.ResultSet) string {
	if len(rs.Rows) == 0 {
		return f.FormatEmpty(rs.Entity)
	}

	if rs.Entity == "orders" && len(rs.Rows) == 1 {
		return f.orderCard(rs.Rows[0])
	}

	var header string
	var line func(row map[string]any) string
	switch rs.Entity {
	case "orders":
		header = fmt.Sprintf("✅ 找到 %d 笔订单：", len(rs.Rows))
		line = orderLine
	case "products":
		header = fmt.Sprintf("✅ 找到 %d 个产品：", len(rs.Rows))
		line = productLine
	case "users":
		header = fmt.Sprintf("✅ 找到 %d 位用户：", len(rs.Rows))
		line = userLine
	case "accounts":
		return f.FormatAccounts(rs)
	default:
		header = fmt.Sprintf("✅ 找到 %d 条结果：", len(rs.Rows))
		line = func(row map[string]any) string { return genericLine(rs.Columns, row) }
	}

	lines := make([]string, 0, len(rs.Rows))
	for i, row := range rs.Rows {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, line(row)))
	}
	return f.assemble(header, lines)
}

// FormatAccounts 渲染店铺账号列表，默认账号带标记
// api_key不在描述符里，到不了这里
func (f *Formatter) FormatAccounts(rs *query.ResultSet) string {
	if len(rs.Rows) == 0 {
		return f.FormatEmpty("accounts")
	}

	header := fmt.Sprintf("🏢 店铺账号（%d 个）：", len(rs.Rows))
	lines := make([]string, 0, len(rs.Rows))
	for i, row := range rs.Rows {
		entry := fmt.Sprintf("%d. %s (%s)", i+1, text(row["name"]), text(row["username"]))
		if b, ok := row["is_default"].(bool); ok && b {
			entry += " ⭐默认"
		}
		lines = append(lines, entry)
	}
	return f.assemble(header, lines)
}

// FormatAggregate 渲染聚合结果
// 分组行之上先给全量汇总，汇总由各分组累加得出
func (f *Formatter) FormatAggregate(rs *query.ResultSet) string {
	if len(rs.Rows) == 0 {
		return f.FormatEmpty(rs.Entity)
	}

	switch {
	case rs.Entity == "orders" && hasColumn(rs, "day"):
		return f.ordersByDay(rs)
	case rs.Entity == "orders":
		return f.ordersByStatus(rs)
	case rs.Entity == "products":
		return f.productsByCategory(rs)
	default:
		lines := make([]string, 0, len(rs.Rows))
		for _, row := range rs.Rows {
			lines = append(lines, genericLine(rs.Columns, row))
		}
		return f.assemble("📊 统计结果：", lines)
	}
}

func (f *Formatter) ordersByStatus(rs *query.ResultSet) string {
	var totalCount int64
	var totalRevenue float64
	lines := make([]string, 0, len(rs.Rows))

	for _, row := range rs.Rows {
		count := integer(row["order_count"])
		revenue, _ := decimal(row["revenue"])
		avg, _ := decimal(row["avg_total"])
		totalCount += count
		totalRevenue += revenue
		lines = append(lines, fmt.Sprintf("· %s：%d 笔，金额 %s（均值 %s）",
			statusLabel(text(row["status"])), count, money(revenue), money(avg)))
	}

	header := fmt.Sprintf("📊 订单统计：共 %d 笔，总金额 %s", totalCount, money(totalRevenue))
	return f.assemble(header, lines)
}

func (f *Formatter) ordersByDay(rs *query.ResultSet) string {
	var totalCount int64
	var totalRevenue float64
	lines := make([]string, 0, len(rs.Rows))

	for _, row := range rs.Rows {
		count := integer(row["order_count"])
		revenue, _ := decimal(row["revenue"])
		totalCount += count
		totalRevenue += revenue
		lines = append(lines, fmt.Sprintf("· %s：%d 笔，金额 %s",
			date(row["day"]), count, money(revenue)))
	}

	header := fmt.Sprintf("📊 订单统计（按天）：共 %d 笔，总金额 %s", totalCount, money(totalRevenue))
	return f.assemble(header, lines)
}

func (f *Formatter) productsByCategory(rs *query.ResultSet) string {
	var totalCount, totalStock, totalLowStock int64
	var totalValue float64
	lines := make([]string, 0, len(rs.Rows))

	for _, row := range rs.Rows {
		count := integer(row["product_count"])
		stock := integer(row["stock_total"])
		lowStock := integer(row["low_stock_count"])
		value, _ := decimal(row["stock_value"])
		totalCount += count
		totalStock += stock
		totalLowStock += lowStock
		totalValue += value
		lines = append(lines, fmt.Sprintf("· %s：%d 个产品，库存 %d",
			text(row["category"]), count, stock))
	}

	header := fmt.Sprintf("📊 产品统计：共 %d 个，总库存 %d，库存总值 %s，库存不足 %d 个",
		totalCount, totalStock, money(totalValue), totalLowStock)
	return f.assemble(header, lines)
}

// FormatHealth 渲染健康检查结果
func (f *Formatter) FormatHealth(err error) string {
	if err != nil {
		return "❌ 数据库连接异常，请稍后再试"
	}
	return "✅ 数据库连接正常，服务运行中"
}

// FormatEmpty 实体专属的无匹配话术
func (f *Formatter) FormatEmpty(entity string) string {
	if msg, ok := emptyMessages[entity]; ok {
		return msg
	}
	return "ℹ️ 没有找到符合条件的结果"
}

// Help 不理解问题时的帮助话术，列出可回答的问题样例
func (f *Formatter) Help() string {
	return strings.Join([]string{
		"🤖 我可以帮你查询订单、产品、用户和库存，试试这样问：",
		"· 搜索订单号 PG02612345",
		"· 王小明的订单",
		"· 最近7天的订单",
		"· 已发货的订单",
		"· 水木分类的产品",
		"· 哪些产品库存不足",
		"· 订单统计 / 产品统计",
		"· 检查数据库状态",
	}, "\n")
}

// InvalidParameter 参数错误话术，带期望格式说明
func (f *Formatter) InvalidParameter(e *query.InvalidParameterError) string {
	return fmt.Sprintf("❌ %s", e.Error())
}

// DatabaseUnavailable 数据库故障的统一话术，不暴露内部细节
func (f *Formatter) DatabaseUnavailable() string {
	return "❌ 数据库暂时无法访问，请稍后再试"
}

// DatabaseTimeout 查询超时话术
func (f *Formatter) DatabaseTimeout() string {
	return "⏱️ 查询超时了，请稍后再试或缩小查询范围"
}

// assemble 组装header和条目，超长时截断并注明剩余条数
// 截断永远是显式的，绝不静默丢行
func (f *Formatter) assemble(header string, lines []string) string {
	var sb strings.Builder
	sb.WriteString(header)

	length := len([]rune(header))
	// 给截断尾注留出空间
	budget := f.config.MaxMessageLength - 30

	for i, line := range lines {
		lineLen := len([]rune(line)) + 1
		if length+lineLen > budget {
			fmt.Fprintf(&sb, "\n... 还有 %d 项", len(lines)-i)
			return sb.String()
		}
		sb.WriteString("\n")
		sb.WriteString(line)
		length += lineLen
	}
	return sb.String()
}

func (f *Formatter) orderCard(row map[string]any) string {
	total, _ := decimal(row["total"])
	return strings.Join([]string{
		fmt.Sprintf("✅ 找到订单 %s：", text(row["external_order_id"])),
		fmt.Sprintf("📦 订单号：%s", text(row["external_order_id"])),
		fmt.Sprintf("👤 客户：%s", text(row["customer_name"])),
		fmt.Sprintf("📊 状态：%s", statusLabel(text(row["status"]))),
		fmt.Sprintf("💰 金额：%s", money(total)),
		fmt.Sprintf("📅 日期：%s", date(row["order_date"])),
	}, "\n")
}

func orderLine(row map[string]any) string {
	total, _ := decimal(row["total"])
	return fmt.Sprintf("📦 %s | %s | %s | %s | %s",
		text(row["external_order_id"]), text(row["customer_name"]),
		statusLabel(text(row["status"])), money(total), date(row["order_date"]))
}

func productLine(row map[string]any) string {
	price, _ := decimal(row["price"])
	return fmt.Sprintf("%s | %s | %s | 库存 %d | %s",
		text(row["sku"]), text(row["name"]), money(price),
		integer(row["stock_quantity"]), text(row["category"]))
}

func userLine(row map[string]any) string {
	return fmt.Sprintf("%s (%s) | %s",
		text(row["name"]), text(row["username"]), text(row["email"]))
}

func genericLine(columns []string, row map[string]any) string {
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		parts = append(parts, fmt.Sprintf("%s=%s", col, text(row[col])))
	}
	return strings.Join(parts, " | ")
}

func statusLabel(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}

func hasColumn(rs *query.ResultSet, name string) bool {
	for _, col := range rs.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// text 任意值的字符串表示，nil渲染为占位符
func text(v any) string {
	if v == nil {
		return "-"
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "是"
		}
		return "否"
	case time.Time:
		return t.Format("2006-01-02")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// date 日期值渲染
func date(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.Format("2006-01-02")
	}
	return text(v)
}

// money 金额渲染
func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// decimal 把pgx可能返回的各种数值类型归一为float64
func decimal(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case pgtype.Numeric:
		f, err := n.Float64Value()
		if err != nil || !f.Valid {
			return 0, false
		}
		return f.Float64, true
	default:
		return 0, false
	}
}

// integer 整数归一
func integer(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		if f, ok := decimal(v); ok {
			return int64(f)
		}
		return 0
	}
}
