package intent

import "time"

// rule 一条分类规则：关键词集合、目标意图、参数提取器
// 规则按声明顺序求值，第一条命中即胜出，因此优先级和平局裁决完全由
// 本表的字面顺序决定，特异性高的意图必须排在宽泛意图之前
type rule struct {
	name       string
	intentType Type
	keywords   []string
	extract    func(text string, now time.Time, p *Params)
}

// ruleTable 规则表，顺序即总优先级
// 顺序：订单号 > SKU > 库存 > 健康 > 统计 > 最近订单 > 状态 >
// 分类 > 账号 > 用户 > 产品 > 客户 > 兜底订单检索
var ruleTable = []rule{
	{
		name:       "order_by_id",
		intentType: OrderLookup,
		keywords:   []string{"订单号", "訂單號", "订单编号", "訂單編號", "order_id", "order id", "order number"},
		extract: func(text string, _ time.Time, p *Params) {
			if id, ok := extractOrderID(text); ok {
				p.OrderID = strptr(id)
			}
		},
	},
	{
		name:       "product_by_sku",
		intentType: ProductLookup,
		keywords:   []string{"sku", "产品编号", "產品編號", "product number"},
		extract: func(text string, _ time.Time, p *Params) {
			if sku, ok := extractSKU(text); ok {
				p.SKU = strptr(sku)
			}
		},
	},
	{
		name:       "low_stock",
		intentType: ProductLookup,
		keywords:   []string{"库存不足", "庫存不足", "缺货", "缺貨", "low stock"},
		extract: func(_ string, _ time.Time, p *Params) {
			p.LowStock = true
		},
	},
	{
		// 健康检查必须先于统计和状态规则求值："数据库状态"同时包含
		// 统计关键词"数据"和状态关键词"状态"，但它问的是连接健康
		name:       "health_check",
		intentType: HealthCheck,
		keywords:   []string{"健康", "health", "连接", "連接", "数据库状态", "資料庫狀態", "ping"},
	},
	{
		name:       "statistics",
		intentType: StatisticsQuery,
		keywords:   []string{"统计", "統計", "statistics", "数据", "數據"},
		extract: func(text string, now time.Time, p *Params) {
			p.StatsTarget = StatsOrders
			if containsAny(text, []string{"产品", "產品", "商品", "product"}) {
				p.StatsTarget = StatsProducts
			}
			p.DateFrom, p.DateTo = extractDateRange(text, now)
		},
	},
	{
		name:       "recent_orders",
		intentType: OrderLookup,
		keywords:   []string{"最近", "最新", "recent", "latest"},
		extract:    extractRecentParams,
	},
	{
		name:       "order_by_status",
		intentType: OrderLookup,
		keywords:   []string{"状态", "狀態", "状况", "狀況", "status"},
		extract: func(text string, _ time.Time, p *Params) {
			if s, ok := extractStatus(text); ok {
				p.Status = strptr(s)
			}
		},
	},
	{
		name:       "product_by_category",
		intentType: ProductLookup,
		keywords:   []string{"分类", "分類", "类别", "類別", "category"},
		extract: func(text string, _ time.Time, p *Params) {
			if c, ok := extractCategory(text); ok {
				p.Category = strptr(c)
			}
		},
	},
	{
		name:       "account_info",
		intentType: AccountInfo,
		keywords:   []string{"帐号", "帳號", "账号", "賬號", "account", "myacg"},
	},
	{
		name:       "user_search",
		intentType: UserLookup,
		keywords:   []string{"用户", "用戶", "使用者", "user"},
		extract: func(text string, _ time.Time, p *Params) {
			if u, ok := extractUsername(text); ok {
				p.Username = strptr(u)
				return
			}
			if term := extractFreeText(text); term != "" {
				p.Keyword = strptr(term)
			}
		},
	},
	{
		name:       "product_search",
		intentType: ProductLookup,
		keywords:   []string{"产品", "產品", "商品", "product"},
		extract: func(text string, _ time.Time, p *Params) {
			if term := extractFreeText(text); term != "" {
				p.Keyword = strptr(term)
			}
		},
	},
	{
		name:       "customer_orders",
		intentType: OrderLookup,
		keywords:   []string{"客户", "客戶", "顾客", "顧客", "customer"},
		extract: func(text string, now time.Time, p *Params) {
			if term := extractFreeText(text); term != "" {
				p.CustomerName = strptr(term)
			}
			p.DateFrom, p.DateTo = extractDateRange(text, now)
		},
	},
	{
		// 兜底订单检索：要求出现查询动词或订单名词，纯乱码不落入此规则
		name:       "order_search",
		intentType: OrderLookup,
		keywords: []string{
			"订单", "訂單", "order",
			"搜索", "搜尋", "查找", "查询", "查詢", "查", "显示", "顯示", "列出", "查看",
			"search", "find", "query", "show", "list",
		},
		extract: func(text string, now time.Time, p *Params) {
			if id, ok := extractOrderID(text); ok {
				p.OrderID = strptr(id)
			} else if term := extractFreeText(text); term != "" {
				p.Keyword = strptr(term)
			}
			p.DateFrom, p.DateTo = extractDateRange(text, now)
		},
	},
}

// extractRecentParams "最近N个订单"类问题的参数提取
// 数字先按量词认作条数；出现相对日期（最近N天）时数字属于日期而不是条数
func extractRecentParams(text string, now time.Time, p *Params) {
	p.DateFrom, p.DateTo = extractDateRange(text, now)

	if m := limitPattern.FindStringSubmatch(text); m != nil {
		if n, ok := extractLimit(m[0]); ok {
			p.Limit = intptr(n)
		}
		return
	}
	if p.DateFrom == nil && p.DateTo == nil {
		if n, ok := extractLimit(text); ok {
			p.Limit = intptr(n)
		}
	}
}
