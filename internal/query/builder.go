package query

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"storechat-go/internal/intent"
	"storechat-go/internal/schema"
)

// BuilderConfig 查询构造参数
type BuilderConfig struct {
	MaxResults        int // 结果数硬上限，limit钳制到[1, MaxResults]
	DefaultLimit      int // 问题中没有给数量时的默认条数
	LowStockThreshold int // 库存不足判定阈值
}

// DefaultBuilderConfig 默认构造参数
func DefaultBuilderConfig() *BuilderConfig {
	return &BuilderConfig{
		MaxResults:        50,
		DefaultLimit:      10,
		LowStockThreshold: 10,
	}
}

// Validate 校验配置合法性
func (c *BuilderConfig) Validate() error {
	if c.MaxResults < 1 {
		return fmt.Errorf("MaxResults必须为正数: %d", c.MaxResults)
	}
	if c.DefaultLimit < 1 || c.DefaultLimit > c.MaxResults {
		return fmt.Errorf("DefaultLimit必须在[1, %d]内: %d", c.MaxResults, c.DefaultLimit)
	}
	if c.LowStockThreshold < 0 {
		return fmt.Errorf("LowStockThreshold不能为负: %d", c.LowStockThreshold)
	}
	return nil
}

// 编号类参数的合法形式，超出的一律拒绝而不是尝试清洗
var (
	orderIDShape  = regexp.MustCompile(`^[A-Za-z0-9\-]{1,32}$`)
	skuShape      = regexp.MustCompile(`^[A-Za-z0-9\-_]{1,32}$`)
	usernameShape = regexp.MustCompile(`^[A-Za-z0-9_.\-]{1,64}$`)
)

// Builder 把意图编译为查询计划
// 只产出计划，不接触数据库，便于独立测试
type Builder struct {
	desc   *schema.Descriptor
	config *BuilderConfig
	logger *zap.Logger
}

// NewBuilder 创建查询构造器
func NewBuilder(desc *schema.Descriptor, config *BuilderConfig, logger *zap.Logger) *Builder {
	if config == nil {
		config = DefaultBuilderConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{desc: desc, config: config, logger: logger}
}

// Build 根据意图生成查询计划
// Unknown和HealthCheck不产生计划，返回ErrUnsupported由上层另行处理
func (b *Builder) Build(it intent.Intent) (*Plan, error) {
	var (
		plan *Plan
		err  error
	)

	switch it.Type {
	case intent.OrderLookup:
		plan, err = b.buildOrderPlan(it.Params)
	case intent.ProductLookup:
		plan, err = b.buildProductPlan(it.Params)
	case intent.UserLookup:
		plan, err = b.buildUserPlan(it.Params)
	case intent.StatisticsQuery:
		plan, err = b.buildAggregatePlan(it.Params)
	case intent.AccountInfo:
		plan, err = b.buildAccountPlan(it.Params)
	default:
		return nil, ErrUnsupported
	}
	if err != nil {
		return nil, err
	}

	if verr := b.verify(plan); verr != nil {
		// 到这里说明构造逻辑和描述符脱节了，属于程序缺陷
		b.logger.Error("生成的计划未通过白名单校验",
			zap.String("entity", plan.Entity),
			zap.Error(verr))
		return nil, fmt.Errorf("查询计划校验失败: %w", verr)
	}

	return plan, nil
}

func (b *Builder) buildOrderPlan(p intent.Params) (*Plan, error) {
	entity, _ := b.desc.Entity("orders")

	var preds []Predicate
	if p.OrderID != nil {
		id := strings.TrimSpace(*p.OrderID)
		if !orderIDShape.MatchString(id) {
			return nil, &InvalidParameterError{Field: "order_id", Reason: "订单号只能包含字母、数字和连字符"}
		}
		preds = append(preds, Predicate{Column: "external_order_id", Op: OpEqual, Value: id})
	}
	if p.CustomerName != nil {
		preds = append(preds, Predicate{Column: "customer_name", Op: OpILike, Value: likePattern(*p.CustomerName)})
	} else if p.Keyword != nil && *p.Keyword != "" {
		preds = append(preds, Predicate{Column: "customer_name", Op: OpILike, Value: likePattern(*p.Keyword)})
	}
	if p.Status != nil {
		preds = append(preds, Predicate{Column: "status", Op: OpEqual, Value: *p.Status})
	}
	preds = append(preds, dateRangePredicates("order_date", p)...)

	return &Plan{
		Entity:        "orders",
		Predicates:    preds,
		SortColumn:    entity.DefaultSort.Column,
		SortDirection: entity.DefaultSort.Direction,
		Limit:         b.clampLimit(p.Limit),
	}, nil
}

func (b *Builder) buildProductPlan(p intent.Params) (*Plan, error) {
	entity, _ := b.desc.Entity("products")

	var preds []Predicate
	sortColumn := entity.DefaultSort.Column
	sortDir := entity.DefaultSort.Direction

	if p.SKU != nil {
		sku := strings.ToUpper(strings.TrimSpace(*p.SKU))
		if !skuShape.MatchString(sku) {
			return nil, &InvalidParameterError{Field: "sku", Reason: "SKU只能包含字母、数字、连字符和下划线"}
		}
		preds = append(preds, Predicate{Column: "sku", Op: OpEqual, Value: sku})
	}
	if p.Category != nil {
		preds = append(preds, Predicate{Column: "category", Op: OpEqual, Value: *p.Category})
	}
	if p.Keyword != nil && *p.Keyword != "" {
		preds = append(preds, Predicate{Column: "name", Op: OpILike, Value: likePattern(*p.Keyword)})
	}
	if p.LowStock {
		preds = append(preds,
			Predicate{Column: "stock_quantity", Op: OpLT, Value: b.config.LowStockThreshold},
			Predicate{Column: "is_active", Op: OpEqual, Value: true})
		// 库存告急的排前面
		sortColumn, sortDir = "stock_quantity", schema.SortAsc
	}

	return &Plan{
		Entity:        "products",
		Predicates:    preds,
		SortColumn:    sortColumn,
		SortDirection: sortDir,
		Limit:         b.clampLimit(p.Limit),
	}, nil
}

func (b *Builder) buildUserPlan(p intent.Params) (*Plan, error) {
	entity, _ := b.desc.Entity("users")

	var preds []Predicate
	if p.Username != nil {
		name := strings.TrimSpace(*p.Username)
		if !usernameShape.MatchString(name) {
			return nil, &InvalidParameterError{Field: "username", Reason: "用户名只能包含字母、数字和._-"}
		}
		preds = append(preds, Predicate{Column: "username", Op: OpEqual, Value: name})
	}
	if p.Keyword != nil && *p.Keyword != "" {
		preds = append(preds, Predicate{Column: "name", Op: OpILike, Value: likePattern(*p.Keyword)})
	}

	return &Plan{
		Entity:        "users",
		Predicates:    preds,
		SortColumn:    entity.DefaultSort.Column,
		SortDirection: entity.DefaultSort.Direction,
		Limit:         b.clampLimit(p.Limit),
	}, nil
}

func (b *Builder) buildAccountPlan(p intent.Params) (*Plan, error) {
	entity, _ := b.desc.Entity("accounts")

	return &Plan{
		Entity:        "accounts",
		Predicates:    []Predicate{{Column: "is_active", Op: OpEqual, Value: true}},
		SortColumn:    entity.DefaultSort.Column,
		SortDirection: entity.DefaultSort.Direction,
		Limit:         b.clampLimit(p.Limit),
	}, nil
}

// buildAggregatePlan 统计意图
// 订单统计默认按状态分组；带日期范围时改为按天分桶，回答"最近N天"类问题。
// 产品统计固定按分类分组，附带库存不足计数和库存总值
func (b *Builder) buildAggregatePlan(p intent.Params) (*Plan, error) {
	switch p.StatsTarget {
	case intent.StatsProducts:
		return &Plan{
			Entity: "products",
			Limit:  b.config.MaxResults,
			Aggregate: &AggregateSpec{
				GroupBy: "category",
				Metrics: []Metric{
					{Kind: MetricCount, Alias: "product_count"},
					{Kind: MetricSum, Column: "stock_quantity", Alias: "stock_total"},
					{Kind: MetricSumProduct, Column: "stock_quantity", Column2: "cost", Alias: "stock_value"},
					{Kind: MetricCount, Alias: "low_stock_count",
						Filter: &Predicate{Column: "stock_quantity", Op: OpLT, Value: b.config.LowStockThreshold}},
				},
			},
		}, nil

	case intent.StatsOrders, "":
		preds := dateRangePredicates("order_date", p)
		spec := &AggregateSpec{
			GroupBy: "status",
			Metrics: []Metric{
				{Kind: MetricCount, Alias: "order_count"},
				{Kind: MetricSum, Column: "total", Alias: "revenue"},
				{Kind: MetricAvg, Column: "total", Alias: "avg_total"},
			},
		}
		if len(preds) > 0 {
			spec.GroupBy = ""
			spec.DayBucket = "order_date"
			spec.Metrics = []Metric{
				{Kind: MetricCount, Alias: "order_count"},
				{Kind: MetricSum, Column: "total", Alias: "revenue"},
			}
		}
		return &Plan{
			Entity:     "orders",
			Predicates: preds,
			Limit:      b.config.MaxResults,
			Aggregate:  spec,
		}, nil

	default:
		return nil, &InvalidParameterError{Field: "stats_target", Reason: fmt.Sprintf("未知的统计目标 %s", p.StatsTarget)}
	}
}

// clampLimit 把请求条数钳制到[1, MaxResults]，缺失时用默认值
func (b *Builder) clampLimit(limit *int) int {
	if limit == nil {
		return b.config.DefaultLimit
	}
	n := *limit
	if n < 1 {
		return 1
	}
	if n > b.config.MaxResults {
		return b.config.MaxResults
	}
	return n
}

// verify 对生成的计划做白名单复核
// 渲染层还会再查一遍，这里提前失败便于定位是哪条构造路径出的问题
func (b *Builder) verify(p *Plan) error {
	entity, ok := b.desc.Entity(p.Entity)
	if !ok {
		return fmt.Errorf("实体 %s 不在描述符中", p.Entity)
	}
	for _, pred := range p.Predicates {
		if !entity.IsFilterable(pred.Column) {
			return fmt.Errorf("列 %s 不可过滤", pred.Column)
		}
	}
	if p.SortColumn != "" && !entity.IsSortable(p.SortColumn) {
		return fmt.Errorf("列 %s 不可排序", p.SortColumn)
	}
	if p.Limit < 1 || p.Limit > b.config.MaxResults {
		return fmt.Errorf("limit %d 超出范围", p.Limit)
	}
	return nil
}

// dateRangePredicates 把日期范围参数转成谓词
func dateRangePredicates(column string, p intent.Params) []Predicate {
	var preds []Predicate
	if p.DateFrom != nil {
		preds = append(preds, Predicate{Column: column, Op: OpGTE, Value: *p.DateFrom})
	}
	if p.DateTo != nil {
		preds = append(preds, Predicate{Column: column, Op: OpLTE, Value: *p.DateTo})
	}
	return preds
}

// likePattern 把自由文本变成子串匹配模式
// 转义LIKE元字符，保证用户输入中的%和_按字面匹配
func likePattern(term string) string {
	term = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.TrimSpace(term))
	return "%" + term + "%"
}
