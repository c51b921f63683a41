// Package query 将分类后的意图编译为参数化的只读查询并执行
// 列名和表名只能来自schema描述符，用户输入只能以绑定参数的形式进入SQL
package query

import (
	"time"

	"storechat-go/internal/schema"
)

// Operator 谓词比较算子，封闭集合
type Operator string

const (
	OpEqual Operator = "="
	OpILike Operator = "ILIKE"
	OpGTE   Operator = ">="
	OpLTE   Operator = "<="
	OpLT    Operator = "<"
)

// Predicate 一个过滤条件
// Column必须在目标实体的可过滤白名单中，Value在渲染时变成绑定参数
type Predicate struct {
	Column string
	Op     Operator
	Value  any
}

// MetricKind 聚合指标类型
type MetricKind string

const (
	MetricCount      MetricKind = "count"
	MetricSum        MetricKind = "sum"
	MetricAvg        MetricKind = "avg"
	MetricSumProduct MetricKind = "sum_product"
)

// Metric 聚合计划中的一个指标列
type Metric struct {
	Kind    MetricKind
	Column  string     // count时为空
	Column2 string     // 仅sum_product使用，sum(Column * Column2)
	Alias   string     // 结果列名，小写字母和下划线
	Filter  *Predicate // 可选的 FILTER (WHERE ...) 条件
}

// AggregateSpec 聚合查询的形状
// GroupBy与DayBucket互斥：按列分组，或按日期列的天粒度分桶
type AggregateSpec struct {
	GroupBy   string
	DayBucket string
	Metrics   []Metric
}

// Plan 一次查询的完整描述，可独立校验和渲染
// Aggregate为nil时是行查询，否则是聚合查询
type Plan struct {
	Entity        string
	Predicates    []Predicate
	SortColumn    string
	SortDirection schema.SortDirection
	Limit         int
	Aggregate     *AggregateSpec
}

// IsAggregate 判断是否为聚合计划
func (p *Plan) IsAggregate() bool { return p.Aggregate != nil }

// ResultSet 一次查询的执行结果
// 空结果是正常结果，Rows长度为0而不是错误
type ResultSet struct {
	Entity   string
	Columns  []string
	Rows     []map[string]any
	Duration time.Duration
}
