package query

import (
	"fmt"
	"regexp"
	"strings"

	"storechat-go/internal/schema"
)

// 渲染层的硬上限，与构造层配置无关的最后一道闸
const maxRenderLimit = 500

var aliasShape = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Render 把计划渲染成参数化SQL
// 标识符只接受描述符中登记过的列名，值全部走$n绑定参数；
// 任何校验失败直接报错，绝不尝试修补计划
func Render(entity *schema.Entity, plan *Plan) (string, []any, error) {
	if entity.Name != plan.Entity {
		return "", nil, fmt.Errorf("计划实体 %s 与描述符实体 %s 不一致", plan.Entity, entity.Name)
	}
	if plan.Limit < 1 || plan.Limit > maxRenderLimit {
		return "", nil, fmt.Errorf("limit %d 超出渲染上限", plan.Limit)
	}

	if plan.IsAggregate() {
		return renderAggregate(entity, plan)
	}
	return renderRows(entity, plan)
}

func renderRows(entity *schema.Entity, plan *Plan) (string, []any, error) {
	columns := entity.Display
	if len(columns) == 0 {
		columns = entity.ColumnNames()
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(entity.Name)

	args, err := writeWhere(&sb, entity, plan.Predicates, nil)
	if err != nil {
		return "", nil, err
	}

	sortColumn := plan.SortColumn
	sortDir := plan.SortDirection
	if sortColumn == "" {
		sortColumn = entity.DefaultSort.Column
		sortDir = entity.DefaultSort.Direction
	}
	if !entity.IsSortable(sortColumn) {
		return "", nil, fmt.Errorf("列 %s 不在实体 %s 的可排序白名单中", sortColumn, entity.Name)
	}
	if sortDir != schema.SortAsc && sortDir != schema.SortDesc {
		return "", nil, fmt.Errorf("排序方向无效: %s", sortDir)
	}
	fmt.Fprintf(&sb, " ORDER BY %s %s LIMIT %d", sortColumn, sortDir, plan.Limit)

	return sb.String(), args, nil
}

func renderAggregate(entity *schema.Entity, plan *Plan) (string, []any, error) {
	spec := plan.Aggregate
	if (spec.GroupBy == "") == (spec.DayBucket == "") {
		return "", nil, fmt.Errorf("聚合计划必须恰好指定GroupBy或DayBucket之一")
	}
	if len(spec.Metrics) == 0 {
		return "", nil, fmt.Errorf("聚合计划缺少指标")
	}

	var groupExpr, groupAlias string
	switch {
	case spec.GroupBy != "":
		if _, ok := entity.ColumnType(spec.GroupBy); !ok {
			return "", nil, fmt.Errorf("分组列 %s 不在实体 %s 中", spec.GroupBy, entity.Name)
		}
		groupExpr, groupAlias = spec.GroupBy, spec.GroupBy
	default:
		if t, ok := entity.ColumnType(spec.DayBucket); !ok || t != schema.TypeDate {
			return "", nil, fmt.Errorf("分桶列 %s 必须是实体 %s 的日期列", spec.DayBucket, entity.Name)
		}
		groupExpr = fmt.Sprintf("date_trunc('day', %s)::date", spec.DayBucket)
		groupAlias = "day"
	}

	var sb strings.Builder
	var args []any
	fmt.Fprintf(&sb, "SELECT %s AS %s", groupExpr, groupAlias)

	for _, m := range spec.Metrics {
		expr, err := metricExpr(entity, m)
		if err != nil {
			return "", nil, err
		}
		if m.Filter != nil {
			cond, filterArgs, ferr := predicateSQL(entity, *m.Filter, len(args))
			if ferr != nil {
				return "", nil, ferr
			}
			expr = fmt.Sprintf("%s FILTER (WHERE %s)", expr, cond)
			args = append(args, filterArgs...)
		}
		fmt.Fprintf(&sb, ", %s AS %s", expr, m.Alias)
	}

	sb.WriteString(" FROM ")
	sb.WriteString(entity.Name)

	whereArgs, err := writeWhere(&sb, entity, plan.Predicates, args)
	if err != nil {
		return "", nil, err
	}
	args = whereArgs

	fmt.Fprintf(&sb, " GROUP BY %s", groupExpr)
	if spec.DayBucket != "" {
		sb.WriteString(" ORDER BY 1")
	} else {
		// 按首个指标降序，计数大的分组排前面
		sb.WriteString(" ORDER BY 2 DESC")
	}
	fmt.Fprintf(&sb, " LIMIT %d", plan.Limit)

	return sb.String(), args, nil
}

// writeWhere 渲染WHERE子句，追加绑定参数
func writeWhere(sb *strings.Builder, entity *schema.Entity, preds []Predicate, args []any) ([]any, error) {
	if len(preds) == 0 {
		return args, nil
	}
	sb.WriteString(" WHERE ")
	for i, pred := range preds {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		cond, predArgs, err := predicateSQL(entity, pred, len(args))
		if err != nil {
			return nil, err
		}
		sb.WriteString(cond)
		args = append(args, predArgs...)
	}
	return args, nil
}

// predicateSQL 渲染单个谓词，argOffset是已占用的参数个数
func predicateSQL(entity *schema.Entity, pred Predicate, argOffset int) (string, []any, error) {
	if !entity.IsFilterable(pred.Column) {
		return "", nil, fmt.Errorf("列 %s 不在实体 %s 的可过滤白名单中", pred.Column, entity.Name)
	}
	switch pred.Op {
	case OpEqual, OpILike, OpGTE, OpLTE, OpLT:
	default:
		return "", nil, fmt.Errorf("不支持的算子: %s", pred.Op)
	}
	return fmt.Sprintf("%s %s $%d", pred.Column, pred.Op, argOffset+1), []any{pred.Value}, nil
}

// metricExpr 渲染指标表达式，涉及的列必须在实体中登记
func metricExpr(entity *schema.Entity, m Metric) (string, error) {
	if !aliasShape.MatchString(m.Alias) {
		return "", fmt.Errorf("指标别名无效: %q", m.Alias)
	}

	requireColumn := func(col string) error {
		if _, ok := entity.ColumnType(col); !ok {
			return fmt.Errorf("指标列 %s 不在实体 %s 中", col, entity.Name)
		}
		return nil
	}

	switch m.Kind {
	case MetricCount:
		return "COUNT(*)", nil
	case MetricSum:
		if err := requireColumn(m.Column); err != nil {
			return "", err
		}
		return fmt.Sprintf("COALESCE(SUM(%s), 0)", m.Column), nil
	case MetricAvg:
		if err := requireColumn(m.Column); err != nil {
			return "", err
		}
		return fmt.Sprintf("COALESCE(AVG(%s), 0)", m.Column), nil
	case MetricSumProduct:
		if err := requireColumn(m.Column); err != nil {
			return "", err
		}
		if err := requireColumn(m.Column2); err != nil {
			return "", err
		}
		return fmt.Sprintf("COALESCE(SUM(%s * %s), 0)", m.Column, m.Column2), nil
	default:
		return "", fmt.Errorf("不支持的指标类型: %s", m.Kind)
	}
}
