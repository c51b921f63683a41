package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storechat-go/internal/schema"
)

// ExecutorConfig 执行参数
type ExecutorConfig struct {
	QueryTimeout time.Duration // 单次查询超时
	MaxRows      int           // 读取行数上限，超过即截断
}

// DefaultExecutorConfig 默认执行参数
func DefaultExecutorConfig() *ExecutorConfig {
	return &ExecutorConfig{
		QueryTimeout: 5 * time.Second,
		MaxRows:      200,
	}
}

// Validate 校验配置合法性
func (c *ExecutorConfig) Validate() error {
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("QueryTimeout必须为正: %v", c.QueryTimeout)
	}
	if c.MaxRows < 1 {
		return fmt.Errorf("MaxRows必须为正: %d", c.MaxRows)
	}
	return nil
}

// Executor 在连接池上执行查询计划
// 计划在渲染时经过白名单复核，执行层只负责超时、行数上限和错误归类
type Executor struct {
	pool   *pgxpool.Pool
	desc   *schema.Descriptor
	config *ExecutorConfig
	logger *zap.Logger
}

// NewExecutor 创建执行器
func NewExecutor(pool *pgxpool.Pool, desc *schema.Descriptor, config *ExecutorConfig, logger *zap.Logger) *Executor {
	if config == nil {
		config = DefaultExecutorConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{pool: pool, desc: desc, config: config, logger: logger}
}

// ExecuteRead 执行行查询计划
func (ex *Executor) ExecuteRead(ctx context.Context, plan *Plan) (*ResultSet, error) {
	if plan.IsAggregate() {
		return nil, fmt.Errorf("聚合计划应使用ExecuteAggregate执行")
	}
	return ex.run(ctx, plan)
}

// ExecuteAggregate 执行聚合计划
func (ex *Executor) ExecuteAggregate(ctx context.Context, plan *Plan) (*ResultSet, error) {
	if !plan.IsAggregate() {
		return nil, fmt.Errorf("行查询计划应使用ExecuteRead执行")
	}
	return ex.run(ctx, plan)
}

// Ping 检查数据库连通性
func (ex *Executor) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ex.config.QueryTimeout)
	defer cancel()

	if err := ex.pool.Ping(ctx); err != nil {
		return ex.classify(ctx, err)
	}
	return nil
}

func (ex *Executor) run(ctx context.Context, plan *Plan) (*ResultSet, error) {
	entity, ok := ex.desc.Entity(plan.Entity)
	if !ok {
		return nil, fmt.Errorf("实体 %s 不在描述符中", plan.Entity)
	}

	sql, args, err := Render(entity, plan)
	if err != nil {
		return nil, fmt.Errorf("渲染查询失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, ex.config.QueryTimeout)
	defer cancel()

	start := time.Now()
	rows, err := ex.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, ex.classify(ctx, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	result := &ResultSet{Entity: plan.Entity, Columns: columns}
	for rows.Next() {
		if len(result.Rows) >= ex.config.MaxRows {
			ex.logger.Warn("结果行数达到上限，截断",
				zap.String("entity", plan.Entity),
				zap.Int("max_rows", ex.config.MaxRows))
			break
		}
		values, verr := rows.Values()
		if verr != nil {
			return nil, fmt.Errorf("读取结果行失败: %w", verr)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, ex.classify(ctx, err)
	}

	result.Duration = time.Since(start)
	ex.logger.Debug("查询完成",
		zap.String("entity", plan.Entity),
		zap.Bool("aggregate", plan.IsAggregate()),
		zap.Int("rows", len(result.Rows)),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// classify 把底层错误归类为哨兵错误
// 原始错误保留在链上供日志使用，用户话术由上层根据哨兵选择
func (ex *Executor) classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrDatabaseTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		ex.logger.Error("数据库返回错误",
			zap.String("code", pgErr.Code),
			zap.String("message", pgErr.Message))
		return fmt.Errorf("%w: %s", ErrDatabaseUnavailable, pgErr.Code)
	}

	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrDatabaseTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
}
