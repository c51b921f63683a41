// Package bot 问答编排器
// 串起意图分类、查询构造、执行与渲染，任何一步失败都降级为中文提示语，
// 绝不把内部错误细节返回给用户
package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"storechat-go/internal/format"
	"storechat-go/internal/intent"
	"storechat-go/internal/query"
)

// Database 查询执行后端
type Database interface {
	ExecuteRead(ctx context.Context, plan *query.Plan) (*query.ResultSet, error)
	ExecuteAggregate(ctx context.Context, plan *query.Plan) (*query.ResultSet, error)
	Ping(ctx context.Context) error
}

// AnswerCache 短TTL的答案缓存，可选
type AnswerCache interface {
	Get(ctx context.Context, question string) (string, bool)
	Set(ctx context.Context, question, answer string)
}

// MetricsRecorder 问答指标上报，可选
type MetricsRecorder interface {
	RecordQuestion(intentLabel, status string, duration time.Duration)
	RecordDBQuery(entity, status string, duration time.Duration)
}

// Handler 单次问答的处理入口，可并发使用
type Handler struct {
	classifier *intent.Classifier
	builder    *query.Builder
	db         Database
	formatter  *format.Formatter
	cache      AnswerCache
	metrics    MetricsRecorder
	logger     *zap.Logger
}

// NewHandler 创建编排器，cache和metrics可为nil
func NewHandler(
	classifier *intent.Classifier,
	builder *query.Builder,
	db Database,
	formatter *format.Formatter,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		classifier: classifier,
		builder:    builder,
		db:         db,
		formatter:  formatter,
		logger:     logger,
	}
}

// WithCache 启用答案缓存
func (h *Handler) WithCache(cache AnswerCache) *Handler {
	h.cache = cache
	return h
}

// WithMetrics 启用指标上报
func (h *Handler) WithMetrics(m MetricsRecorder) *Handler {
	h.metrics = m
	return h
}

// Handle 处理一个中文问题，永远返回可直接展示的回复
func (h *Handler) Handle(ctx context.Context, question string) string {
	start := time.Now()
	question = strings.TrimSpace(question)
	if question == "" {
		return h.formatter.Help()
	}

	if h.cache != nil {
		if answer, ok := h.cache.Get(ctx, question); ok {
			h.record("cached", "ok", start)
			return answer
		}
	}

	it := h.classifier.Classify(ctx, question)
	answer, status, cacheable := h.answer(ctx, it)

	h.logger.Info("问题处理完成",
		zap.String("intent", it.Type.String()),
		zap.String("rule", it.Source),
		zap.String("status", status),
		zap.Duration("duration", time.Since(start)))
	h.record(it.Type.String(), status, start)

	if cacheable && h.cache != nil {
		h.cache.Set(ctx, question, answer)
	}
	return answer
}

// answer 按意图分派，返回回复、状态标签和是否可缓存
// 错误路径的回复一律不可缓存，故障恢复后不应继续吐旧错误
func (h *Handler) answer(ctx context.Context, it intent.Intent) (string, string, bool) {
	switch it.Type {
	case intent.Unknown:
		// 不理解的问题不碰数据库
		return h.formatter.Help(), "unknown", false

	case intent.HealthCheck:
		err := h.db.Ping(ctx)
		if err != nil {
			h.logger.Warn("健康检查失败", zap.Error(err))
		}
		return h.formatter.FormatHealth(err), "health", false
	}

	plan, err := h.builder.Build(it)
	if err != nil {
		if ipe, ok := query.AsInvalidParameter(err); ok {
			return h.formatter.InvalidParameter(ipe), "invalid_parameter", false
		}
		if errors.Is(err, query.ErrUnsupported) {
			return h.formatter.Help(), "unsupported", false
		}
		h.logger.Error("查询构造失败", zap.String("intent", it.Type.String()), zap.Error(err))
		return h.formatter.DatabaseUnavailable(), "build_error", false
	}

	var rs *query.ResultSet
	dbStart := time.Now()
	if plan.IsAggregate() {
		rs, err = h.db.ExecuteAggregate(ctx, plan)
	} else {
		rs, err = h.db.ExecuteRead(ctx, plan)
	}
	h.recordDB(plan.Entity, err, dbStart)
	if err != nil {
		h.logger.Error("查询执行失败",
			zap.String("entity", plan.Entity),
			zap.Error(err))
		if errors.Is(err, query.ErrDatabaseTimeout) {
			return h.formatter.DatabaseTimeout(), "db_timeout", false
		}
		return h.formatter.DatabaseUnavailable(), "db_error", false
	}

	status := "ok"
	if len(rs.Rows) == 0 {
		status = "empty"
	}
	if plan.IsAggregate() {
		return h.formatter.FormatAggregate(rs), status, true
	}
	return h.formatter.FormatRows(rs), status, true
}

func (h *Handler) record(intentLabel, status string, start time.Time) {
	if h.metrics != nil {
		h.metrics.RecordQuestion(intentLabel, status, time.Since(start))
	}
}

func (h *Handler) recordDB(entity string, err error, start time.Time) {
	if h.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	h.metrics.RecordDBQuery(entity, status, time.Since(start))
}
