// Package metrics Prometheus指标收集
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Registry 服务的全部指标
// 独立registry，不污染默认全局注册器，测试可并行创建多个实例
type Registry struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	questionsTotal   *prometheus.CounterVec
	questionDuration *prometheus.HistogramVec
	dbQueriesTotal   *prometheus.CounterVec
	dbQueryDuration  *prometheus.HistogramVec

	activeRequests prometheus.Gauge

	registry *prometheus.Registry
	logger   *zap.Logger
}

// NewRegistry 创建指标收集器
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Registry{
		registry: prometheus.NewRegistry(),
		logger:   logger,
	}

	r.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storechat",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	r.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storechat",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	r.questionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storechat",
			Subsystem: "bot",
			Name:      "questions_total",
			Help:      "Total number of chat questions by intent and outcome",
		},
		[]string{"intent", "status"},
	)

	r.questionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storechat",
			Subsystem: "bot",
			Name:      "question_duration_seconds",
			Help:      "End to end question handling duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"intent"},
	)

	r.dbQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storechat",
			Subsystem: "db",
			Name:      "queries_total",
			Help:      "Total number of database queries by entity and outcome",
		},
		[]string{"entity", "status"},
	)

	r.dbQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storechat",
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"entity"},
	)

	r.activeRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "storechat",
			Subsystem: "http",
			Name:      "active_requests",
			Help:      "Number of in-flight HTTP requests",
		},
	)

	r.registry.MustRegister(
		r.httpRequestsTotal,
		r.httpRequestDuration,
		r.questionsTotal,
		r.questionDuration,
		r.dbQueriesTotal,
		r.dbQueryDuration,
		r.activeRequests,
	)

	logger.Info("Prometheus指标注册完成")
	return r
}

// HTTPMiddleware gin中间件，收集每个请求的计数和延迟
func (r *Registry) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		r.activeRequests.Inc()
		defer r.activeRequests.Dec()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		method := c.Request.Method
		statusCode := strconv.Itoa(c.Writer.Status())

		r.httpRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
		r.httpRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// RecordQuestion 记录一次问答，intent和status是有限枚举标签
func (r *Registry) RecordQuestion(intentLabel, status string, duration time.Duration) {
	r.questionsTotal.WithLabelValues(intentLabel, status).Inc()
	r.questionDuration.WithLabelValues(intentLabel).Observe(duration.Seconds())
}

// RecordDBQuery 记录一次数据库查询
func (r *Registry) RecordDBQuery(entity, status string, duration time.Duration) {
	r.dbQueriesTotal.WithLabelValues(entity, status).Inc()
	r.dbQueryDuration.WithLabelValues(entity).Observe(duration.Seconds())
}

// Handler /metrics端点
func (r *Registry) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Gatherer 暴露底层registry，测试断言用
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}
