package bot

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storechat-go/internal/format"
	"storechat-go/internal/intent"
	"storechat-go/internal/query"
	"storechat-go/internal/schema"
)

// fakeDB 可编排的查询后端
type fakeDB struct {
	readResult *query.ResultSet
	aggResult  *query.ResultSet
	readErr    error
	aggErr     error
	pingErr    error

	readCalls int
	aggCalls  int
	pingCalls int
	lastPlan  *query.Plan
}

func (f *fakeDB) ExecuteRead(_ context.Context, plan *query.Plan) (*query.ResultSet, error) {
	f.readCalls++
	f.lastPlan = plan
	if f.readErr != nil {
		return nil, f.readErr
	}
	if f.readResult != nil {
		return f.readResult, nil
	}
	return &query.ResultSet{Entity: plan.Entity}, nil
}

func (f *fakeDB) ExecuteAggregate(_ context.Context, plan *query.Plan) (*query.ResultSet, error) {
	f.aggCalls++
	f.lastPlan = plan
	if f.aggErr != nil {
		return nil, f.aggErr
	}
	if f.aggResult != nil {
		return f.aggResult, nil
	}
	return &query.ResultSet{Entity: plan.Entity}, nil
}

func (f *fakeDB) Ping(_ context.Context) error {
	f.pingCalls++
	return f.pingErr
}

// memCache 进程内缓存，测试用
type memCache struct {
	entries map[string]string
	sets    int
}

func newMemCache() *memCache { return &memCache{entries: make(map[string]string)} }

func (c *memCache) Get(_ context.Context, question string) (string, bool) {
	v, ok := c.entries[question]
	return v, ok
}

func (c *memCache) Set(_ context.Context, question, answer string) {
	c.sets++
	c.entries[question] = answer
}

func newTestHandler(t *testing.T, db *fakeDB) *Handler {
	t.Helper()
	desc := schema.Default()
	classifier := intent.NewClassifier(desc, nil, zap.NewNop())
	builder := query.NewBuilder(desc, query.DefaultBuilderConfig(), zap.NewNop())
	return NewHandler(classifier, builder, db, format.NewFormatter(nil), zap.NewNop())
}

// TestHandle_OrderLookup 订单号问题走行查询
func TestHandle_OrderLookup(t *testing.T) {
	db := &fakeDB{
		readResult: &query.ResultSet{
			Entity: "orders",
			Rows: []map[string]any{{
				"external_order_id": "ORD002",
				"customer_name":     "王小明",
				"status":            "shipped",
				"total":             120.5,
				"order_date":        time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			}},
		},
	}
	h := newTestHandler(t, db)

	answer := h.Handle(context.Background(), "搜索订单号 ORD002")
	assert.Contains(t, answer, "ORD002")
	assert.Contains(t, answer, "王小明")
	assert.Equal(t, 1, db.readCalls)
	require.NotNil(t, db.lastPlan)
	assert.Equal(t, "orders", db.lastPlan.Entity)
}

// TestHandle_UnknownNeverTouchesDB 不理解的问题返回帮助且不碰数据库
func TestHandle_UnknownNeverTouchesDB(t *testing.T) {
	db := &fakeDB{}
	h := newTestHandler(t, db)

	answer := h.Handle(context.Background(), "今天天气怎么样啊")
	assert.Contains(t, answer, "🤖")
	assert.Equal(t, 0, db.readCalls)
	assert.Equal(t, 0, db.aggCalls)
	assert.Equal(t, 0, db.pingCalls)
}

// TestHandle_EmptyInput 空输入返回帮助
func TestHandle_EmptyInput(t *testing.T) {
	db := &fakeDB{}
	h := newTestHandler(t, db)

	answer := h.Handle(context.Background(), "   ")
	assert.Contains(t, answer, "🤖")
	assert.Equal(t, 0, db.readCalls)
}

// TestHandle_HealthCheckBypassesBuilder 健康检查只ping不查询
func TestHandle_HealthCheckBypassesBuilder(t *testing.T) {
	db := &fakeDB{}
	h := newTestHandler(t, db)

	answer := h.Handle(context.Background(), "检查数据库状态")
	assert.Contains(t, answer, "✅")
	assert.Equal(t, 1, db.pingCalls)
	assert.Equal(t, 0, db.readCalls)

	db.pingErr = fmt.Errorf("connection refused")
	answer = h.Handle(context.Background(), "检查数据库状态")
	assert.Contains(t, answer, "❌")
	assert.NotContains(t, answer, "connection refused")
}

// TestHandle_DatabaseErrorsFailSoft 数据库故障降级为统一话术
func TestHandle_DatabaseErrorsFailSoft(t *testing.T) {
	t.Run("一般故障", func(t *testing.T) {
		db := &fakeDB{readErr: fmt.Errorf("%w: dial tcp refused", query.ErrDatabaseUnavailable)}
		h := newTestHandler(t, db)

		answer := h.Handle(context.Background(), "查询订单 12345")
		assert.Contains(t, answer, "数据库暂时无法访问")
		assert.NotContains(t, answer, "dial tcp")
	})

	t.Run("超时", func(t *testing.T) {
		db := &fakeDB{readErr: fmt.Errorf("%w: deadline", query.ErrDatabaseTimeout)}
		h := newTestHandler(t, db)

		answer := h.Handle(context.Background(), "查询订单 12345")
		assert.Contains(t, answer, "超时")
	})
}

// TestHandle_Statistics 统计问题走聚合查询
func TestHandle_Statistics(t *testing.T) {
	db := &fakeDB{
		aggResult: &query.ResultSet{
			Entity:  "orders",
			Columns: []string{"status", "order_count", "revenue", "avg_total"},
			Rows: []map[string]any{
				{"status": "shipped", "order_count": int64(3), "revenue": 90.0, "avg_total": 30.0},
			},
		},
	}
	h := newTestHandler(t, db)

	answer := h.Handle(context.Background(), "订单统计")
	assert.Contains(t, answer, "订单统计")
	assert.Equal(t, 1, db.aggCalls)
	assert.Equal(t, 0, db.readCalls)
}

// TestHandle_EmptyResult 空结果是正常回复不是错误
func TestHandle_EmptyResult(t *testing.T) {
	db := &fakeDB{}
	h := newTestHandler(t, db)

	answer := h.Handle(context.Background(), "查找客户不存在的人的订单")
	assert.Contains(t, answer, "没有找到")
	assert.NotContains(t, answer, "❌")
}

// TestHandle_Idempotent 同一问题重复提问得到相同回复
func TestHandle_Idempotent(t *testing.T) {
	db := &fakeDB{}
	h := newTestHandler(t, db)

	q := "最近7天的订单"
	first := h.Handle(context.Background(), q)
	second := h.Handle(context.Background(), q)
	assert.Equal(t, first, second)
}

// TestHandle_Cache 成功回复写缓存，错误回复不写
func TestHandle_Cache(t *testing.T) {
	t.Run("命中后不再查库", func(t *testing.T) {
		db := &fakeDB{}
		cache := newMemCache()
		h := newTestHandler(t, db).WithCache(cache)

		q := "查询订单 12345"
		h.Handle(context.Background(), q)
		assert.Equal(t, 1, db.readCalls)
		assert.Equal(t, 1, cache.sets)

		h.Handle(context.Background(), q)
		assert.Equal(t, 1, db.readCalls)
	})

	t.Run("错误回复不缓存", func(t *testing.T) {
		db := &fakeDB{readErr: query.ErrDatabaseUnavailable}
		cache := newMemCache()
		h := newTestHandler(t, db).WithCache(cache)

		h.Handle(context.Background(), "查询订单 12345")
		assert.Equal(t, 0, cache.sets)
	})
}

// memMetrics 记录指标调用的桩
type memMetrics struct {
	questions []string
	dbQueries []string
}

func (m *memMetrics) RecordQuestion(intentLabel, status string, _ time.Duration) {
	m.questions = append(m.questions, intentLabel+"/"+status)
}

func (m *memMetrics) RecordDBQuery(entity, status string, _ time.Duration) {
	m.dbQueries = append(m.dbQueries, entity+"/"+status)
}

// TestHandle_Metrics 查库的问题同时上报问答和DB指标
func TestHandle_Metrics(t *testing.T) {
	db := &fakeDB{}
	rec := &memMetrics{}
	h := newTestHandler(t, db).WithMetrics(rec)

	h.Handle(context.Background(), "搜索订单号 ORD002")
	require.Len(t, rec.questions, 1)
	assert.Equal(t, "order_lookup/empty", rec.questions[0])
	require.Len(t, rec.dbQueries, 1)
	assert.Equal(t, "orders/ok", rec.dbQueries[0])

	// 不理解的问题不产生DB指标
	h.Handle(context.Background(), "今天天气怎么样啊")
	assert.Len(t, rec.dbQueries, 1)
	assert.Equal(t, "unknown/unknown", rec.questions[len(rec.questions)-1])

	// 执行失败计为error
	db.readErr = query.ErrDatabaseTimeout
	h.Handle(context.Background(), "搜索订单号 ORD003")
	assert.Equal(t, "orders/error", rec.dbQueries[len(rec.dbQueries)-1])
}

// TestCacheKey 键只含前缀和哈希，不含用户输入
func TestCacheKey(t *testing.T) {
	key := cacheKey("查询订单'; DROP TABLE orders --")
	assert.Contains(t, key, cacheKeyPrefix)
	assert.NotContains(t, key, "DROP")

	// 空白归一化后键一致
	assert.Equal(t, cacheKey("查询  订单 12345"), cacheKey("查询 订单   12345"))
}
