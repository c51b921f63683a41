// Package intent 意图分类器测试
package intent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storechat-go/internal/schema"
)

// fixedNow 测试用固定时钟
var fixedNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestClassifier(t *testing.T, advisor Advisor) *Classifier {
	t.Helper()
	return NewClassifier(schema.Default(), advisor, zap.NewNop()).
		WithClock(func() time.Time { return fixedNow })
}

// TestClassify_RuleTable 规则表分类的主场景
func TestClassify_RuleTable(t *testing.T) {
	c := newTestClassifier(t, nil)

	tests := []struct {
		name string
		text string
		want Type
	}{
		{"order_by_id", "搜索订单号12345", OrderLookup},
		{"order_by_external_id", "查询訂單編號 PG02612345", OrderLookup},
		{"product_by_sku", "查一下SKU ABC1234 的产品", ProductLookup},
		{"low_stock", "哪些产品库存不足", ProductLookup},
		{"order_statistics", "给我看订单统计", StatisticsQuery},
		{"product_statistics", "产品统计数据", StatisticsQuery},
		{"health", "检查数据库状态", HealthCheck},
		{"health_conn", "数据库连接正常吗", HealthCheck},
		{"recent_orders", "显示最近10个订单", OrderLookup},
		{"order_status", "已发货状态的订单", OrderLookup},
		{"category", "列出mizuki分类的商品", ProductLookup},
		{"accounts", "显示所有账号", AccountInfo},
		{"user_search", "搜索用户张三", UserLookup},
		{"product_search", "查找产品 手办", ProductLookup},
		{"customer", "客户王小明的订单", OrderLookup},
		{"fallback_order", "查询 ORD002", OrderLookup},
		{"gibberish", "asdkfj qwerty zzz", Unknown},
		{"empty", "   ", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := c.Classify(context.Background(), tt.text)
			assert.Equal(t, tt.want, it.Type, "text=%q source=%s", tt.text, it.Source)
		})
	}
}

// TestClassify_ParameterExtraction 参数提取正确性
func TestClassify_ParameterExtraction(t *testing.T) {
	c := newTestClassifier(t, nil)

	t.Run("order_id", func(t *testing.T) {
		it := c.Classify(context.Background(), "搜索订单号12345")
		require.Equal(t, OrderLookup, it.Type)
		require.NotNil(t, it.Params.OrderID)
		assert.Equal(t, "12345", *it.Params.OrderID)
	})

	t.Run("recent_limit", func(t *testing.T) {
		it := c.Classify(context.Background(), "显示最近10个订单")
		require.Equal(t, OrderLookup, it.Type)
		require.NotNil(t, it.Params.Limit)
		assert.Equal(t, 10, *it.Params.Limit)
		assert.Nil(t, it.Params.DateFrom)
	})

	t.Run("recent_days_not_limit", func(t *testing.T) {
		// 最近7天是日期范围，7不能被当成条数
		it := c.Classify(context.Background(), "最近7天的订单")
		require.Equal(t, OrderLookup, it.Type)
		assert.Nil(t, it.Params.Limit)
		require.NotNil(t, it.Params.DateFrom)
		require.NotNil(t, it.Params.DateTo)
		assert.Equal(t, fixedNow.AddDate(0, 0, -7), *it.Params.DateFrom)
		assert.Equal(t, fixedNow, *it.Params.DateTo)
	})

	t.Run("status_normalized", func(t *testing.T) {
		it := c.Classify(context.Background(), "查询已发货状态的订单")
		require.Equal(t, OrderLookup, it.Type)
		require.NotNil(t, it.Params.Status)
		assert.Equal(t, "shipped", *it.Params.Status)
	})

	t.Run("sku", func(t *testing.T) {
		it := c.Classify(context.Background(), "SKU ABC1234")
		require.Equal(t, ProductLookup, it.Type)
		require.NotNil(t, it.Params.SKU)
		assert.Equal(t, "ABC1234", *it.Params.SKU)
	})

	t.Run("category", func(t *testing.T) {
		it := c.Classify(context.Background(), "水木分类下有什么商品")
		require.Equal(t, ProductLookup, it.Type)
		require.NotNil(t, it.Params.Category)
		assert.Equal(t, "mizuki", *it.Params.Category)
	})

	t.Run("stats_target", func(t *testing.T) {
		it := c.Classify(context.Background(), "商品统计")
		require.Equal(t, StatisticsQuery, it.Type)
		assert.Equal(t, StatsProducts, it.Params.StatsTarget)

		it = c.Classify(context.Background(), "订单统计")
		assert.Equal(t, StatsOrders, it.Params.StatsTarget)
	})

	t.Run("customer_name", func(t *testing.T) {
		it := c.Classify(context.Background(), "搜索客户王小明的订单")
		require.Equal(t, OrderLookup, it.Type)
		require.NotNil(t, it.Params.CustomerName)
		assert.Equal(t, "王小明", *it.Params.CustomerName)
	})
}

// TestClassify_Precedence 规则优先级：特异规则先于宽泛规则
func TestClassify_Precedence(t *testing.T) {
	c := newTestClassifier(t, nil)

	// 同时包含"订单号"与"最近"，订单号规则在前
	it := c.Classify(context.Background(), "最近的订单号12345")
	assert.Equal(t, "rule:order_by_id", it.Source)

	// 同时包含"统计"与"状态"，统计规则在前
	it = c.Classify(context.Background(), "按状态统计订单")
	assert.Equal(t, StatisticsQuery, it.Type)

	// "数据库状态"含"状态"，但健康检查规则在状态规则之前
	it = c.Classify(context.Background(), "检查数据库状态")
	assert.Equal(t, HealthCheck, it.Type)
}

// TestClassify_Deterministic 相同输入必须产生相同结果
func TestClassify_Deterministic(t *testing.T) {
	c := newTestClassifier(t, nil)
	first := c.Classify(context.Background(), "显示最近10个订单")
	for i := 0; i < 5; i++ {
		again := c.Classify(context.Background(), "显示最近10个订单")
		assert.Equal(t, first, again)
	}
}

// stubAdvisor 测试用的固定建议顾问
type stubAdvisor struct {
	proposal *Proposal
	err      error
	called   bool
}

func (s *stubAdvisor) InferIntent(_ context.Context, _ string) (*Proposal, error) {
	s.called = true
	return s.proposal, s.err
}

// TestClassify_AdvisorFallback 规则未命中时咨询LLM
func TestClassify_AdvisorFallback(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		adv := &stubAdvisor{proposal: &Proposal{
			Label:      "order_lookup",
			Parameters: map[string]string{"order_id": "ORD002", "limit": "5"},
		}}
		c := newTestClassifier(t, adv)

		it := c.Classify(context.Background(), "那个东西到哪了")
		assert.True(t, adv.called)
		require.Equal(t, OrderLookup, it.Type)
		assert.Equal(t, "advisor", it.Source)
		require.NotNil(t, it.Params.OrderID)
		assert.Equal(t, "ORD002", *it.Params.OrderID)
		require.NotNil(t, it.Params.Limit)
		assert.Equal(t, 5, *it.Params.Limit)
	})

	t.Run("rule_hit_skips_advisor", func(t *testing.T) {
		adv := &stubAdvisor{proposal: &Proposal{Label: "user_lookup"}}
		c := newTestClassifier(t, adv)

		it := c.Classify(context.Background(), "搜索订单号12345")
		assert.False(t, adv.called)
		assert.Equal(t, OrderLookup, it.Type)
	})

	t.Run("unknown_keys_dropped", func(t *testing.T) {
		adv := &stubAdvisor{proposal: &Proposal{
			Label: "order_lookup",
			Parameters: map[string]string{
				"order_id":          "123",
				"password":          "secret",
				"internal_id; DROP": "x",
			},
		}}
		c := newTestClassifier(t, adv)

		it := c.Classify(context.Background(), "那个东西到哪了")
		require.Equal(t, OrderLookup, it.Type)
		require.NotNil(t, it.Params.OrderID)
		// 除order_id外没有任何字段被设置
		assert.Nil(t, it.Params.Keyword)
		assert.Nil(t, it.Params.Username)
	})

	t.Run("bad_label", func(t *testing.T) {
		adv := &stubAdvisor{proposal: &Proposal{Label: "drop_tables"}}
		c := newTestClassifier(t, adv)
		it := c.Classify(context.Background(), "那个东西到哪了")
		assert.Equal(t, Unknown, it.Type)
	})

	t.Run("advisor_error", func(t *testing.T) {
		adv := &stubAdvisor{err: errors.New("connection refused")}
		c := newTestClassifier(t, adv)
		it := c.Classify(context.Background(), "那个东西到哪了")
		assert.Equal(t, Unknown, it.Type)
	})

	t.Run("bad_date_degrades", func(t *testing.T) {
		adv := &stubAdvisor{proposal: &Proposal{
			Label:      "order_lookup",
			Parameters: map[string]string{"date_from": "not-a-date", "date_to": "2025-03-01"},
		}}
		c := newTestClassifier(t, adv)
		it := c.Classify(context.Background(), "那个东西到哪了")
		assert.Nil(t, it.Params.DateFrom)
		require.NotNil(t, it.Params.DateTo)
	})
}
