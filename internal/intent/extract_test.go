package intent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExtractOrderID 订单编号提取
func TestExtractOrderID(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"labeled_numeric", "搜索订单号12345", "12345", true},
		{"labeled_traditional", "訂單編號 ORD002", "ORD002", true},
		{"labeled_english", "order_id: PG02612345", "PG02612345", true},
		{"bare_external", "查一下 PG02612345", "PG02612345", true},
		{"bare_numeric", "查询 88201", "88201", true},
		{"short_numeric", "查 42 号", "42", true},
		{"none", "查询今天的天气", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractOrderID(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

// TestExtractSKU SKU提取
func TestExtractSKU(t *testing.T) {
	got, ok := extractSKU("sku: MZK-001_A")
	require.True(t, ok)
	assert.Equal(t, "MZK-001_A", got)

	got, ok = extractSKU("产品编号 XY123")
	require.True(t, ok)
	assert.Equal(t, "XY123", got)

	got, ok = extractSKU("那个 ABC1234 还有货吗")
	require.True(t, ok)
	assert.Equal(t, "ABC1234", got)

	_, ok = extractSKU("有什么新品")
	assert.False(t, ok)
}

// TestExtractLimit 条数提取与降级
func TestExtractLimit(t *testing.T) {
	n, ok := extractLimit("最近10个订单")
	require.True(t, ok)
	assert.Equal(t, 10, n)

	n, ok = extractLimit("前 5 條")
	require.True(t, ok)
	assert.Equal(t, 5, n)

	// 无量词时退化到第一个数字串
	n, ok = extractLimit("给我20")
	require.True(t, ok)
	assert.Equal(t, 20, n)

	_, ok = extractLimit("全部订单")
	assert.False(t, ok)
}

// TestExtractStatus 状态词表
func TestExtractStatus(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"处理中的订单", "processing"},
		{"已發貨", "shipped"},
		{"delivered 的订单", "delivered"},
		{"已退货的有哪些", "returned"},
	}
	for _, tt := range tests {
		got, ok := extractStatus(tt.text)
		require.True(t, ok, tt.text)
		assert.Equal(t, tt.want, got)
	}

	_, ok := extractStatus("随便看看")
	assert.False(t, ok)
}

// TestExtractDateRange 日期范围解析
func TestExtractDateRange(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("relative_days", func(t *testing.T) {
		from, to := extractDateRange("过去7天的订单", now)
		require.NotNil(t, from)
		require.NotNil(t, to)
		assert.Equal(t, now.AddDate(0, 0, -7), *from)
		assert.Equal(t, now, *to)
	})

	t.Run("absolute_pair", func(t *testing.T) {
		from, to := extractDateRange("2025-01-01 到 2025-02-01 的订单", now)
		require.NotNil(t, from)
		require.NotNil(t, to)
		assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), *from)
		assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), *to)
	})

	t.Run("chinese_date", func(t *testing.T) {
		from, to := extractDateRange("2025年3月1日之后的订单", now)
		require.NotNil(t, from)
		assert.Nil(t, to)
		assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *from)
	})

	t.Run("swapped_pair", func(t *testing.T) {
		from, to := extractDateRange("2025-02-01 到 2025-01-01", now)
		require.NotNil(t, from)
		require.NotNil(t, to)
		assert.True(t, from.Before(*to))
	})

	t.Run("invalid_month_degrades", func(t *testing.T) {
		from, to := extractDateRange("2025-13-40", now)
		assert.Nil(t, from)
		assert.Nil(t, to)
	})

	t.Run("none", func(t *testing.T) {
		from, to := extractDateRange("看看订单", now)
		assert.Nil(t, from)
		assert.Nil(t, to)
	})
}

// TestExtractFreeText 自由文本清洗
func TestExtractFreeText(t *testing.T) {
	assert.Equal(t, "王小明", extractFreeText("搜索客户王小明的订单"))
	assert.Equal(t, "张三", extractFreeText("查找用户张三"))
	assert.Equal(t, "手办", extractFreeText("查找产品 手办"))
}

// TestParseProposal LLM输出解析
func TestParseProposal(t *testing.T) {
	t.Run("plain_json", func(t *testing.T) {
		p, err := parseProposal(`{"label":"order_lookup","parameters":{"order_id":"123"}}`)
		require.NoError(t, err)
		assert.Equal(t, "order_lookup", p.Label)
		assert.Equal(t, "123", p.Parameters["order_id"])
	})

	t.Run("fenced_json", func(t *testing.T) {
		p, err := parseProposal("```json\n{\"label\":\"statistics\",\"parameters\":{}}\n```")
		require.NoError(t, err)
		assert.Equal(t, "statistics", p.Label)
	})

	t.Run("surrounding_prose", func(t *testing.T) {
		p, err := parseProposal(`好的，结果如下：{"label":"user_lookup","parameters":{}} 希望有帮助`)
		require.NoError(t, err)
		assert.Equal(t, "user_lookup", p.Label)
	})

	t.Run("no_json", func(t *testing.T) {
		_, err := parseProposal("我不知道")
		assert.Error(t, err)
	})

	t.Run("missing_label", func(t *testing.T) {
		_, err := parseProposal(`{"parameters":{}}`)
		assert.Error(t, err)
	})
}
