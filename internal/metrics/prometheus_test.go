package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestRecordQuestion 问答指标计数
func TestRecordQuestion(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	r.RecordQuestion("order_lookup", "ok", 10*time.Millisecond)
	r.RecordQuestion("order_lookup", "ok", 20*time.Millisecond)
	r.RecordQuestion("unknown", "unknown", time.Millisecond)

	families, err := r.Gatherer().Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if mf.GetName() == "storechat_bot_questions_total" {
			found = true
			for _, m := range mf.GetMetric() {
				labels := map[string]string{}
				for _, l := range m.GetLabel() {
					labels[l.GetName()] = l.GetValue()
				}
				if labels["intent"] == "order_lookup" && labels["status"] == "ok" {
					assert.Equal(t, float64(2), m.GetCounter().GetValue())
				}
			}
		}
	}
	assert.True(t, found)
}

// TestHTTPMiddleware 请求经过中间件后产生计数
func TestHTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRegistry(zap.NewNop())

	router := gin.New()
	router.Use(r.HTTPMiddleware())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	families, err := r.Gatherer().Gather()
	require.NoError(t, err)

	var total float64
	for _, mf := range families {
		if mf.GetName() == "storechat_http_requests_total" {
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(1), total)
}

// TestMetricsEndpoint /metrics输出可抓取文本
func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRegistry(zap.NewNop())
	r.RecordDBQuery("orders", "ok", 5*time.Millisecond)

	router := gin.New()
	router.GET("/metrics", r.Handler())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "storechat_db_queries_total")
}

// TestRegistriesIsolated 多个实例互不影响
func TestRegistriesIsolated(t *testing.T) {
	a := NewRegistry(zap.NewNop())
	b := NewRegistry(zap.NewNop())

	a.RecordQuestion("statistics", "ok", time.Millisecond)

	families, err := b.Gatherer().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "storechat_bot_questions_total" {
			assert.Empty(t, mf.GetMetric())
		}
	}
}
