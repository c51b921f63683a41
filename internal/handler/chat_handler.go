// Package handler HTTP接口层
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storechat-go/internal/bot"
)

// 问题长度上限，超出直接拒绝而不是截断
const maxQuestionLength = 500

// ChatRequest 问答请求体
type ChatRequest struct {
	Question string `json:"question" binding:"required"`
}

// ChatResponse 问答响应体
type ChatResponse struct {
	Answer    string `json:"answer"`
	Timestamp string `json:"timestamp"`
}

// ChatHandler 问答接口
type ChatHandler struct {
	bot    *bot.Handler
	logger *zap.Logger
}

// NewChatHandler 创建问答接口
func NewChatHandler(botHandler *bot.Handler, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{bot: botHandler, logger: logger}
}

// Chat POST /api/v1/chat
// 问答本身永远200：业务层故障降级为中文提示语，HTTP错误码只留给
// 协议层问题（请求体非法、问题超长）
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_REQUEST",
			"message": "请求体需要question字段",
		})
		return
	}
	if len([]rune(req.Question)) > maxQuestionLength {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "QUESTION_TOO_LONG",
			"message": "问题过长，请控制在500字以内",
		})
		return
	}

	answer := h.bot.Handle(c.Request.Context(), req.Question)
	c.JSON(http.StatusOK, ChatResponse{
		Answer:    answer,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Examples GET /api/v1/examples
// 返回可回答的问题样例，供前端提示
func (h *ChatHandler) Examples(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"examples": []string{
			"搜索订单号 PG02612345",
			"王小明的订单",
			"最近7天的订单",
			"显示最近10个订单",
			"已发货的订单",
			"水木分类的产品",
			"哪些产品库存不足",
			"订单统计",
			"产品统计",
			"列出店铺账号",
			"检查数据库状态",
		},
	})
}
