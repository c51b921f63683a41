package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// BearerAuth JWT认证中间件
// 校验Authorization: Bearer <token>，HS256签名，sub写入上下文
type BearerAuth struct {
	secret []byte
	logger *zap.Logger
}

// NewBearerAuth 创建认证中间件
func NewBearerAuth(secret string, logger *zap.Logger) *BearerAuth {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BearerAuth{secret: []byte(secret), logger: logger}
}

// Handler 认证处理函数
func (a *BearerAuth) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    "MISSING_AUTH_HEADER",
				"message": "缺少授权头",
			})
			c.Abort()
			return
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    "INVALID_AUTH_HEADER",
				"message": "授权头格式应为 Bearer <token>",
			})
			c.Abort()
			return
		}

		claims, err := a.parse(tokenString)
		if err != nil {
			a.logger.Warn("令牌校验失败",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
				zap.String("remote_addr", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    "INVALID_TOKEN",
				"message": "无效的访问令牌",
			})
			c.Abort()
			return
		}

		if sub, serr := claims.GetSubject(); serr == nil {
			c.Set("subject", sub)
		}
		c.Next()
	}
}

// parse 解析并校验令牌，只接受HS256
func (a *BearerAuth) parse(tokenString string) (jwt.Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("不支持的签名算法: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("令牌无效")
	}
	return token.Claims, nil
}
