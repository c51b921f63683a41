package bot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "storechat:answer:"

// RedisCache 基于Redis的答案缓存
// 缓存失败只记日志不影响问答，Redis挂了服务继续工作
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache 创建答案缓存
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

// Get 查缓存，未命中或出错都按未命中处理
func (c *RedisCache) Get(ctx context.Context, question string) (string, bool) {
	answer, err := c.client.Get(ctx, cacheKey(question)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("缓存读取失败", zap.Error(err))
		}
		return "", false
	}
	return answer, true
}

// Set 写缓存
func (c *RedisCache) Set(ctx context.Context, question, answer string) {
	if err := c.client.Set(ctx, cacheKey(question), answer, c.ttl).Err(); err != nil {
		c.logger.Warn("缓存写入失败", zap.Error(err))
	}
}

// Ping 检查Redis连通性，供健康检查使用
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// cacheKey 问题归一化后取哈希做键，避免键里出现任意用户输入
func cacheKey(question string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(question), " "))
	sum := sha256.Sum256([]byte(normalized))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
