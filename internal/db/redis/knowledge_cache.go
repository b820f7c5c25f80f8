package redisdb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	applog "sabio/internal/platform/log"
)

// KnowledgeCache 知识库引擎的 Redis 缓存实现。
// 所有 key 统一加前缀（默认 cache:），Keys 枚举时剥除，
// 引擎内部只看到自己的命名空间
type KnowledgeCache struct {
	redis  *redis.Client
	prefix string
}

// NewKnowledgeCache 创建缓存，prefix 为空时使用 cache:
func NewKnowledgeCache(rdb *redis.Client, prefix string) *KnowledgeCache {
	if prefix == "" {
		prefix = "cache:"
	}
	return &KnowledgeCache{redis: rdb, prefix: prefix}
}

// Get 读取缓存，miss 时返回 (nil, nil)
func (c *KnowledgeCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.redis.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

// Set 以 JSON 写入缓存，ttl 为 0 表示不过期
func (c *KnowledgeCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	if err := c.redis.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Keys 用 SCAN 枚举匹配 pattern 的 key，返回前剥除前缀
func (c *KnowledgeCache) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := c.redis.Scan(ctx, 0, c.prefix+pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), c.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %s: %w", pattern, err)
	}
	applog.Debug("[Knowledge/Cache] Scanned keys", "pattern", pattern, "count", len(keys))
	return keys, nil
}
