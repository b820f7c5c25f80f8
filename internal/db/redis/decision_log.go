package redisdb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	applog "sabio/internal/platform/log"
)

// DecisionLog 把 Agent 的路由决策写入 Redis，供排障时回放。
// key 形如 logs:<agent>:<毫秒时间戳>，默认保留 15 分钟
type DecisionLog struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewDecisionLog 创建决策日志，ttlSeconds <= 0 时默认 900 秒
func NewDecisionLog(rdb *redis.Client, ttlSeconds int) *DecisionLog {
	ttl := 15 * time.Minute
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}
	return &DecisionLog{redis: rdb, ttl: ttl}
}

// Log 记录一条决策，失败只告警不影响主流程
func (l *DecisionLog) Log(ctx context.Context, agent string, data map[string]any) {
	if l.redis == nil {
		return
	}

	entry := make(map[string]any, len(data)+1)
	for k, v := range data {
		entry[k] = v
	}
	entry["agent"] = agent

	payload, err := json.Marshal(entry)
	if err != nil {
		applog.Warn("[DecisionLog] Failed to marshal entry", "agent", agent, "error", err)
		return
	}

	key := fmt.Sprintf("logs:%s:%d", agent, time.Now().UnixMilli())
	if err := l.redis.Set(ctx, key, payload, l.ttl).Err(); err != nil {
		applog.Warn("[DecisionLog] Failed to write entry", "key", key, "error", err)
	}
}
