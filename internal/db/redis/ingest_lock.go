package redisdb

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	applog "sabio/internal/platform/log"
)

// IngestLock 基于 Redis SETNX 的分布式入库锁，
// 多副本部署时避免同时全量爬取帮助中心
type IngestLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIngestLock 创建入库锁，TTL 覆盖单次全量爬取的最长耗时
func NewIngestLock(client *redis.Client, ttl time.Duration) *IngestLock {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &IngestLock{client: client, ttl: ttl}
}

// Acquire 获取锁，已被其他副本持有时返回 false
func (l *IngestLock) Acquire(ctx context.Context, name string) (bool, error) {
	key := fmt.Sprintf("ingest:lock:%s", name)
	acquired, err := l.client.SetNX(ctx, key, "locked", l.ttl).Result()
	if err != nil {
		applog.Warn("[IngestLock] Failed to acquire lock", "name", name, "error", err)
		return false, err
	}

	if acquired {
		applog.Debug("[IngestLock] Lock acquired", "name", name)
	} else {
		applog.Debug("[IngestLock] Lock already held", "name", name)
	}
	return acquired, nil
}

// Release 释放锁
func (l *IngestLock) Release(ctx context.Context, name string) error {
	key := fmt.Sprintf("ingest:lock:%s", name)
	if err := l.client.Del(ctx, key).Err(); err != nil {
		applog.Warn("[IngestLock] Failed to release lock", "name", name, "error", err)
		return err
	}
	applog.Debug("[IngestLock] Lock released", "name", name)
	return nil
}
