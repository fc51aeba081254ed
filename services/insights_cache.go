package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"MindMateGo/config"
)

// InsightsCache 每周洞察缓存
type InsightsCache interface {
	Get(ctx context.Context, key string) ([]string, bool)
	Set(ctx context.Context, key string, insights []string)
}

// NoopInsightsCache 不缓存
type NoopInsightsCache struct{}

func (NoopInsightsCache) Get(context.Context, string) ([]string, bool) { return nil, false }
func (NoopInsightsCache) Set(context.Context, string, []string)        {}

// RedisInsightsCache 使用 Redis 缓存洞察结果
type RedisInsightsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisInsightsCache(client *redis.Client, ttl time.Duration) *RedisInsightsCache {
	return &RedisInsightsCache{client: client, ttl: ttl}
}

func (c *RedisInsightsCache) Get(ctx context.Context, key string) ([]string, bool) {
	raw, err := c.client.Get(ctx, "insights:"+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			config.Logger.Warnw("读取洞察缓存失败", "key", key, "error", err)
		}
		return nil, false
	}
	var insights []string
	if err := json.Unmarshal(raw, &insights); err != nil {
		return nil, false
	}
	return insights, true
}

func (c *RedisInsightsCache) Set(ctx context.Context, key string, insights []string) {
	raw, err := json.Marshal(insights)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, "insights:"+key, raw, c.ttl).Err(); err != nil {
		config.Logger.Warnw("写入洞察缓存失败", "key", key, "error", err)
	}
}
