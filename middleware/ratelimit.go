package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"MindMateGo/config"
)

// RateLimiter 固定窗口计数
type RateLimiter interface {
	// Allow 返回本次请求是否放行以及窗口内剩余次数
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
}

// MemoryRateLimiter 单实例部署时使用
type MemoryRateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	now     func() time.Time
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{windows: make(map[string]*rateWindow), now: time.Now}
}

func (l *MemoryRateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	// 顺带清理过期窗口，避免 map 无限增长
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
		}
	}

	w, ok := l.windows[key]
	if !ok {
		w = &rateWindow{resetAt: now.Add(window)}
		l.windows[key] = w
	}
	w.count++
	return w.count <= limit, max(limit-w.count, 0), nil
}

// 首次计数时设置过期时间
var incrScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n`)

// RedisRateLimiter 多实例共享计数
type RedisRateLimiter struct {
	client *redis.Client
}

func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	n, err := incrScript.Run(ctx, l.client, []string{"ratelimit:" + key}, window.Milliseconds()).Int()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return n <= limit, max(limit-n, 0), nil
}

// KeyFunc 限流维度
type KeyFunc func(c *gin.Context) string

// ByClientIP 按客户端IP
func ByClientIP(c *gin.Context) string { return c.ClientIP() }

// ByUser 按认证用户，未认证时退回IP
func ByUser(c *gin.Context) string {
	if uid := c.GetString(ContextUserID); uid != "" {
		return "user:" + uid
	}
	return c.ClientIP()
}

// RateLimit 超出限制返回 429；计数失败时放行
func RateLimit(limiter RateLimiter, name string, limit int, window time.Duration, keyFn KeyFunc, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}
		allowed, remaining, err := limiter.Allow(c.Request.Context(), name+":"+keyFn(c), limit, window)
		if err != nil {
			config.Logger.Warnw("限流计数失败", "limiter", name, "error", err)
			c.Next()
			return
		}
		c.Header("RateLimit-Limit", strconv.Itoa(limit))
		c.Header("RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			abort(c, http.StatusTooManyRequests, message)
			return
		}
		c.Next()
	}
}
