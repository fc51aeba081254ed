package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestRedisRateLimiterWindow(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	l := NewRedisRateLimiter(rdb)

	for want := 1; want >= 0; want-- {
		ok, remaining, err := l.Allow(ctx, "ai:user:u1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, want, remaining)
	}

	ok, remaining, err := l.Allow(ctx, "ai:user:u1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, remaining)

	// 过期时间只在窗口内首次计数时设置
	assert.Equal(t, time.Minute, mr.TTL("ratelimit:ai:user:u1"))

	ok, _, err = l.Allow(ctx, "ai:user:u2", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(time.Minute)
	ok, remaining, err = l.Allow(ctx, "ai:user:u1", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)
}

func TestMemoryRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 3, 27, 12, 0, 0, 0, time.UTC)
	l := NewMemoryRateLimiter()
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		ok, _, _ := l.Allow(context.Background(), "k", 2, time.Minute)
		assert.True(t, ok)
	}
	ok, _, _ := l.Allow(context.Background(), "k", 2, time.Minute)
	assert.False(t, ok)

	now = now.Add(time.Minute)
	ok, remaining, _ := l.Allow(context.Background(), "k", 2, time.Minute)
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string, int, time.Duration) (bool, int, error) {
	return false, 0, errors.New("redis unavailable")
}

func TestRateLimitLetsRequestThroughOnCounterError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ping", RateLimit(brokenLimiter{}, "general", 1, time.Minute, ByClientIP, "slow down"),
		func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("RateLimit-Limit"))
}
