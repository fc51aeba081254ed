package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"MindMateGo/config"
	"MindMateGo/utils"
)

// SessionLocker 按键串行化读改写操作
type SessionLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// LockKey 由用户和资源组成锁键
func LockKey(userID, resource string) string {
	return userID + ":" + resource
}

// MemoryLocker 进程内的按键互斥锁
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*keyedLock)}
}

func (l *MemoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyedLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, kl, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, kl, true) })
	}, nil
}

func (l *MemoryLocker) release(key string, kl *keyedLock, held bool) {
	if held {
		<-kl.ch
	}
	l.mu.Lock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}

// 只删除自己持有的锁
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// 续期，令牌不匹配时返回 0
var renewScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`)

// LockTTL 锁过期时间，需覆盖一次派发中串行的三次生成调用
func LockTTL(llmTimeout time.Duration) time.Duration {
	if llmTimeout <= 0 {
		return 30 * time.Second
	}
	return 3*llmTimeout + 10*time.Second
}

// RedisLocker 基于 SET NX 的分布式锁，多实例部署时使用；持有期间后台按 ttl/3 续期
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	renew  time.Duration
	retry  time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	renew := ttl / 3
	if renew <= 0 {
		renew = ttl
	}
	return &RedisLocker{client: client, ttl: ttl, renew: renew, retry: 50 * time.Millisecond}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := "lock:" + key
	token := utils.GenerateID()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(key, lockKey, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done

			// 请求可能已被取消，释放锁使用独立的 context
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := unlockScript.Run(rctx, l.client, []string{lockKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				config.Logger.Warnw("释放锁失败", "key", key, "error", err)
			}
		})
	}, nil
}

// keepAlive 定期续期直到解锁；锁已被他人持有时退出
func (l *RedisLocker) keepAlive(key, lockKey, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.renew)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		n, err := renewScript.Run(rctx, l.client, []string{lockKey}, token, l.ttl.Milliseconds()).Int()
		cancel()
		if err != nil {
			config.Logger.Warnw("锁续期失败", "key", key, "error", err)
			continue
		}
		if n == 0 {
			config.Logger.Warnw("锁已过期并被其他请求获取", "key", key)
			return
		}
	}
}
