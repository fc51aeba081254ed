package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"MindMateGo/config"
	"MindMateGo/middleware"
	"MindMateGo/routes"
	"MindMateGo/services"
	"MindMateGo/store"
	"MindMateGo/utils"
)

// openStore 按 STORAGE_BACKEND 创建存储
func openStore(ctx context.Context, conf config.Config) (store.Store, error) {
	switch conf.StorageBackend {
	case "mysql":
		db, err := config.InitDB(conf)
		if err != nil {
			return nil, fmt.Errorf("无法初始化数据库: %w", err)
		}
		return store.NewGormStore(db), nil
	case "firestore":
		fs, err := store.NewFirestoreStore(ctx, conf.GCPProjectID)
		if err != nil {
			return nil, fmt.Errorf("无法初始化Firestore: %w", err)
		}
		return fs, nil
	default:
		return store.NewMemoryStore(), nil
	}
}

// app 持有进程级资源
type app struct {
	conf   config.Config
	store  store.Store
	redis  *redis.Client
	engine *gin.Engine
}

func newApp(ctx context.Context, conf config.Config) (*app, error) {
	verifier, err := utils.NewTokenVerifier(conf.JWTSecret, conf.JWTPublicKey, conf.JWTIssuer)
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx, conf)
	if err != nil {
		return nil, err
	}
	if gs, ok := st.(*store.GormStore); ok {
		if err := gs.AutoMigrate(); err != nil {
			st.Close()
			return nil, fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	rdb, err := config.InitRedis(ctx, conf)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("无法初始化Redis: %w", err)
	}

	gen, err := services.NewTextGenerator(ctx, conf)
	if err != nil {
		st.Close()
		if rdb != nil {
			rdb.Close()
		}
		return nil, fmt.Errorf("无法初始化文本生成服务: %w", err)
	}

	var (
		locker  services.SessionLocker = services.NewMemoryLocker()
		limiter middleware.RateLimiter = middleware.NewMemoryRateLimiter()
		cache   services.InsightsCache = services.NoopInsightsCache{}
	)
	if rdb != nil {
		locker = services.NewRedisLocker(rdb, services.LockTTL(conf.LLMTimeout()))
		limiter = middleware.NewRedisRateLimiter(rdb)
		cache = services.NewRedisInsightsCache(rdb, 6*time.Hour)
	}

	loc := conf.Location()
	ai := services.NewAIService(gen, conf.LLMTimeout())
	analytics := services.NewAnalyticsService(st, st, st, ai, cache, loc)

	deps := routes.Dependencies{
		Config:        conf,
		Verifier:      verifier,
		Limiter:       limiter,
		Users:         services.NewUserService(st),
		Moods:         services.NewMoodService(st, st, locker, loc),
		Tasks:         services.NewTaskService(st, st, st, ai, locker, loc),
		Chats:         services.NewChatService(st, st, st, ai, locker),
		Onboarding:    services.NewOnboardingService(st, locker),
		Subscriptions: services.NewSubscriptionService(st, st, conf.WebhookSecret, locker),
		Analytics:     analytics,
	}

	// 设置Gin模式
	if conf.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	middleware.SetupMiddleware(r, conf)
	routes.RegisterRoutes(r, deps)

	config.Logger.Infow("服务初始化完成",
		"storage", conf.StorageBackend,
		"llm", conf.LLMProvider,
		"redis", rdb != nil,
		"timezone", loc.String(),
	)
	return &app{conf: conf, store: st, redis: rdb, engine: r}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		config.Logger.Warnw("关闭存储失败", "error", err)
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			config.Logger.Warnw("关闭Redis失败", "error", err)
		}
	}
}
