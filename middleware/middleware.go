package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"MindMateGo/config"
)

// AllowedOrigins 前端地址和本地开发地址
func AllowedOrigins(conf config.Config) []string {
	origins := []string{"http://localhost:8080", "http://localhost:5173"}
	if conf.FrontendURL != "" {
		origins = append([]string{conf.FrontendURL}, origins...)
	}
	return origins
}

// SetupMiddleware 配置中间件
func SetupMiddleware(r *gin.Engine, conf config.Config) {
	// CORS中间件
	r.Use(cors.New(cors.Config{
		AllowOrigins:     AllowedOrigins(conf),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 日志中间件
	r.Use(RequestLogger())

	// 错误恢复中间件
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		config.Logger.Errorw("panic recovered",
			"path", c.Request.URL.Path,
			"requestID", c.GetString("requestID"),
			"panic", recovered,
		)
		abort(c, http.StatusInternalServerError, "Internal server error")
	}))
}
