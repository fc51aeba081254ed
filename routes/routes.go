package routes

import (
	"time"

	"github.com/gin-gonic/gin"

	"MindMateGo/config"
	"MindMateGo/controllers"
	"MindMateGo/middleware"
	"MindMateGo/services"
	"MindMateGo/utils"
)

// Dependencies 路由所需的服务
type Dependencies struct {
	Config        config.Config
	Verifier      *utils.TokenVerifier
	Limiter       middleware.RateLimiter
	Users         *services.UserService
	Moods         *services.MoodService
	Tasks         *services.TaskService
	Chats         *services.ChatService
	Onboarding    *services.OnboardingService
	Subscriptions *services.SubscriptionService
	Analytics     *services.AnalyticsService
}

func RegisterRoutes(r *gin.Engine, deps Dependencies) {
	authController := controllers.NewAuthController(deps.Users)
	moodController := controllers.NewMoodController(deps.Moods, deps.Analytics)
	taskController := controllers.NewTaskController(deps.Tasks, deps.Analytics)
	chatController := controllers.NewChatController(deps.Chats, deps.Analytics)
	onboardingController := controllers.NewOnboardingController(deps.Onboarding)
	paymentController := controllers.NewPaymentController(deps.Subscriptions)
	healthController := controllers.NewHealthController()

	generalLimit := middleware.RateLimit(deps.Limiter, "general", deps.Config.GeneralRateLimit, 15*time.Minute,
		middleware.ByClientIP, "Too many requests, please try again later.")
	aiLimit := middleware.RateLimit(deps.Limiter, "ai", deps.Config.AIRateLimit, time.Minute,
		middleware.ByUser, "Too many AI requests, please try again later.")
	auth := middleware.AuthMiddleware(deps.Verifier, deps.Users)
	premium := middleware.PremiumMiddleware()

	// 公开路由（无需认证）
	r.GET("/api/health", healthController.Health)

	api := r.Group("/api")
	api.Use(generalLimit)
	{
		api.POST("/payment/webhook", paymentController.Webhook)
	}

	// 需要认证的路由
	private := api.Group("")
	private.Use(auth)
	{
		private.GET("/auth/me", authController.Me)
		private.PATCH("/auth/preferences", authController.UpdatePreferences)
		private.POST("/auth/logout", authController.Logout)

		private.POST("/mood/check-in", moodController.CheckIn)
		private.GET("/mood/today", moodController.Today)
		private.GET("/mood/history", moodController.History)
		private.GET("/mood/stats", moodController.Stats)
		private.GET("/mood/analytics", aiLimit, moodController.Analytics)

		private.POST("/task/daily", aiLimit, taskController.Daily)
		private.GET("/task/calendar/:year/:month", taskController.Calendar)
		private.GET("/task/stats/overview", taskController.Stats)
		private.PATCH("/task/step/:stepId", taskController.UpdateStep)
		private.PATCH("/task/:id/complete", taskController.Complete)
		// :id 在 GET 中为日期，在 complete 中为任务ID
		private.GET("/task/:id", taskController.ByDate)

		private.POST("/onboarding", onboardingController.SaveStep)

		private.GET("/payment/status", paymentController.Status)
	}

	// 会员路由
	chat := private.Group("/chat")
	chat.Use(premium)
	{
		chat.POST("/send", aiLimit, chatController.SendMessage)
		chat.GET("/history", chatController.History)
		chat.GET("/session/:sessionId", chatController.Session)
		chat.DELETE("/session/:sessionId", chatController.DeleteSession)
		chat.GET("/analytics", chatController.Analytics)
	}

	r.NoRoute(controllers.NotFound)
}
