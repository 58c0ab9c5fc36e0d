package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rauth/examprep-backend/internal/config"
	"github.com/rauth/examprep-backend/internal/handler"
	"github.com/rauth/examprep-backend/internal/metrics"
	"github.com/rauth/examprep-backend/internal/middleware"
	"github.com/rauth/examprep-backend/internal/model"
	"github.com/rauth/examprep-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth         *handler.AuthHandler
	Subscription *handler.SubscriptionHandler
	Content      *handler.ContentHandler
	Progress     *handler.ProgressHandler
	Session      *handler.SessionHandler
	Monitor      *handler.MonitorHandler
	WS           *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds the rate limiters' cleanup goroutines.
func SetupRouter(
	ctx context.Context,
	auth middleware.TokenValidator,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Brotli())

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler())

	authLimiter := middleware.NewRateLimiter(ctx, 30, time.Minute)
	progressLimiter := middleware.NewRateLimiter(ctx, 120, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	authAPI := router.Group("/api/v1/auth")
	{
		authAPI.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)
		authAPI.POST("/register", authLimiter.Middleware(), handlers.Auth.Register)
		authAPI.GET("/me", middleware.RequireAuth(auth), handlers.Auth.Me)
		authAPI.POST("/logout", middleware.RequireAuth(auth), handlers.Auth.Logout)
		authAPI.PUT("/profile", middleware.RequireAuth(auth), middleware.NoStore(), handlers.Auth.UpdateProfile)
	}

	router.GET("/api/v1/subscriptions/me", middleware.RequireAuth(auth), middleware.NoStore(), handlers.Subscription.Mine)

	// ─── 2. Content Group (Public, Cached; answers need a token) ────────
	content := router.Group("/api/v1")
	content.Use(middleware.CacheControl(5*time.Minute), middleware.OptionalAuth(auth))
	{
		content.GET("/lessons", handlers.Content.ListLessons)
		content.GET("/lessons/:id", handlers.Content.GetLesson)
		content.GET("/quizzes", handlers.Content.ListQuizzes)
		content.GET("/quizzes/:id", handlers.Content.GetQuiz)
		content.GET("/mockexams", handlers.Content.ListMockExams)
		content.GET("/mockexams/:id", handlers.Content.GetMockExam)
	}

	// ─── 3. Progress Group (JWT, Rate Limited) ─────────────────────────
	progress := router.Group("/api/v1/progress")
	progress.Use(middleware.RequireAuth(auth), middleware.NoStore())
	{
		progress.POST("/quiz", progressLimiter.Middleware(), handlers.Progress.SubmitQuiz)
		progress.POST("/exam", progressLimiter.Middleware(), handlers.Progress.SubmitExam)
		progress.POST("/time", progressLimiter.Middleware(), handlers.Progress.StudyTime)
		progress.GET("/overview", handlers.Progress.Overview)
		progress.GET("/history", handlers.Progress.History)
	}

	// ─── 4. Session Group (JWT) ────────────────────────────────────────
	sessions := router.Group("/api/v1/sessions")
	sessions.Use(middleware.RequireAuth(auth), middleware.NoStore())
	{
		sessions.POST("", handlers.Session.Start)
		sessions.GET("/:id", handlers.Session.Get)
		sessions.POST("/:id/select", handlers.Session.Select)
		sessions.POST("/:id/advance", handlers.Session.Advance)
		sessions.POST("/:id/abandon", handlers.Session.Abandon)
		sessions.GET("/:id/result", handlers.Session.Result)
	}

	// ─── 5. WebSocket Group (WS Auth) ──────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(auth))
	{
		ws.GET("/sessions/:id/stream", handlers.WS.SessionStream)
	}

	// ─── 6. Admin Group (JWT + RBAC) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAuth(auth), middleware.RequireRole(model.RoleAdmin), middleware.NoStore())
	{
		adminAPI.GET("/progress/summary", handlers.Progress.Summary)
		adminAPI.GET("/progress/feed", handlers.Monitor.ProgressFeed)
		adminAPI.GET("/subscriptions", handlers.Subscription.Overview)
	}

	return router
}
