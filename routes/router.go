package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/agora-board/agora/config"
	"github.com/agora-board/agora/controllers"
	"github.com/agora-board/agora/middleware"
	"github.com/agora-board/agora/utils"
)

// SetupRouter builds the Gin engine with middleware and all API routes.
func SetupRouter(auth *controllers.AuthController, discussions *controllers.DiscussionController) *gin.Engine {
	cfg := config.Get()
	gin.SetMode(cfg.GinMode)

	r := gin.New()
	r.Use(utils.GinLogger(utils.Logger))
	r.Use(utils.GinRecovery(utils.Logger))

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsConfig))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	{
		limited := authGroup.Group("", middleware.RateLimitMiddleware())
		limited.POST("/register", auth.Register)
		limited.POST("/login", auth.Login)
		limited.GET("/oauth/:provider/login", auth.OAuthRedirect)
		limited.GET("/oauth/:provider/callback", auth.OAuthCallback)

		authGroup.POST("/logout", middleware.AuthRequired(), auth.Logout)
		authGroup.GET("/me", middleware.AuthRequired(), auth.Me)
	}

	public := api.Group("/discussions", middleware.AuthOptional())
	{
		public.GET("", discussions.List)
		public.GET("/:id", discussions.Detail)
	}

	protected := api.Group("/discussions", middleware.AuthRequired(), middleware.RateLimitMiddleware())
	{
		protected.POST("", discussions.Create)
		protected.PUT("/:id", discussions.Update)
		protected.DELETE("/:id", discussions.Delete)
		protected.POST("/:id/bookmark", discussions.ToggleBookmark)
		protected.POST("/:id/like", discussions.ToggleLike)
		protected.POST("/:id/participants", discussions.Join)
		protected.DELETE("/:id/participants", discussions.Leave)
	}

	return r
}
