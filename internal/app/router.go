package app

import (
	"career_coach_backend/docs"
	"career_coach_backend/internal/config"
	"career_coach_backend/internal/middleware"
	"career_coach_backend/internal/model"
	"career_coach_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由（无需登录）
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/register", c.auth.Register)
		public.POST("/auth/login", c.auth.Login)
		public.GET("/public/portfolios/:id", c.portfolio.GetPublished)
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/auth/me", c.auth.Me)
		authGroup.PUT("/auth/password", c.auth.ChangePassword)
		authGroup.PUT("/users/profile", c.user.UpdateProfile)
		authGroup.POST("/users/avatar", c.user.UploadAvatar)

		// 简历
		authGroup.POST("/resumes", c.resume.Upload)
		authGroup.GET("/resumes", c.resume.List)
		authGroup.GET("/resumes/:id", c.resume.Get)
		authGroup.DELETE("/resumes/:id", c.resume.Delete)
		authGroup.POST("/resumes/:id/optimize", c.resume.Optimize)

		// 作品集
		authGroup.POST("/portfolios", c.portfolio.Generate)
		authGroup.GET("/portfolios", c.portfolio.List)
		authGroup.GET("/portfolios/:id", c.portfolio.Get)
		authGroup.PUT("/portfolios/:id/publish", c.portfolio.SetPublished)
		authGroup.DELETE("/portfolios/:id", c.portfolio.Delete)

		// 求职信
		authGroup.POST("/cover-letters", c.coverLetter.Draft)
		authGroup.POST("/cover-letters/stream", c.coverLetter.DraftStream)
		authGroup.GET("/cover-letters", c.coverLetter.List)
		authGroup.GET("/cover-letters/:id", c.coverLetter.Get)
		authGroup.DELETE("/cover-letters/:id", c.coverLetter.Delete)

		// 模拟面试
		authGroup.POST("/interviews", c.interview.CreateSession)
		authGroup.GET("/interviews", c.interview.ListSessions)
		authGroup.GET("/interviews/:id", c.interview.GetSession)
		authGroup.POST("/interviews/:id/answers/:index", c.interview.SubmitTextAnswer)
		authGroup.POST("/interviews/:id/answers/:index/audio", c.interview.SubmitAudioAnswer)
		authGroup.POST("/interviews/:id/answers/:index/score", c.interview.ScoreAnswer)
		authGroup.POST("/interviews/:id/complete", c.interview.CompleteSession)
		authGroup.POST("/interviews/:id/abort", c.interview.AbortSession)
		authGroup.GET("/interviews/:id/summary", c.interview.GetSummary)
	}

	// 管理员接口
	adminGroup := router.Group("/api/admin")
	adminGroup.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.RoleAdmin))
	{
		adminGroup.GET("/users", c.user.ListUsers)
		adminGroup.PUT("/users/:id/disabled", c.user.SetUserDisabled)
	}
}
