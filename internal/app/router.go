package app

import (
	"careiq_backend/docs"
	"careiq_backend/internal/config"
	"careiq_backend/internal/middleware"
	"careiq_backend/internal/model"
	"careiq_backend/internal/util"
	"careiq_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, s *services, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(s.identity, s.user))
	{
		// 护理员通用接口
		a.registerStaffRoutes(authGroup, c)

		// 主管接口
		a.registerSupervisorRoutes(authGroup, c)
	}

	// 本地归档的语音同样需要登录才能访问
	if cfg.Storage.Type == util.StorageLocal {
		uploads := router.Group("/uploads")
		uploads.Use(middleware.AuthMiddleware(s.identity, s.user))
		uploads.Static("/", cfg.Storage.LocalPath)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	router.GET("/", c.health.Root)

	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}
}

func (a *App) registerStaffRoutes(r *gin.RouterGroup, c *controllers) {
	r.POST("/auth/verify", c.auth.Verify)

	// 参与者
	r.GET("/participants", c.participant.List)
	r.POST("/participants", c.participant.Create)

	// 进展记录
	r.POST("/notes", c.note.CreateNote)
	r.GET("/notes", c.note.ListNotes)
	r.POST("/voice-to-text", c.note.VoiceToText)

	// 助手
	r.POST("/ask-nova", c.nova.Ask)

	// 培训
	r.GET("/training-status", c.training.GetStatus)
	training := r.Group("/training")
	{
		training.GET("/modules", c.training.ListModules)
		training.GET("/modules/:id", c.training.GetModule)
		training.POST("/modules/:id/complete", c.training.CompleteModule)
	}

	r.GET("/stats", c.stats.GetStats)
	r.GET("/export/:format", c.export.Export)
}

func (a *App) registerSupervisorRoutes(r *gin.RouterGroup, c *controllers) {
	supervisor := r.Group("")
	supervisor.Use(middleware.RoleMiddleware(model.Supervisor))
	{
		supervisor.GET("/training/report", c.training.Report)
	}
}
