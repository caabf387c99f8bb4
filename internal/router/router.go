package router

import (
	"ahmp/internal/database"
	"ahmp/internal/handlers"
	"ahmp/internal/middleware"
	"ahmp/internal/models"
	"ahmp/internal/services"
	"ahmp/pkg/config"
	"ahmp/pkg/logger"
	"ahmp/pkg/matching"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// SetupRouter 设置路由
func SetupRouter() *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SetupCORS())
	router.Use(middleware.Metrics())

	registerRoutes(router)
	return router
}

// 注册所有路由
func registerRoutes(router *gin.Engine) {
	db := database.GetDB()
	changeFeed := database.GetFeed()
	cache := database.GetViewCache()

	auth := middleware.NewAuthMiddleware(db)
	loginLimiter := middleware.NewLoginRateLimiter(rate.Limit(1), 5)

	applicantService := services.NewApplicantService(db, changeFeed, cache)
	projectService := services.NewProjectService(db, changeFeed, cache)
	applicationService := services.NewApplicationService(db, changeFeed, cache)
	notificationService := services.NewNotificationService(db, changeFeed)
	matchClient := matching.NewClient(config.GetConfig().Match.BaseURL, logger.GetLogger())
	matchService := services.NewMatchService(db, matchClient)

	// Prometheus指标
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket路由（token从查询参数传入）
	wsHandler := handlers.NewWebSocketHandler(db, notificationService)
	router.GET("/ws/notifications/:user_id", wsHandler.Notifications)
	router.GET("/ws/feed/:table", wsHandler.Feed)

	// API路由组
	api := router.Group("/api/v1")
	{
		// 健康检查接口
		systemHandler := handlers.NewSystemHandler()
		api.GET("/health", systemHandler.Health)
		api.GET("/ping", systemHandler.Ping)

		// 认证路由
		authHandler := handlers.NewAuthHandler(db)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", loginLimiter.Middleware(), authHandler.Login)
			authGroup.POST("/register", loginLimiter.Middleware(), authHandler.Register)
			authGroup.POST("/logout", authHandler.Logout)
			authGroup.POST("/refresh", authHandler.RefreshToken)
			authGroup.GET("/me", auth.RequireLogin(), authHandler.Me)
		}

		// 公开接口（营销页数据，无需登录）
		projectHandler := handlers.NewProjectHandler(projectService)
		api.GET("/public/projects", projectHandler.ListPublic)

		// 申请人路由
		applicantHandler := handlers.NewApplicantHandler(applicantService)
		applicants := api.Group("/applicants", auth.RequireLogin())
		{
			applicants.GET("", applicantHandler.List)
			applicants.GET("/stats", applicantHandler.StatusCounts)
			applicants.GET("/:id", applicantHandler.Get)
			applicants.POST("", applicantHandler.Create)
			applicants.PUT("/:id", applicantHandler.Update)
			applicants.PUT("/:id/status", auth.RequireStaff(), applicantHandler.UpdateStatus)
			applicants.DELETE("/:id", auth.RequireStaff(), applicantHandler.Delete)
		}

		// 项目路由
		projects := api.Group("/projects", auth.RequireLogin())
		{
			projects.GET("", projectHandler.List)
			projects.GET("/stats", projectHandler.StatusCounts)
			projects.GET("/:id", projectHandler.Get)
			projects.POST("", auth.RequireStaff(), projectHandler.Create)
			projects.PUT("/:id", auth.RequireStaff(), projectHandler.Update)
			projects.PUT("/:id/status", auth.RequireStaff(), projectHandler.UpdateStatus)
			projects.DELETE("/:id", auth.RequireStaff(), projectHandler.Delete)
		}

		// 申请路由
		applicationHandler := handlers.NewApplicationHandler(applicationService)
		applications := api.Group("/applications", auth.RequireLogin())
		{
			applications.GET("", applicationHandler.List)
			applications.GET("/stats", applicationHandler.StatusCounts)
			applications.GET("/:id", applicationHandler.Get)
			applications.POST("", applicationHandler.Create)
			applications.PUT("/:id/status", auth.RequireRole(models.RoleDeveloper, models.RoleAdmin), applicationHandler.UpdateStatus)
			applications.POST("/:id/withdraw", applicationHandler.Withdraw)
			applications.DELETE("/:id", auth.RequireStaff(), applicationHandler.Delete)
		}

		// 匹配代理路由
		matchHandler := handlers.NewMatchHandler(matchService)
		matchGroup := api.Group("/matching", auth.RequireLogin())
		{
			matchGroup.GET("/projects/:id/matches", matchHandler.ProjectMatches)
			matchGroup.GET("/applicants/:id/matches", matchHandler.ApplicantMatches)
			matchGroup.GET("/matches", matchHandler.AllMatches)
			matchGroup.POST("/run", auth.RequireStaff(), matchHandler.Run)
			matchGroup.PUT("/matches/:id", auth.RequireStaff(), matchHandler.UpdateStatus)
		}

		// 通知路由
		notificationHandler := handlers.NewNotificationHandler(notificationService)
		notifications := api.Group("/notifications", auth.RequireLogin())
		{
			notifications.GET("", notificationHandler.List)
			notifications.PUT("/:id/read", notificationHandler.MarkRead)
			notifications.PUT("/read-all", notificationHandler.MarkAllRead)
		}

		// 公司设置路由
		companyHandler := handlers.NewCompanyHandler(services.NewCompanyService(db))
		company := api.Group("/company", auth.RequireLogin())
		{
			company.GET("", companyHandler.Get)
			company.PUT("", auth.RequireAdmin(), companyHandler.Update)
		}
	}
}
