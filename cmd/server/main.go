package main

import (
	"ahmp/internal/database"
	"ahmp/internal/router"
	"ahmp/internal/services"
	"ahmp/pkg/config"
	"ahmp/pkg/logger"
	"ahmp/pkg/matching"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	appLogger := logger.GetLogger()
	appLogger.Info("Starting Affordable Housing Management Platform...")

	// 初始化数据库
	if err := database.Initialize(cfg); err != nil {
		appLogger.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			appLogger.Error("Failed to close database:", err)
		}
		if err := database.CloseFeed(); err != nil {
			appLogger.Error("Failed to close Redis:", err)
		}
	}()

	// 执行数据库迁移
	if err := database.Migrate(); err != nil {
		appLogger.Fatalf("Failed to migrate database: %v", err)
	}

	// 执行种子数据初始化
	if err := seedData(); err != nil {
		appLogger.Fatalf("Failed to initialize seed data: %v", err)
	}

	// 检查Redis连接，失败只告警（变更推送和视图缓存会降级）
	if err := database.GetFeed().Ping(); err != nil {
		appLogger.Errorf("Redis unavailable, change feed and view cache degraded: %v", err)
	}

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	// 启动匹配同步调度器（未配置表达式时不启动）
	matchClient := matching.NewClient(cfg.Match.BaseURL, appLogger)
	matchScheduler := services.NewMatchSyncScheduler(database.GetDB(), services.NewMatchService(database.GetDB(), matchClient))
	if err := matchScheduler.Start(); err != nil {
		appLogger.Errorf("Failed to start match sync scheduler: %v", err)
		// 不影响主服务启动
	}
	defer matchScheduler.Stop()

	// 设置路由
	r := router.SetupRouter()

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	// 启动HTTP服务
	go func() {
		appLogger.Infof("Server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Errorf("Server forced to shutdown: %v", err)
	}

	appLogger.Info("Server exited")
}
