package handlers

import (
	"time"

	"ahmp/internal/database"
	"ahmp/pkg/response"

	"github.com/gin-gonic/gin"
)

type SystemHandler struct{}

func NewSystemHandler() *SystemHandler {
	return &SystemHandler{}
}

// Ping 存活检查
func (h *SystemHandler) Ping(c *gin.Context) {
	response.Success(c, gin.H{
		"message": "pong",
		"time":    time.Now(),
	})
}

// Health 健康检查（数据库和Redis）
func (h *SystemHandler) Health(c *gin.Context) {
	status := "ok"
	checks := gin.H{}

	sqlDB, err := database.GetDB().DB()
	if err != nil || sqlDB.Ping() != nil {
		status = "degraded"
		checks["database"] = "down"
	} else {
		checks["database"] = "up"
	}

	if err := database.GetFeed().Ping(); err != nil {
		status = "degraded"
		checks["redis"] = "down"
	} else {
		checks["redis"] = "up"
	}

	response.Success(c, gin.H{
		"status": status,
		"checks": checks,
		"time":   time.Now(),
	})
}
