package handlers

import (
	"ahmp/internal/models"

	"github.com/gin-gonic/gin"
)

// getCurrentUser 从上下文取出认证中间件注入的用户
func getCurrentUser(c *gin.Context) *models.User {
	if user, exists := c.Get("user"); exists {
		return user.(*models.User)
	}
	return nil
}

// getCurrentProfile 从上下文取出档案
func getCurrentProfile(c *gin.Context) *models.Profile {
	if profile, exists := c.Get("profile"); exists {
		return profile.(*models.Profile)
	}
	return nil
}

// getBearerToken 取出原始令牌（透传给外部服务）
func getBearerToken(c *gin.Context) string {
	return c.GetString("token")
}
