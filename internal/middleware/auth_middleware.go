package middleware

import (
	"ahmp/internal/models"
	"ahmp/internal/services"
	"ahmp/pkg/jwt"
	"ahmp/pkg/response"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuthMiddleware 权限中间件
// 认证通过后顺带解析档案（惰性创建），角色和租户信息一律以档案为准
type AuthMiddleware struct {
	userService    *services.UserService
	profileService *services.ProfileService
	jwtManager     *jwt.JWTManager
}

func NewAuthMiddleware(db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{
		userService:    services.NewUserService(db),
		profileService: services.NewProfileService(db),
		jwtManager:     jwt.GetJWTManager(), // 使用全局JWT管理器
	}
}

// RequireLogin 要求登录
func (m *AuthMiddleware) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 从Authorization头获取JWT token
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		// 检查Bearer格式
		if !strings.HasPrefix(authHeader, "Bearer ") {
			response.Unauthorized(c, "认证头格式错误")
			c.Abort()
			return
		}

		// 提取token
		tokenString := authHeader[7:] // 去掉 "Bearer "

		// 验证token
		claims, err := m.jwtManager.VerifyToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "Token无效或已过期")
			c.Abort()
			return
		}

		// 获取用户信息
		user, err := m.userService.GetByID(claims.UserID)
		if err != nil {
			response.Unauthorized(c, "用户不存在")
			c.Abort()
			return
		}

		// 检查用户状态
		if !m.userService.IsActive(user) {
			response.Unauthorized(c, "用户已被禁用")
			c.Abort()
			return
		}

		// 解析档案（永不失败，数据层故障时为最小档案）
		profile := m.profileService.Resolve(user)

		// 将用户信息保存到上下文
		c.Set("user", user)
		c.Set("profile", profile)
		c.Set("user_id", user.ID)
		c.Set("company_id", profile.ResolvedCompanyID())
		c.Set("role", profile.Role)
		c.Set("token", tokenString)
		c.Set("claims", claims)

		c.Next()
	}
}

// RequireRole 要求档案角色属于给定集合
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, exists := c.Get("profile")
		if !exists {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		role := profile.(*models.Profile).Role
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		response.Forbidden(c, "权限不足：需要 "+strings.Join(roles, " 或 ")+" 角色")
		c.Abort()
	}
}

// RequireAdmin 要求管理员
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return m.RequireRole(models.RoleAdmin)
}

// RequireStaff 要求租户员工（开发商或管理员）
func (m *AuthMiddleware) RequireStaff() gin.HandlerFunc {
	return m.RequireRole(models.RoleDeveloper, models.RoleAdmin)
}

// GetProfile 从上下文取出档案
func GetProfile(c *gin.Context) *models.Profile {
	if profile, exists := c.Get("profile"); exists {
		return profile.(*models.Profile)
	}
	return nil
}

// GetBearerToken 从上下文取出原始令牌（透传给外部服务）
func GetBearerToken(c *gin.Context) string {
	return c.GetString("token")
}
