package handlers

import (
	"strings"
	"time"

	"ahmp/internal/services"
	"ahmp/pkg/jwt"
	"ahmp/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AuthHandler struct {
	userService    *services.UserService
	profileService *services.ProfileService
	companyService *services.CompanyService
	jwtManager     *jwt.JWTManager
}

func NewAuthHandler(db *gorm.DB) *AuthHandler {
	return &AuthHandler{
		userService:    services.NewUserService(db),
		profileService: services.NewProfileService(db),
		companyService: services.NewCompanyService(db),
		jwtManager:     jwt.GetJWTManager(), // 使用全局JWT管理器
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Username   string `json:"username" binding:"required,min=3,max=50"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	Name       string `json:"name" binding:"required,max=100"`
	Role       string `json:"role"`
	CompanyKey string `json:"company_key"`
}

type LoginResponse struct {
	Token     string   `json:"token"`
	ExpiresAt int64    `json:"expires_at"`
	User      UserInfo `json:"user"`
}

type UserInfo struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	CompanyID uint   `json:"company_id"`
}

// Login 用户登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	// 根据用户名或邮箱获取用户
	user, err := h.userService.GetByUsername(req.Username)
	if err != nil {
		response.Unauthorized(c, "用户名或密码错误")
		return
	}

	// 检查用户状态
	if !h.userService.IsActive(user) {
		response.Unauthorized(c, "用户已被禁用")
		return
	}

	// 验证密码
	if !user.CheckPassword(req.Password) {
		response.Unauthorized(c, "用户名或密码错误")
		return
	}

	// 生成Token
	token, err := h.jwtManager.GenerateToken(user.ID, user.Username, user.Email)
	if err != nil {
		response.ServerError(c, "生成Token失败")
		return
	}

	// 更新最后登录时间，失败不影响登录流程
	_ = h.userService.UpdateLastLogin(user.ID)

	// 登录时顺带解析档案（首次登录会惰性创建）
	profile := h.profileService.Resolve(user)

	expiresAt := time.Now().Add(h.jwtManager.GetTokenDuration()).Unix()

	response.Success(c, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User: UserInfo{
			ID:        user.ID,
			Username:  user.Username,
			Email:     user.Email,
			Name:      user.Name,
			Role:      profile.Role,
			CompanyID: profile.ResolvedCompanyID(),
		},
	})
}

// Register 用户注册
// 角色和公司key只作为元数据暂存，档案由首次访问惰性创建
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	user, err := h.userService.Register(services.RegisterInput{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		Name:       req.Name,
		Role:       req.Role,
		CompanyKey: req.CompanyKey,
	})
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.SuccessWithMessage(c, "注册成功", gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}

// Logout 用户登出
// Token到期自动失效，前端删除本地token即可
func (h *AuthHandler) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		response.Success(c, gin.H{"message": "登出成功"})
		return
	}

	claims, err := h.jwtManager.VerifyToken(authHeader[7:])
	if err != nil {
		response.Success(c, gin.H{"message": "登出成功"})
		return
	}

	response.Success(c, gin.H{
		"message":     "登出成功",
		"user_id":     claims.UserID,
		"username":    claims.Username,
		"logout_time": time.Now(),
	})
}

// RefreshToken 刷新Token
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		response.Unauthorized(c, "缺少认证头")
		return
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		response.Unauthorized(c, "认证头格式错误")
		return
	}

	claims, err := h.jwtManager.VerifyToken(authHeader[7:])
	if err != nil {
		response.Unauthorized(c, "Token无效")
		return
	}

	user, err := h.userService.GetByID(claims.UserID)
	if err != nil {
		response.Unauthorized(c, "用户不存在")
		return
	}
	if !h.userService.IsActive(user) {
		response.Unauthorized(c, "用户已被禁用")
		return
	}

	newToken, err := h.jwtManager.GenerateToken(user.ID, user.Username, user.Email)
	if err != nil {
		response.ServerError(c, "生成新Token失败")
		return
	}

	expiresAt := time.Now().Add(h.jwtManager.GetTokenDuration()).Unix()

	response.Success(c, gin.H{
		"token":      newToken,
		"expires_at": expiresAt,
		"message":    "Token刷新成功",
	})
}

// Me 获取当前登录用户的完整信息
func (h *AuthHandler) Me(c *gin.Context) {
	user := getCurrentUser(c)
	profile := getCurrentProfile(c)
	if user == nil || profile == nil {
		response.Unauthorized(c, "未登录")
		return
	}

	data := gin.H{
		"user": gin.H{
			"id":            user.ID,
			"username":      user.Username,
			"email":         user.Email,
			"name":          user.Name,
			"phone":         user.Phone,
			"status":        user.Status,
			"created_at":    user.CreatedAt,
			"last_login_at": user.LastLoginAt,
		},
		"profile": gin.H{
			"id":         profile.ID,
			"role":       profile.Role,
			"full_name":  profile.FullName,
			"company_id": profile.CompanyID,
		},
	}

	// 已归属租户时附带公司信息
	if companyID := profile.ResolvedCompanyID(); companyID != 0 {
		if company, err := h.companyService.GetByID(companyID); err == nil {
			data["company"] = gin.H{
				"id":    company.ID,
				"name":  company.Name,
				"key":   company.Key,
				"plan":  company.Plan,
				"seats": company.Seats,
			}
		}
	}

	response.Success(c, data)
}
