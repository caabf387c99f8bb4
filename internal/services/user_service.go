package services

import (
	"ahmp/internal/models"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// UserService 用户（认证主体）服务
type UserService struct {
	db *gorm.DB
}

// NewUserService 创建用户服务
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// GetByID 按ID获取用户
func (s *UserService) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername 按用户名或邮箱获取用户
func (s *UserService) GetByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ? OR email = ?", username, username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// IsActive 检查用户是否可登录
func (s *UserService) IsActive(user *models.User) bool {
	return user.Status == models.UserStatusActive
}

// UpdateLastLogin 更新最后登录时间
func (s *UserService) UpdateLastLogin(id uint) error {
	now := time.Now()
	return s.db.Model(&models.User{}).Where("id = ?", id).Update("last_login_at", &now).Error
}

// RegisterInput 注册参数
// 角色和公司key是可选元数据，只暂存在用户行上，
// 档案由解析器首次访问时按元数据创建
type RegisterInput struct {
	Username   string
	Email      string
	Password   string
	Name       string
	Role       string
	CompanyKey string
}

// Register 注册新用户
func (s *UserService) Register(input RegisterInput) (*models.User, error) {
	var count int64
	if err := s.db.Model(&models.User{}).
		Where("username = ? OR email = ?", input.Username, input.Email).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("用户名或邮箱已存在")
	}

	user := &models.User{
		Username: input.Username,
		Email:    input.Email,
		Name:     input.Name,
		Status:   models.UserStatusActive,
	}
	if err := user.SetPassword(input.Password); err != nil {
		return nil, err
	}

	if input.Role != "" || input.CompanyKey != "" {
		meta := models.SignupMetadata{Role: input.Role, CompanyKey: input.CompanyKey}
		if data, err := json.Marshal(meta); err == nil {
			user.SignupMeta = data
		}
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}
