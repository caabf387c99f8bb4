package services

import (
	"ahmp/internal/models"
	"ahmp/pkg/logger"
	"encoding/json"
	"errors"

	"gorm.io/gorm"
)

// ProfileService 档案解析器
// 每个已认证请求都通过它拿到唯一的档案行；档案不存在时按注册元数据
// 惰性创建。解析永不向上抛错：数据层故障时退化为内存中的最小档案，
// 保证页面可渲染（可用性优先于一致性）
type ProfileService struct {
	db *gorm.DB
}

// NewProfileService 创建档案解析器
func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db}
}

// Resolve 解析用户档案，必要时惰性创建
// 注意：这个看起来只读的调用可能产生一次写入（档案创建），调用方需容忍
func (s *ProfileService) Resolve(user *models.User) *models.Profile {
	log := logger.GetLogger()

	var profile models.Profile
	err := s.db.Where("user_id = ?", user.ID).First(&profile).Error
	if err == nil {
		return &profile
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.WithError(err).Warnf("查询用户 %d 的档案失败，使用最小档案", user.ID)
		return s.minimalProfile(user)
	}

	// 档案不存在，按注册元数据创建
	created := s.buildFromSignupMeta(user)
	if err := s.db.Create(created).Error; err != nil {
		// 并发请求可能已经创建，重读一次
		if rerr := s.db.Where("user_id = ?", user.ID).First(&profile).Error; rerr == nil {
			return &profile
		}
		log.WithError(err).Warnf("创建用户 %d 的档案失败，使用最小档案", user.ID)
		return s.minimalProfile(user)
	}

	return created
}

// buildFromSignupMeta 按注册元数据构造档案
// 角色默认 buyer；元数据携带有效公司key时直接归属该租户
func (s *ProfileService) buildFromSignupMeta(user *models.User) *models.Profile {
	profile := &models.Profile{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.Name,
		Role:     models.RoleBuyer,
	}

	if len(user.SignupMeta) == 0 {
		return profile
	}

	var meta models.SignupMetadata
	if err := json.Unmarshal(user.SignupMeta, &meta); err != nil {
		logger.GetLogger().WithError(err).Warnf("解析用户 %d 的注册元数据失败", user.ID)
		return profile
	}

	if models.IsValidRole(meta.Role) {
		profile.Role = meta.Role
	}

	if meta.CompanyKey != "" {
		var company models.Company
		if err := s.db.Where("key = ?", meta.CompanyKey).First(&company).Error; err == nil {
			profile.CompanyID = &company.ID
		}
	}

	return profile
}

// minimalProfile 数据层故障时的内存档案（ID为0，表示未持久化）
func (s *ProfileService) minimalProfile(user *models.User) *models.Profile {
	return &models.Profile{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.Name,
		Role:     models.RoleBuyer,
	}
}
