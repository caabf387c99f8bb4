package services

import (
	"ahmp/internal/models"
	"ahmp/pkg/logger"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CompanyService 租户数据访问
type CompanyService struct {
	db *gorm.DB
}

// NewCompanyService 创建租户服务
func NewCompanyService(db *gorm.DB) *CompanyService {
	return &CompanyService{db: db}
}

// GetByID 根据ID获取租户
func (s *CompanyService) GetByID(id uint) (*models.Company, error) {
	var company models.Company
	err := s.db.First(&company, id).Error
	return &company, err
}

// GetByKey 根据唯一key获取租户
func (s *CompanyService) GetByKey(key string) (*models.Company, error) {
	var company models.Company
	err := s.db.Where("key = ?", key).First(&company).Error
	return &company, err
}

// ListAll 获取全部租户（匹配结果定时刷新用）
func (s *CompanyService) ListAll() ([]*models.Company, error) {
	var companies []*models.Company
	err := s.db.Order("created_at").Find(&companies).Error
	return companies, err
}

// EnsureForProfile 确保档案已归属租户，返回租户ID
// 首次写入时惰性建租（"首次使用即创建"，无需前置开通流程）：
// 以用户名派生租户名，生成唯一key，建租和归属与主写入同在一个事务，
// 单次调用最多创建一个租户
func (s *CompanyService) EnsureForProfile(tx *gorm.DB, profile *models.Profile) (uint, error) {
	if profile.CompanyID != nil {
		return *profile.CompanyID, nil
	}

	owner := profile.FullName
	if owner == "" {
		owner = strings.SplitN(profile.Email, "@", 2)[0]
	}
	if owner == "" {
		owner = fmt.Sprintf("user-%d", profile.UserID)
	}

	company := &models.Company{
		Name: fmt.Sprintf("%s's Company", owner),
		Key:  generateCompanyKey(),
		Plan: models.CompanyPlanStarter,
	}
	if err := tx.Create(company).Error; err != nil {
		return 0, fmt.Errorf("创建租户失败: %v", err)
	}

	// 归属档案；档案行可能尚未持久化（解析退化场景），此时补建
	result := tx.Model(&models.Profile{}).
		Where("user_id = ?", profile.UserID).
		Update("company_id", company.ID)
	if result.Error != nil {
		return 0, fmt.Errorf("归属租户失败: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		profile.CompanyID = &company.ID
		if err := tx.Create(profile).Error; err != nil {
			return 0, fmt.Errorf("归属租户失败: %v", err)
		}
	}

	profile.CompanyID = &company.ID
	logger.GetLogger().Infof("为用户 %d 惰性创建租户 %d (%s)", profile.UserID, company.ID, company.Key)
	return company.ID, nil
}

// Update 更新租户设置
func (s *CompanyService) Update(id uint, name, plan string, seats int) (*models.Company, error) {
	var company models.Company
	if err := s.db.First(&company, id).Error; err != nil {
		return nil, err
	}

	if name != "" {
		company.Name = name
	}
	if plan != "" {
		if !isValidPlan(plan) {
			return nil, fmt.Errorf("订阅计划无效: %s", plan)
		}
		company.Plan = plan
	}
	if seats > 0 {
		company.Seats = seats
	}

	err := s.db.Save(&company).Error
	return &company, err
}

// isValidPlan 检查订阅计划是否有效
func isValidPlan(plan string) bool {
	switch plan {
	case models.CompanyPlanStarter, models.CompanyPlanGrowth, models.CompanyPlanEnterprise:
		return true
	default:
		return false
	}
}

// generateCompanyKey 生成唯一租户key
func generateCompanyKey() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}
