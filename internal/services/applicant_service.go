package services

import (
	"ahmp/internal/models"
	"ahmp/pkg/feed"
	"ahmp/pkg/logger"
	"ahmp/pkg/viewcache"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const applicantTable = "applicants"

// ApplicantService 申请人数据访问（租户隔离）
// 读路径出错时记录日志并返回空结果，页面渲染空态而不是错误页；
// 写路径错误向调用方传播
type ApplicantService struct {
	db        *gorm.DB
	feed      *feed.RedisFeed
	cache     *viewcache.ViewCache
	companies *CompanyService
	validate  *validator.Validate
}

// NewApplicantService 创建申请人服务
func NewApplicantService(db *gorm.DB, f *feed.RedisFeed, cache *viewcache.ViewCache) *ApplicantService {
	return &ApplicantService{
		db:        db,
		feed:      f,
		cache:     cache,
		companies: NewCompanyService(db),
		validate:  validator.New(),
	}
}

type cachedApplicantList struct {
	Items []*models.Applicant `json:"items"`
	Total int64               `json:"total"`
}

// List 按租户查询申请人（分页，读路径降级）
func (s *ApplicantService) List(companyID, userID uint, status, keyword string, page, pageSize int) ([]*models.Applicant, int64) {
	var cacheKey string
	if s.cache != nil && companyID != 0 {
		cacheKey = s.cache.ListKey(applicantTable, companyID, fmt.Sprintf("%s:%s:%d:%d", status, keyword, page, pageSize))
		var cached cachedApplicantList
		if s.cache.Get(cacheKey, &cached) {
			return cached.Items, cached.Total
		}
	}

	var applicants []*models.Applicant
	var total int64

	query := tenantScope(s.db.Model(&models.Applicant{}), companyID, userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if keyword != "" {
		pattern := fmt.Sprintf("%%%s%%", keyword)
		query = query.Where("first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ?", pattern, pattern, pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		logger.GetLogger().WithError(err).Error("统计申请人失败")
		return []*models.Applicant{}, 0
	}

	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&applicants).Error; err != nil {
		logger.GetLogger().WithError(err).Error("查询申请人列表失败")
		return []*models.Applicant{}, 0
	}

	if cacheKey != "" {
		_ = s.cache.Set(cacheKey, cachedApplicantList{Items: applicants, Total: total})
	}

	return applicants, total
}

// GetByID 按ID和租户获取申请人
// 不存在与归属其他租户不作区分，一律返回记录不存在
func (s *ApplicantService) GetByID(companyID, userID, id uint) (*models.Applicant, error) {
	var applicant models.Applicant
	err := tenantScope(s.db, companyID, userID).First(&applicant, id).Error
	if err != nil {
		return nil, err
	}
	return &applicant, nil
}

// StatusCounts 按租户统计状态分布（读路径降级）
func (s *ApplicantService) StatusCounts(companyID, userID uint) []*StatusCount {
	var results []*StatusCount
	err := tenantScope(s.db.Model(&models.Applicant{}), companyID, userID).
		Select("status, COUNT(*) as count").
		Group("status").
		Find(&results).Error
	if err != nil {
		logger.GetLogger().WithError(err).Error("统计申请人状态分布失败")
		return []*StatusCount{}
	}
	return results
}

// Create 创建申请人
// 档案未归属租户时在同一事务内惰性建租并归属，再落主写入
func (s *ApplicantService) Create(profile *models.Profile, applicant *models.Applicant) error {
	applicant.CreatedBy = profile.UserID
	if applicant.Status == "" {
		applicant.Status = models.ApplicantStatusPending
	}
	if !models.IsValidApplicantStatus(applicant.Status) {
		return ErrInvalidStatus
	}
	if err := s.validate.Struct(applicant); err != nil {
		return fmt.Errorf("申请人数据校验失败: %v", err)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		companyID, err := s.companies.EnsureForProfile(tx, profile)
		if err != nil {
			return err
		}
		applicant.CompanyID = companyID
		return tx.Create(applicant).Error
	})
	if err != nil {
		return err
	}

	s.publish(feed.EventInsert, applicant.CompanyID, applicant, nil)
	s.invalidate(applicant.CompanyID)
	return nil
}

// Update 更新申请人基础信息
func (s *ApplicantService) Update(companyID, userID, id uint, input *models.Applicant) (*models.Applicant, error) {
	applicant, err := s.GetByID(companyID, userID, id)
	if err != nil {
		return nil, err
	}
	old := *applicant

	applicant.FirstName = input.FirstName
	applicant.LastName = input.LastName
	applicant.Email = input.Email
	applicant.Phone = input.Phone
	applicant.HouseholdSize = input.HouseholdSize
	applicant.Income = input.Income
	applicant.AMIPercent = input.AMIPercent
	applicant.PreferredLocation = input.PreferredLocation
	applicant.Latitude = input.Latitude
	applicant.Longitude = input.Longitude

	if err := s.validate.Struct(applicant); err != nil {
		return nil, fmt.Errorf("申请人数据校验失败: %v", err)
	}
	if err := s.db.Save(applicant).Error; err != nil {
		return nil, err
	}

	s.publish(feed.EventUpdate, applicant.CompanyID, applicant, &old)
	s.invalidate(applicant.CompanyID)
	return applicant, nil
}

// UpdateStatus 申请人状态流转（仅租户员工）
func (s *ApplicantService) UpdateStatus(profile *models.Profile, id uint, status string) (*models.Applicant, error) {
	if !profile.IsStaff() {
		return nil, ErrForbidden
	}
	if !models.IsValidApplicantStatus(status) {
		return nil, ErrInvalidStatus
	}

	applicant, err := s.GetByID(profile.ResolvedCompanyID(), profile.UserID, id)
	if err != nil {
		return nil, err
	}
	old := *applicant

	applicant.Status = status
	if err := s.db.Save(applicant).Error; err != nil {
		return nil, err
	}

	s.publish(feed.EventUpdate, applicant.CompanyID, applicant, &old)
	s.invalidate(applicant.CompanyID)
	return applicant, nil
}

// Delete 删除申请人（仅租户员工）
func (s *ApplicantService) Delete(profile *models.Profile, id uint) error {
	if !profile.IsStaff() {
		return ErrForbidden
	}

	applicant, err := s.GetByID(profile.ResolvedCompanyID(), profile.UserID, id)
	if err != nil {
		return err
	}

	if err := s.db.Delete(applicant).Error; err != nil {
		return err
	}

	s.publish(feed.EventDelete, applicant.CompanyID, nil, applicant)
	s.invalidate(applicant.CompanyID)
	return nil
}

// publish 发布变更事件（推送不可用时只记日志，不影响主流程）
func (s *ApplicantService) publish(eventType string, companyID uint, newRow, oldRow interface{}) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(applicantTable, companyID, eventType, newRow, oldRow); err != nil {
		logger.GetLogger().WithError(err).Warn("发布申请人变更事件失败")
	}
}

// invalidate 写成功后统一失效列表与详情视图
func (s *ApplicantService) invalidate(companyID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(applicantTable, companyID); err != nil {
		logger.GetLogger().WithError(err).Warn("失效申请人视图缓存失败")
	}
}
