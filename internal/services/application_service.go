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

const applicationTable = "applications"

// ApplicationService 住房申请数据访问（租户隔离）
// 状态流转只开放给 developer 和 admin，校验在任何数据库写入之前完成
type ApplicationService struct {
	db            *gorm.DB
	feed          *feed.RedisFeed
	cache         *viewcache.ViewCache
	companies     *CompanyService
	notifications *NotificationService
	validate      *validator.Validate
}

// NewApplicationService 创建申请服务
func NewApplicationService(db *gorm.DB, f *feed.RedisFeed, cache *viewcache.ViewCache) *ApplicationService {
	return &ApplicationService{
		db:            db,
		feed:          f,
		cache:         cache,
		companies:     NewCompanyService(db),
		notifications: NewNotificationService(db, f),
		validate:      validator.New(),
	}
}

type cachedApplicationList struct {
	Items []*models.Application `json:"items"`
	Total int64                 `json:"total"`
}

// List 按租户查询申请（分页，读路径降级）
func (s *ApplicationService) List(companyID, userID uint, status string, projectID uint, page, pageSize int) ([]*models.Application, int64) {
	var cacheKey string
	if s.cache != nil && companyID != 0 {
		cacheKey = s.cache.ListKey(applicationTable, companyID, fmt.Sprintf("%s:%d:%d:%d", status, projectID, page, pageSize))
		var cached cachedApplicationList
		if s.cache.Get(cacheKey, &cached) {
			return cached.Items, cached.Total
		}
	}

	var applications []*models.Application
	var total int64

	query := tenantScope(s.db.Model(&models.Application{}), companyID, userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if projectID != 0 {
		query = query.Where("project_id = ?", projectID)
	}

	if err := query.Count(&total).Error; err != nil {
		logger.GetLogger().WithError(err).Error("统计申请失败")
		return []*models.Application{}, 0
	}

	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&applications).Error; err != nil {
		logger.GetLogger().WithError(err).Error("查询申请列表失败")
		return []*models.Application{}, 0
	}

	if cacheKey != "" {
		_ = s.cache.Set(cacheKey, cachedApplicationList{Items: applications, Total: total})
	}

	return applications, total
}

// GetByID 按ID和租户获取申请
func (s *ApplicationService) GetByID(companyID, userID, id uint) (*models.Application, error) {
	var application models.Application
	err := tenantScope(s.db, companyID, userID).First(&application, id).Error
	if err != nil {
		return nil, err
	}
	return &application, nil
}

// StatusCounts 按租户统计申请状态分布（读路径降级）
func (s *ApplicationService) StatusCounts(companyID, userID uint) []*StatusCount {
	var results []*StatusCount
	err := tenantScope(s.db.Model(&models.Application{}), companyID, userID).
		Select("status, COUNT(*) as count").
		Group("status").
		Find(&results).Error
	if err != nil {
		logger.GetLogger().WithError(err).Error("统计申请状态分布失败")
		return []*StatusCount{}
	}
	return results
}

// Create 提交申请
// 同一事务内完成惰性建租、申请人与项目的归属校验和主写入
func (s *ApplicationService) Create(profile *models.Profile, application *models.Application) error {
	application.CreatedBy = profile.UserID
	if application.Status == "" {
		application.Status = models.ApplicationStatusSubmitted
	}
	if !models.IsValidApplicationStatus(application.Status) {
		return ErrInvalidStatus
	}
	if err := s.validate.Struct(application); err != nil {
		return fmt.Errorf("申请数据校验失败: %v", err)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		companyID, err := s.companies.EnsureForProfile(tx, profile)
		if err != nil {
			return err
		}
		application.CompanyID = companyID

		// 申请人和项目必须属于同一租户
		var applicant models.Applicant
		if err := tenantScope(tx, companyID, profile.UserID).First(&applicant, application.ApplicantID).Error; err != nil {
			return fmt.Errorf("申请人不存在: %v", err)
		}
		var project models.Project
		if err := tenantScope(tx, companyID, profile.UserID).First(&project, application.ProjectID).Error; err != nil {
			return fmt.Errorf("项目不存在: %v", err)
		}

		return tx.Create(application).Error
	})
	if err != nil {
		return err
	}

	s.publish(feed.EventInsert, application.CompanyID, application, nil)
	s.invalidate(application.CompanyID)
	return nil
}

// UpdateStatus 申请状态流转
// 仅 developer 和 admin 可操作，权限校验先于一切数据库访问
func (s *ApplicationService) UpdateStatus(profile *models.Profile, id uint, status, notes string) (*models.Application, error) {
	if profile.Role != models.RoleDeveloper && profile.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	if !models.IsValidApplicationStatus(status) {
		return nil, ErrInvalidStatus
	}

	application, err := s.GetByID(profile.ResolvedCompanyID(), profile.UserID, id)
	if err != nil {
		return nil, err
	}
	old := *application

	application.Status = status
	if notes != "" {
		application.Notes = notes
	}
	if err := s.db.Save(application).Error; err != nil {
		return nil, err
	}

	s.publish(feed.EventUpdate, application.CompanyID, application, &old)
	s.invalidate(application.CompanyID)
	s.notifyApplicant(application)
	return application, nil
}

// Withdraw 申请人撤回自己提交的申请
func (s *ApplicationService) Withdraw(profile *models.Profile, id uint) (*models.Application, error) {
	application, err := s.GetByID(profile.ResolvedCompanyID(), profile.UserID, id)
	if err != nil {
		return nil, err
	}
	if application.CreatedBy != profile.UserID && !profile.IsStaff() {
		return nil, ErrForbidden
	}
	old := *application

	application.Status = models.ApplicationStatusWithdrawn
	if err := s.db.Save(application).Error; err != nil {
		return nil, err
	}

	s.publish(feed.EventUpdate, application.CompanyID, application, &old)
	s.invalidate(application.CompanyID)
	return application, nil
}

// Delete 删除申请（仅租户员工）
func (s *ApplicationService) Delete(profile *models.Profile, id uint) error {
	if !profile.IsStaff() {
		return ErrForbidden
	}

	application, err := s.GetByID(profile.ResolvedCompanyID(), profile.UserID, id)
	if err != nil {
		return err
	}

	if err := s.db.Delete(application).Error; err != nil {
		return err
	}

	s.publish(feed.EventDelete, application.CompanyID, nil, application)
	s.invalidate(application.CompanyID)
	return nil
}

// notifyApplicant 状态变化后通知申请人绑定的登录用户
func (s *ApplicationService) notifyApplicant(application *models.Application) {
	var applicant models.Applicant
	if err := s.db.First(&applicant, application.ApplicantID).Error; err != nil {
		logger.GetLogger().WithError(err).Warn("查询申请人失败，跳过状态变更通知")
		return
	}
	if applicant.UserID == nil {
		return
	}

	title := "申请状态更新"
	message := fmt.Sprintf("您对项目 #%d 的申请状态已更新为 %s", application.ProjectID, application.Status)
	if _, err := s.notifications.Notify(*applicant.UserID, title, message, models.NotificationTypeApplication); err != nil {
		logger.GetLogger().WithError(err).Warn("发送申请状态通知失败")
	}
}

func (s *ApplicationService) publish(eventType string, companyID uint, newRow, oldRow interface{}) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(applicationTable, companyID, eventType, newRow, oldRow); err != nil {
		logger.GetLogger().WithError(err).Warn("发布申请变更事件失败")
	}
}

func (s *ApplicationService) invalidate(companyID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(applicationTable, companyID); err != nil {
		logger.GetLogger().WithError(err).Warn("失效申请视图缓存失败")
	}
}
