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

const projectTable = "projects"

// ProjectService 住房项目数据访问（租户隔离）
type ProjectService struct {
	db        *gorm.DB
	feed      *feed.RedisFeed
	cache     *viewcache.ViewCache
	companies *CompanyService
	validate  *validator.Validate
}

// NewProjectService 创建项目服务
func NewProjectService(db *gorm.DB, f *feed.RedisFeed, cache *viewcache.ViewCache) *ProjectService {
	return &ProjectService{
		db:        db,
		feed:      f,
		cache:     cache,
		companies: NewCompanyService(db),
		validate:  validator.New(),
	}
}

type cachedProjectList struct {
	Items []*models.Project `json:"items"`
	Total int64             `json:"total"`
}

// List 按租户查询项目（分页，读路径降级）
func (s *ProjectService) List(companyID, userID uint, status, keyword string, page, pageSize int) ([]*models.Project, int64) {
	var cacheKey string
	if s.cache != nil && companyID != 0 {
		cacheKey = s.cache.ListKey(projectTable, companyID, fmt.Sprintf("%s:%s:%d:%d", status, keyword, page, pageSize))
		var cached cachedProjectList
		if s.cache.Get(cacheKey, &cached) {
			return cached.Items, cached.Total
		}
	}

	var projects []*models.Project
	var total int64

	query := tenantScope(s.db.Model(&models.Project{}), companyID, userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if keyword != "" {
		pattern := fmt.Sprintf("%%%s%%", keyword)
		query = query.Where("name ILIKE ? OR city ILIKE ?", pattern, pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		logger.GetLogger().WithError(err).Error("统计项目失败")
		return []*models.Project{}, 0
	}

	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&projects).Error; err != nil {
		logger.GetLogger().WithError(err).Error("查询项目列表失败")
		return []*models.Project{}, 0
	}

	if cacheKey != "" {
		_ = s.cache.Set(cacheKey, cachedProjectList{Items: projects, Total: total})
	}

	return projects, total
}

// ListPublic 公开项目列表（无需登录，仅展示已上线项目）
func (s *ProjectService) ListPublic(page, pageSize int) ([]*models.Project, int64) {
	var projects []*models.Project
	var total int64

	query := s.db.Model(&models.Project{}).Where("status = ?", models.ProjectStatusActive)
	if err := query.Count(&total).Error; err != nil {
		logger.GetLogger().WithError(err).Error("统计公开项目失败")
		return []*models.Project{}, 0
	}

	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&projects).Error; err != nil {
		logger.GetLogger().WithError(err).Error("查询公开项目失败")
		return []*models.Project{}, 0
	}

	return projects, total
}

// GetByID 按ID和租户获取项目
func (s *ProjectService) GetByID(companyID, userID, id uint) (*models.Project, error) {
	var project models.Project
	err := tenantScope(s.db, companyID, userID).First(&project, id).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// StatusCounts 按租户统计项目状态分布（读路径降级）
func (s *ProjectService) StatusCounts(companyID, userID uint) []*StatusCount {
	var results []*StatusCount
	err := tenantScope(s.db.Model(&models.Project{}), companyID, userID).
		Select("status, COUNT(*) as count").
		Group("status").
		Find(&results).Error
	if err != nil {
		logger.GetLogger().WithError(err).Error("统计项目状态分布失败")
		return []*StatusCount{}
	}
	return results
}

// Create 创建项目（仅租户员工，档案未归属租户时惰性建租）
func (s *ProjectService) Create(profile *models.Profile, project *models.Project) error {
	if !profile.IsStaff() {
		return ErrForbidden
	}
	project.CreatedBy = profile.UserID
	if project.Status == "" {
		project.Status = models.ProjectStatusPlanning
	}
	if !models.IsValidProjectStatus(project.Status) {
		return ErrInvalidStatus
	}
	if err := s.validate.Struct(project); err != nil {
		return fmt.Errorf("项目数据校验失败: %v", err)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		companyID, err := s.companies.EnsureForProfile(tx, profile)
		if err != nil {
			return err
		}
		project.CompanyID = companyID
		return tx.Create(project).Error
	})
	if err != nil {
		return err
	}

	s.publish(feed.EventInsert, project.CompanyID, project, nil)
	s.invalidate(project.CompanyID)
	return nil
}

// Update 更新项目信息（仅租户员工）
func (s *ProjectService) Update(profile *models.Profile, id uint, input *models.Project) (*models.Project, error) {
	if !profile.IsStaff() {
		return nil, ErrForbidden
	}

	project, err := s.GetByID(profile.ResolvedCompanyID(), profile.UserID, id)
	if err != nil {
		return nil, err
	}
	old := *project

	project.Name = input.Name
	project.Description = input.Description
	project.AddressLine = input.AddressLine
	project.City = input.City
	project.State = input.State
	project.ZipCode = input.ZipCode
	project.Latitude = input.Latitude
	project.Longitude = input.Longitude
	project.TotalUnits = input.TotalUnits
	project.AffordableUnits = input.AffordableUnits
	project.AMIBands = input.AMIBands
	project.Images = input.Images

	if err := s.validate.Struct(project); err != nil {
		return nil, fmt.Errorf("项目数据校验失败: %v", err)
	}
	if err := s.db.Save(project).Error; err != nil {
		return nil, err
	}

	s.publish(feed.EventUpdate, project.CompanyID, project, &old)
	s.invalidate(project.CompanyID)
	return project, nil
}

// UpdateStatus 项目状态流转（仅租户员工）
func (s *ProjectService) UpdateStatus(profile *models.Profile, id uint, status string) (*models.Project, error) {
	if !profile.IsStaff() {
		return nil, ErrForbidden
	}
	if !models.IsValidProjectStatus(status) {
		return nil, ErrInvalidStatus
	}

	project, err := s.GetByID(profile.ResolvedCompanyID(), profile.UserID, id)
	if err != nil {
		return nil, err
	}
	old := *project

	project.Status = status
	if err := s.db.Save(project).Error; err != nil {
		return nil, err
	}

	s.publish(feed.EventUpdate, project.CompanyID, project, &old)
	s.invalidate(project.CompanyID)
	return project, nil
}

// Delete 删除项目（仅租户员工）
func (s *ProjectService) Delete(profile *models.Profile, id uint) error {
	if !profile.IsStaff() {
		return ErrForbidden
	}

	project, err := s.GetByID(profile.ResolvedCompanyID(), profile.UserID, id)
	if err != nil {
		return err
	}

	if err := s.db.Delete(project).Error; err != nil {
		return err
	}

	s.publish(feed.EventDelete, project.CompanyID, nil, project)
	s.invalidate(project.CompanyID)
	return nil
}

func (s *ProjectService) publish(eventType string, companyID uint, newRow, oldRow interface{}) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(projectTable, companyID, eventType, newRow, oldRow); err != nil {
		logger.GetLogger().WithError(err).Warn("发布项目变更事件失败")
	}
}

func (s *ProjectService) invalidate(companyID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(projectTable, companyID); err != nil {
		logger.GetLogger().WithError(err).Warn("失效项目视图缓存失败")
	}
}
