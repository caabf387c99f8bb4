package services

import (
	"ahmp/internal/models"
	"ahmp/pkg/logger"
	"ahmp/pkg/matching"
	"ahmp/pkg/metrics"
	"encoding/json"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MatchService 匹配结果代理
// 评分由外部匹配服务完成，这里透传调用方令牌并维护本地审核副本
type MatchService struct {
	db     *gorm.DB
	client *matching.Client
}

// NewMatchService 创建匹配服务
func NewMatchService(db *gorm.DB, client *matching.Client) *MatchService {
	return &MatchService{db: db, client: client}
}

// ProjectMatches 获取项目的匹配结果（项目须属于调用方租户）
func (s *MatchService) ProjectMatches(profile *models.Profile, token string, projectID uint) ([]matching.Match, error) {
	var project models.Project
	if err := tenantScope(s.db, profile.ResolvedCompanyID(), profile.UserID).First(&project, projectID).Error; err != nil {
		return nil, err
	}

	matches, err := s.client.ProjectMatches(token, projectID)
	if err != nil {
		metrics.MatchProxyErrors.Inc()
		return nil, err
	}
	return matches, nil
}

// ApplicantMatches 获取申请人的匹配结果（申请人须属于调用方租户）
func (s *MatchService) ApplicantMatches(profile *models.Profile, token string, applicantID uint) ([]matching.Match, error) {
	var applicant models.Applicant
	if err := tenantScope(s.db, profile.ResolvedCompanyID(), profile.UserID).First(&applicant, applicantID).Error; err != nil {
		return nil, err
	}

	matches, err := s.client.ApplicantMatches(token, applicantID)
	if err != nil {
		metrics.MatchProxyErrors.Inc()
		return nil, err
	}
	return matches, nil
}

// AllMatches 聚合全部项目的匹配结果
func (s *MatchService) AllMatches(token string) ([]matching.Match, error) {
	matches, err := s.client.AllMatches(token)
	if err != nil {
		metrics.MatchProxyErrors.Inc()
		return nil, err
	}
	return matches, nil
}

// Run 触发评分服务重新计算（仅租户员工）
func (s *MatchService) Run(profile *models.Profile, token string, projectID *uint) error {
	if !profile.IsStaff() {
		return ErrForbidden
	}
	if err := s.client.RunMatching(token, projectID); err != nil {
		metrics.MatchProxyErrors.Inc()
		return err
	}
	return nil
}

// UpdateStatus 更新匹配审核状态（仅租户员工）
// 先写评分服务，成功后同步本地副本
func (s *MatchService) UpdateStatus(profile *models.Profile, token, matchID, status, notes string) (*matching.Match, error) {
	if !profile.IsStaff() {
		return nil, ErrForbidden
	}
	if !models.IsValidMatchStatus(status) {
		return nil, ErrInvalidStatus
	}

	match, err := s.client.UpdateMatchStatus(token, matchID, status, notes)
	if err != nil {
		metrics.MatchProxyErrors.Inc()
		return nil, err
	}

	if err := s.upsertLocal(profile.ResolvedCompanyID(), match); err != nil {
		logger.GetLogger().WithError(err).Warn("同步匹配结果本地副本失败")
	}
	return match, nil
}

// SyncCompany 拉取租户的全部匹配结果并落本地副本（供定时同步使用）
func (s *MatchService) SyncCompany(token string, companyID uint) (int, error) {
	matches, err := s.client.AllMatches(token)
	if err != nil {
		metrics.MatchProxyErrors.Inc()
		return 0, err
	}

	synced := 0
	for i := range matches {
		if err := s.upsertLocal(companyID, &matches[i]); err != nil {
			logger.GetLogger().WithError(err).Warnf("同步匹配结果 %s 失败，跳过", matches[i].ID)
			continue
		}
		synced++
	}
	return synced, nil
}

// upsertLocal 按 external_id 幂等写入本地副本
func (s *MatchService) upsertLocal(companyID uint, match *matching.Match) error {
	reasons, err := json.Marshal(match.Reasons)
	if err != nil {
		reasons = []byte("[]")
	}

	row := models.Match{
		ExternalID:  match.ID,
		CompanyID:   companyID,
		ApplicantID: match.Applicant.ID,
		ProjectID:   match.Project.ID,
		Score:       match.Score,
		Reasons:     reasons,
		Status:      match.Status,
		Notes:       match.Notes,
	}

	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "reasons", "status", "notes", "updated_at"}),
	}).Create(&row).Error
}
