package models

import "gorm.io/datatypes"

// Match 匹配结果的本地副本
// 评分由外部匹配服务产出，这里只保存展示用数据和审核状态
type Match struct {
	BaseModel
	ExternalID  string         `json:"external_id" gorm:"unique;not null;size:64;index"`
	CompanyID   uint           `json:"company_id" gorm:"not null;index"`
	ApplicantID uint           `json:"applicant_id" gorm:"not null;index"`
	ProjectID   uint           `json:"project_id" gorm:"not null;index"`
	Score       int            `json:"score"` // 百分制
	Reasons     datatypes.JSON `json:"reasons,omitempty" gorm:"type:jsonb"`
	Status      string         `json:"status" gorm:"default:'pending';size:20"`
	Notes       string         `json:"notes" gorm:"type:text"`
}

// TableName 表名
func (m *Match) TableName() string {
	return "matches"
}

// 匹配状态常量
const (
	MatchStatusPending  = "pending"
	MatchStatusReviewed = "reviewed"
	MatchStatusApproved = "approved"
	MatchStatusRejected = "rejected"
)

// IsValidMatchStatus 检查匹配状态是否有效
func IsValidMatchStatus(status string) bool {
	switch status {
	case MatchStatusPending, MatchStatusReviewed, MatchStatusApproved, MatchStatusRejected:
		return true
	default:
		return false
	}
}
