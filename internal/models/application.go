package models

import "gorm.io/datatypes"

// Application 住房申请，关联一个申请人和一个项目
type Application struct {
	BaseModel
	CompanyID         uint           `json:"company_id" gorm:"not null;index"`
	CreatedBy         uint           `json:"created_by" gorm:"not null;index"`
	ApplicantID       uint           `json:"applicant_id" gorm:"not null;index" validate:"required"`
	ProjectID         uint           `json:"project_id" gorm:"not null;index" validate:"required"`
	Income            float64        `json:"income" validate:"min=0"`
	HouseholdSize     int            `json:"household_size" gorm:"default:1" validate:"min=1,max=20"`
	MoveInPreferences datatypes.JSON `json:"move_in_preferences,omitempty" gorm:"type:jsonb"`
	Status            string         `json:"status" gorm:"default:'submitted';size:20"`
	Notes             string         `json:"notes" gorm:"type:text"`
}

// TableName 表名
func (a *Application) TableName() string {
	return "applications"
}

// 申请状态常量
const (
	ApplicationStatusSubmitted   = "submitted"
	ApplicationStatusUnderReview = "under_review"
	ApplicationStatusApproved    = "approved"
	ApplicationStatusRejected    = "rejected"
	ApplicationStatusWithdrawn   = "withdrawn"
)

// IsValidApplicationStatus 检查申请状态是否有效
func IsValidApplicationStatus(status string) bool {
	switch status {
	case ApplicationStatusSubmitted, ApplicationStatusUnderReview, ApplicationStatusApproved,
		ApplicationStatusRejected, ApplicationStatusWithdrawn:
		return true
	default:
		return false
	}
}
