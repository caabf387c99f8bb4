package models

// Applicant 住房申请人
type Applicant struct {
	BaseModel
	CompanyID         uint     `json:"company_id" gorm:"not null;index"`
	CreatedBy         uint     `json:"created_by" gorm:"not null;index"`
	UserID            *uint    `json:"user_id" gorm:"index"` // 关联的注册用户，可为空
	FirstName         string   `json:"first_name" gorm:"not null;size:50" validate:"required,max=50"`
	LastName          string   `json:"last_name" gorm:"not null;size:50" validate:"required,max=50"`
	Email             string   `json:"email" gorm:"not null;size:100" validate:"required,email"`
	Phone             *string  `json:"phone" gorm:"size:20"`
	HouseholdSize     int      `json:"household_size" gorm:"default:1" validate:"min=1,max=20"`
	Income            float64  `json:"income" validate:"min=0"`
	AMIPercent        int      `json:"ami_percent" validate:"min=0,max=200"`
	PreferredLocation string   `json:"preferred_location" gorm:"size:100"`
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
	Status            string   `json:"status" gorm:"default:'pending';size:20"`
}

// TableName 表名
func (a *Applicant) TableName() string {
	return "applicants"
}

// 申请人状态常量
const (
	ApplicantStatusPending     = "pending"
	ApplicantStatusActive      = "active"
	ApplicantStatusApproved    = "approved"
	ApplicantStatusRejected    = "rejected"
	ApplicantStatusUnderReview = "under_review"
)

// IsValidApplicantStatus 检查申请人状态是否有效
func IsValidApplicantStatus(status string) bool {
	switch status {
	case ApplicantStatusPending, ApplicantStatusActive, ApplicantStatusApproved,
		ApplicantStatusRejected, ApplicantStatusUnderReview:
		return true
	default:
		return false
	}
}
