package models

import "gorm.io/datatypes"

// Project 保障房项目
// AMI档位和效果图以JSON数组存储
type Project struct {
	BaseModel
	CompanyID       uint           `json:"company_id" gorm:"not null;index"`
	CreatedBy       uint           `json:"created_by" gorm:"not null;index"`
	Name            string         `json:"name" gorm:"not null;size:100" validate:"required,max=100"`
	Description     string         `json:"description" gorm:"type:text"`
	AddressLine     string         `json:"address_line" gorm:"size:200"`
	City            string         `json:"city" gorm:"size:100"`
	State           string         `json:"state" gorm:"size:50"`
	ZipCode         string         `json:"zip_code" gorm:"size:20"`
	TotalUnits      int            `json:"total_units" validate:"min=0"`
	AffordableUnits int            `json:"affordable_units" validate:"min=0"`
	AMIBands        datatypes.JSON `json:"ami_bands,omitempty" gorm:"type:jsonb"`
	Latitude        *float64       `json:"latitude"`
	Longitude       *float64       `json:"longitude"`
	Images          datatypes.JSON `json:"images,omitempty" gorm:"type:jsonb"`
	Status          string         `json:"status" gorm:"default:'planning';size:20"`
}

// TableName 表名
func (p *Project) TableName() string {
	return "projects"
}

// 项目状态常量
const (
	ProjectStatusPlanning     = "planning"
	ProjectStatusApproved     = "approved"
	ProjectStatusConstruction = "construction"
	ProjectStatusActive       = "active"
	ProjectStatusCompleted    = "completed"
)

// IsValidProjectStatus 检查项目状态是否有效
func IsValidProjectStatus(status string) bool {
	switch status {
	case ProjectStatusPlanning, ProjectStatusApproved, ProjectStatusConstruction,
		ProjectStatusActive, ProjectStatusCompleted:
		return true
	default:
		return false
	}
}
