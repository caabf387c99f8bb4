package models

// Company 租户模型 - 贫血模型，只包含数据结构
// 所有业务数据通过 company_id 归属到租户
type Company struct {
	BaseModel
	Name  string `json:"name" gorm:"not null;size:100"`
	Key   string `json:"key" gorm:"unique;not null;size:50;index"`
	Plan  string `json:"plan" gorm:"default:'starter';size:20"`
	Seats int    `json:"seats" gorm:"default:5"`
}

// TableName 表名
func (c *Company) TableName() string {
	return "companies"
}

// 订阅计划常量
const (
	CompanyPlanStarter    = "starter"
	CompanyPlanGrowth     = "growth"
	CompanyPlanEnterprise = "enterprise"
)
