package models

// Profile 用户档案，与认证主体一一对应
// 角色与租户归属以此表为准；company_id 在完成归属前为空
type Profile struct {
	BaseModel
	UserID    uint   `json:"user_id" gorm:"unique;not null;index"`
	Email     string `json:"email" gorm:"size:100"`
	FullName  string `json:"full_name" gorm:"size:100"`
	Role      string `json:"role" gorm:"default:'buyer';size:20"`
	CompanyID *uint  `json:"company_id" gorm:"index"`
}

// TableName 表名
func (p *Profile) TableName() string {
	return "profiles"
}

// 角色常量
const (
	RoleAdmin     = "admin"
	RoleDeveloper = "developer"
	RoleLender    = "lender"
	RoleBuyer     = "buyer"
)

// IsValidRole 检查角色是否有效
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleDeveloper, RoleLender, RoleBuyer:
		return true
	default:
		return false
	}
}

// ResolvedCompanyID 返回档案的租户ID，未归属时为0
func (p *Profile) ResolvedCompanyID() uint {
	if p.CompanyID != nil {
		return *p.CompanyID
	}
	return 0
}

// IsStaff 开发商和管理员视为租户员工（可做状态流转）
func (p *Profile) IsStaff() bool {
	return p.Role == RoleDeveloper || p.Role == RoleAdmin
}
