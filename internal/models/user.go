package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
)

// User 用户模型（认证主体）
// 注册时的元数据（期望角色、公司key）暂存在 signup_meta，
// 档案行由解析器首次访问时按元数据惰性创建
type User struct {
	BaseModel
	Username     string         `json:"username" gorm:"unique;not null;size:50;index"`
	Email        string         `json:"email" gorm:"unique;not null;size:100;index"`
	PasswordHash string         `json:"-" gorm:"not null;size:255"`
	Name         string         `json:"name" gorm:"not null;size:100"`
	Phone        *string        `json:"phone" gorm:"size:20"`
	Status       string         `json:"status" gorm:"default:'active';size:20"`
	SignupMeta   datatypes.JSON `json:"signup_meta,omitempty" gorm:"type:jsonb"`
	LastLoginAt  *time.Time     `json:"last_login_at"`
}

// TableName 表名
func (u *User) TableName() string {
	return "users"
}

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
	UserStatusLocked   = "locked"
)

// SignupMetadata 注册时携带的元数据
type SignupMetadata struct {
	Role       string `json:"role,omitempty"`
	CompanyKey string `json:"company_key,omitempty"`
}

// SetPassword 设置密码 - 数据操作方法
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword 验证密码 - 数据操作方法
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}
