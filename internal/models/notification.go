package models

import "time"

// Notification 用户通知
// 主键为字符串ID，推送和拉取两条链路按此去重
type Notification struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	Title     string    `json:"title" gorm:"not null;size:200"`
	Message   string    `json:"message" gorm:"type:text"`
	Type      string    `json:"type" gorm:"default:'info';size:20"`
	Read      bool      `json:"read" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 表名
func (n *Notification) TableName() string {
	return "notifications"
}

// 通知类型常量
const (
	NotificationTypeInfo        = "info"
	NotificationTypeApplication = "application"
	NotificationTypeMatch       = "match"
	NotificationTypeSystem      = "system"
)
