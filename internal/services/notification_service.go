package services

import (
	"ahmp/internal/models"
	"ahmp/pkg/feed"
	"ahmp/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationService 站内通知
// 落库后再向用户的Redis通道推送一份，供websocket在线下发
type NotificationService struct {
	db   *gorm.DB
	feed *feed.RedisFeed
}

// NewNotificationService 创建通知服务
func NewNotificationService(db *gorm.DB, f *feed.RedisFeed) *NotificationService {
	return &NotificationService{db: db, feed: f}
}

// Notify 发送通知给指定用户
func (s *NotificationService) Notify(userID uint, title, message, notifyType string) (*models.Notification, error) {
	if notifyType == "" {
		notifyType = models.NotificationTypeInfo
	}

	notification := &models.Notification{
		ID:      uuid.New().String(),
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    notifyType,
	}
	if err := s.db.Create(notification).Error; err != nil {
		return nil, err
	}

	s.push(notification)
	return notification, nil
}

// ListForUser 查询用户的通知（读路径降级）
func (s *NotificationService) ListForUser(userID uint, limit int) []*models.Notification {
	if limit <= 0 {
		limit = 50
	}
	var notifications []*models.Notification
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		logger.GetLogger().WithError(err).Error("查询通知列表失败")
		return []*models.Notification{}
	}
	return notifications
}

// UnreadCount 未读数（读路径降级）
func (s *NotificationService) UnreadCount(userID uint) int64 {
	var count int64
	err := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		logger.GetLogger().WithError(err).Error("统计未读通知失败")
		return 0
	}
	return count
}

// MarkRead 标记单条已读（只能标记本人的通知）
func (s *NotificationService) MarkRead(userID uint, id string) error {
	return s.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true).Error
}

// MarkAllRead 全部标记已读
func (s *NotificationService) MarkAllRead(userID uint) error {
	return s.db.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true).Error
}

// push 推送到用户通道（推送失败不影响落库结果）
func (s *NotificationService) push(notification *models.Notification) {
	if s.feed == nil {
		return
	}
	payload := map[string]interface{}{
		"type": "notification",
		"data": notification,
	}
	if err := s.feed.PublishToUser(notification.UserID, payload); err != nil {
		logger.GetLogger().WithError(err).Warn("推送通知到用户通道失败")
	}
}
