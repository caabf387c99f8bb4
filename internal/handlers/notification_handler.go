package handlers

import (
	"strconv"

	"ahmp/internal/services"
	"ahmp/pkg/response"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	service *services.NotificationService
}

func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List 当前用户的通知列表
func (h *NotificationHandler) List(c *gin.Context) {
	profile := getCurrentProfile(c)

	limit := 50
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}

	response.Success(c, gin.H{
		"notifications": h.service.ListForUser(profile.UserID, limit),
		"unread_count":  h.service.UnreadCount(profile.UserID),
	})
}

// MarkRead 标记单条已读
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	profile := getCurrentProfile(c)
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, "通知ID不能为空")
		return
	}

	if err := h.service.MarkRead(profile.UserID, id); err != nil {
		response.ServerError(c, "标记已读失败")
		return
	}

	response.SuccessWithMessage(c, "已标记为已读", nil)
}

// MarkAllRead 全部标记已读
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	profile := getCurrentProfile(c)

	if err := h.service.MarkAllRead(profile.UserID); err != nil {
		response.ServerError(c, "标记已读失败")
		return
	}

	response.SuccessWithMessage(c, "已全部标记为已读", nil)
}
