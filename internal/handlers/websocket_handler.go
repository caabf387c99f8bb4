package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ahmp/internal/database"
	"ahmp/internal/services"
	"ahmp/pkg/config"
	"ahmp/pkg/jwt"
	"ahmp/pkg/logger"
	"ahmp/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// 可订阅变更推送的表
var feedTables = map[string]bool{
	"applicants":   true,
	"projects":     true,
	"applications": true,
}

// WebSocketHandler WebSocket处理器
// 两类连接：用户通知推送和表级变更推送，均从查询参数取token认证
type WebSocketHandler struct {
	upgrader            websocket.Upgrader
	log                 *logrus.Logger
	jwtManager          *jwt.JWTManager
	userService         *services.UserService
	profileService      *services.ProfileService
	notificationService *services.NotificationService
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(db *gorm.DB, notificationService *services.NotificationService) *WebSocketHandler {
	cfg := config.GetConfig()
	allowedOrigins := cfg.CORS.AllowOrigins

	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")

				for _, allowed := range allowedOrigins {
					if allowed == "*" {
						return true
					}
				}

				// Origin为空视为同源请求
				if origin == "" {
					return true
				}

				for _, allowed := range allowedOrigins {
					if matchOrigin(origin, allowed) {
						return true
					}
				}

				logger.GetLogger().Warnf("WebSocket连接被拒绝，非法Origin: %s", origin)
				return false
			},
			ReadBufferSize:  1024 * 32,
			WriteBufferSize: 1024 * 32,
		},
		log:                 logger.GetLogger(),
		jwtManager:          jwt.GetJWTManager(), // 使用全局JWT管理器
		userService:         services.NewUserService(db),
		profileService:      services.NewProfileService(db),
		notificationService: notificationService,
	}
}

// authenticate 从查询参数验证token并解析档案
func (h *WebSocketHandler) authenticate(c *gin.Context) (*jwt.JWTClaims, bool) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "缺少认证令牌"})
		return nil, false
	}

	claims, err := h.jwtManager.VerifyToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的令牌"})
		return nil, false
	}
	return claims, true
}

// Notifications 用户通知推送连接
// 客户端发送 {"type":"ping"} 保活，服务端回 {"type":"pong"}；
// {"type":"mark_read","notification_id":...} 落库已读标记
func (h *WebSocketHandler) Notifications(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "用户ID格式错误"})
		return
	}

	claims, ok := h.authenticate(c)
	if !ok {
		return
	}

	// 只能订阅本人的通知通道
	if claims.UserID != uint(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "无权订阅其他用户的通知"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	metrics.WebSocketConnections.Inc()
	defer metrics.WebSocketConnections.Dec()

	h.log.WithFields(logrus.Fields{
		"user_id":     claims.UserID,
		"remote_addr": c.ClientIP(),
	}).Info("Notification WebSocket connection established")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsub := database.GetFeed().SubscribeUser(claims.UserID)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		h.log.WithError(err).Error("Failed to subscribe to Redis channel")
		return
	}

	const writeTimeout = 10 * time.Second

	// 连接建立确认
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(gin.H{"type": "connection", "status": "connected"}); err != nil {
		return
	}

	// 读循环处理客户端的ping和mark_read
	go h.notificationReadPump(conn, claims.UserID, cancel)

	ch := pubsub.Channel()

	pingTicker := time.NewTicker(60 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.log.WithError(err).Error("Failed to send ping")
				return
			}

		case msg := <-ch:
			if msg == nil {
				continue
			}

			var payload map[string]interface{}
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.log.WithError(err).Error("Failed to parse notification message")
				continue
			}

			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(payload); err != nil {
				h.log.WithError(err).Error("Failed to send message to client")
				return
			}
		}
	}
}

// notificationReadPump 处理通知连接上的客户端消息
func (h *WebSocketHandler) notificationReadPump(conn *websocket.Conn, userID uint, cancel context.CancelFunc) {
	defer cancel()

	pongWait := 300 * time.Second
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg struct {
			Type           string `json:"type"`
			NotificationID string `json:"notification_id"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.WithError(err).Error("WebSocket unexpected close")
			}
			break
		}

		conn.SetReadDeadline(time.Now().Add(pongWait))

		switch msg.Type {
		case "ping":
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(gin.H{"type": "pong"}); err != nil {
				return
			}
		case "mark_read":
			if msg.NotificationID == "" {
				continue
			}
			if err := h.notificationService.MarkRead(userID, msg.NotificationID); err != nil {
				h.log.WithError(err).Warn("Failed to mark notification read via WebSocket")
			}
		}
	}
}

// Feed 表级变更推送连接
// 按认证用户的租户订阅对应频道，前端列表据此做增量更新
func (h *WebSocketHandler) Feed(c *gin.Context) {
	table := c.Param("table")
	if !feedTables[table] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "不支持订阅该表"})
		return
	}

	claims, ok := h.authenticate(c)
	if !ok {
		return
	}

	user, err := h.userService.GetByID(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "用户不存在"})
		return
	}

	profile := h.profileService.Resolve(user)
	companyID := profile.ResolvedCompanyID()
	if companyID == 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "尚未归属任何公司"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	metrics.WebSocketConnections.Inc()
	defer metrics.WebSocketConnections.Dec()

	h.log.WithFields(logrus.Fields{
		"user_id":    claims.UserID,
		"company_id": companyID,
		"table":      table,
	}).Info("Feed WebSocket connection established")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsub := database.GetFeed().Subscribe(table, companyID)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		h.log.WithError(err).Error("Failed to subscribe to Redis channel")
		return
	}

	go h.readPump(conn, cancel)

	ch := pubsub.Channel()

	const writeTimeout = 10 * time.Second
	pingTicker := time.NewTicker(60 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.log.WithError(err).Error("Failed to send ping")
				return
			}

		case msg := <-ch:
			if msg == nil {
				continue
			}

			var event map[string]interface{}
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				h.log.WithError(err).Error("Failed to parse feed event")
				continue
			}

			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(event); err != nil {
				h.log.WithError(err).Error("Failed to send event to client")
				return
			}
		}
	}
}

// readPump 排空客户端消息，连接断开时取消上下文
func (h *WebSocketHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	pongWait := 300 * time.Second
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.WithError(err).Error("WebSocket unexpected close")
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

// matchOrigin 检查origin是否匹配allowed模式
// 支持精确匹配和通配符匹配（如 *.example.com）
func matchOrigin(origin, allowed string) bool {
	if origin == allowed {
		return true
	}

	if strings.HasPrefix(allowed, "*.") {
		domain := allowed[2:]

		originHost := origin
		if idx := strings.Index(origin, "://"); idx != -1 {
			originHost = origin[idx+3:]
		}
		if idx := strings.Index(originHost, ":"); idx != -1 {
			originHost = originHost[:idx]
		}

		if originHost == domain {
			return true
		}
		if strings.HasSuffix(originHost, "."+domain) {
			return true
		}
	}

	return false
}
