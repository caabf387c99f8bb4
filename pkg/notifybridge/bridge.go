package notifybridge

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	pingInterval   = 30 * time.Second // 保活心跳间隔
	reconnectDelay = 5 * time.Second  // 断线重连固定间隔，无退避无上限
)

// Notification 桥接层统一的通知结构
type Notification struct {
	ID        string    `json:"id"`
	UserID    uint      `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// PullSource 拉取侧通知来源（REST接口），read状态以它为准
type PullSource interface {
	Fetch() ([]Notification, error)
	MarkRead(id string) error
}

// socketMessage 通知socket的消息帧
type socketMessage struct {
	Type           string          `json:"type"`
	NotificationID string          `json:"notification_id,omitempty"`
	Data           json.RawMessage `json:"data,omitempty"`
}

// Bridge 合并推送通道与拉取来源的通知桥
// 按通知id去重，按创建时间倒序展示。合并采用后到覆盖：
// 推送的旧副本可能在下一次拉取刷新前短暂显示为未读，这是已知的
// 过期窗口而非缺陷
type Bridge struct {
	wsBase string
	userID uint
	token  string
	pull   PullSource
	log    *logrus.Logger

	mu   sync.RWMutex
	byID map[string]Notification

	connMu sync.Mutex
	conn   *websocket.Conn

	stop chan struct{}
	once sync.Once
}

// NewBridge 创建通知桥
func NewBridge(wsBase string, userID uint, token string, pull PullSource, log *logrus.Logger) *Bridge {
	if log == nil {
		log = logrus.New()
	}
	return &Bridge{
		wsBase: wsBase,
		userID: userID,
		token:  token,
		pull:   pull,
		log:    log,
		byID:   make(map[string]Notification),
		stop:   make(chan struct{}),
	}
}

// Start 建立推送连接并保持重连，非阻塞
func (b *Bridge) Start() {
	go b.run()
}

// Stop 关闭桥接
func (b *Bridge) Stop() {
	b.once.Do(func() {
		close(b.stop)
		b.connMu.Lock()
		if b.conn != nil {
			b.conn.Close()
		}
		b.connMu.Unlock()
	})
}

// Refresh 从拉取来源刷新全量通知并合并（拉取副本覆盖推送副本）
func (b *Bridge) Refresh() error {
	notifications, err := b.pull.Fetch()
	if err != nil {
		return err
	}
	b.mu.Lock()
	for _, n := range notifications {
		b.byID[n.ID] = n
	}
	b.mu.Unlock()
	return nil
}

// Notifications 当前去重后的通知，按创建时间倒序
func (b *Bridge) Notifications() []Notification {
	b.mu.RLock()
	result := make([]Notification, 0, len(b.byID))
	for _, n := range b.byID {
		result = append(result, n)
	}
	b.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// UnreadCount 未读数量
func (b *Bridge) UnreadCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, n := range b.byID {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkRead 标记已读：先乐观更新本地，再写拉取来源并通知推送通道
func (b *Bridge) MarkRead(id string) error {
	b.mu.Lock()
	if n, ok := b.byID[id]; ok {
		n.Read = true
		b.byID[id] = n
	}
	b.mu.Unlock()

	if err := b.pull.MarkRead(id); err != nil {
		return err
	}

	b.connMu.Lock()
	defer b.connMu.Unlock()
	if b.conn != nil {
		// 推送通道不可用时忽略，拉取侧已持久化
		_ = b.conn.WriteJSON(socketMessage{Type: "mark_read", NotificationID: id})
	}
	return nil
}

// merge 合并一条推送通知（后到覆盖）
func (b *Bridge) merge(n Notification) {
	b.mu.Lock()
	b.byID[n.ID] = n
	b.mu.Unlock()
}

// run 连接循环：断开后固定间隔重连
func (b *Bridge) run() {
	url := fmt.Sprintf("%s/ws/notifications/%d?token=%s", b.wsBase, b.userID, b.token)
	for {
		select {
		case <-b.stop:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			b.log.WithError(err).Warn("通知socket连接失败，等待重连")
			select {
			case <-b.stop:
				return
			case <-time.After(reconnectDelay):
			}
			continue
		}

		b.connMu.Lock()
		b.conn = conn
		b.connMu.Unlock()

		b.readLoop(conn)

		b.connMu.Lock()
		b.conn = nil
		b.connMu.Unlock()
		conn.Close()

		select {
		case <-b.stop:
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// readLoop 读取推送消息，附带周期性ping保活
func (b *Bridge) readLoop(conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-b.stop:
				return
			case <-ticker.C:
				b.connMu.Lock()
				err := conn.WriteJSON(socketMessage{Type: "ping"})
				b.connMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	for {
		var msg socketMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "notification":
			var n Notification
			if err := json.Unmarshal(msg.Data, &n); err != nil {
				b.log.WithError(err).Warn("解析推送通知失败")
				continue
			}
			b.merge(n)
		case "pong", "connection", "activity":
			// 保活与连接事件不进入通知列表
		}
	}
}
