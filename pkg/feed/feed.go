package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// 变更事件类型
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// Event 行级变更事件
// new/old 携带变更前后的整行数据，按表名+租户ID过滤投递
type Event struct {
	EventType string          `json:"eventType"`
	Table     string          `json:"table"`
	CompanyID uint            `json:"company_id"`
	New       json.RawMessage `json:"new,omitempty"`
	Old       json.RawMessage `json:"old,omitempty"`
}

// Config Redis配置
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

// RedisFeed 基于Redis发布订阅的变更推送
type RedisFeed struct {
	client *redis.Client
	prefix string
}

// NewRedisFeed 创建变更推送实例
func NewRedisFeed(config *Config) *RedisFeed {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})

	prefix := config.Prefix
	if prefix == "" {
		prefix = "ahmp"
	}

	return &RedisFeed{
		client: client,
		prefix: prefix,
	}
}

// Close 关闭Redis连接
func (f *RedisFeed) Close() error {
	return f.client.Close()
}

// Ping 测试Redis连接
func (f *RedisFeed) Ping() error {
	ctx := context.Background()
	return f.client.Ping(ctx).Err()
}

// GetClient 获取Redis客户端（用于高级操作）
func (f *RedisFeed) GetClient() *redis.Client {
	return f.client
}

// Publish 发布行级变更事件到表频道
func (f *RedisFeed) Publish(table string, companyID uint, eventType string, newRow, oldRow interface{}) error {
	ctx := context.Background()

	event := Event{
		EventType: eventType,
		Table:     table,
		CompanyID: companyID,
	}

	if newRow != nil {
		data, err := json.Marshal(newRow)
		if err != nil {
			return fmt.Errorf("序列化变更数据失败: %v", err)
		}
		event.New = data
	}
	if oldRow != nil {
		data, err := json.Marshal(oldRow)
		if err != nil {
			return fmt.Errorf("序列化变更数据失败: %v", err)
		}
		event.Old = data
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %v", err)
	}

	if err := f.client.Publish(ctx, f.TableChannel(table, companyID), payload).Err(); err != nil {
		return fmt.Errorf("发布变更事件失败: %v", err)
	}

	return nil
}

// Subscribe 订阅指定表+租户的变更频道
func (f *RedisFeed) Subscribe(table string, companyID uint) *redis.PubSub {
	ctx := context.Background()
	return f.client.Subscribe(ctx, f.TableChannel(table, companyID))
}

// PublishToUser 发布消息到用户通知频道
func (f *RedisFeed) PublishToUser(userID uint, message interface{}) error {
	ctx := context.Background()

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %v", err)
	}

	if err := f.client.Publish(ctx, f.UserChannel(userID), data).Err(); err != nil {
		return fmt.Errorf("发布通知失败: %v", err)
	}

	return nil
}

// SubscribeUser 订阅用户通知频道
func (f *RedisFeed) SubscribeUser(userID uint) *redis.PubSub {
	ctx := context.Background()
	return f.client.Subscribe(ctx, f.UserChannel(userID))
}

// TableChannel 表变更频道名
func (f *RedisFeed) TableChannel(table string, companyID uint) string {
	return fmt.Sprintf("%s:feed:%s:%d", f.prefix, table, companyID)
}

// UserChannel 用户通知频道名
func (f *RedisFeed) UserChannel(userID uint) string {
	return fmt.Sprintf("%s:notify:%d", f.prefix, userID)
}
