package viewcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ViewCache 列表/详情视图缓存
// 写操作成功后按表+租户失效，读路径未命中时回源数据库
type ViewCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewViewCache 创建视图缓存
func NewViewCache(client *redis.Client, prefix string, ttl time.Duration) *ViewCache {
	if prefix == "" {
		prefix = "ahmp"
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &ViewCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// ListKey 列表视图键（包含查询条件，避免不同筛选互相污染）
func (c *ViewCache) ListKey(table string, companyID uint, qualifier string) string {
	return fmt.Sprintf("%s:view:%s:%d:list:%s", c.prefix, table, companyID, qualifier)
}

// DetailKey 详情视图键
func (c *ViewCache) DetailKey(table string, companyID uint, id uint) string {
	return fmt.Sprintf("%s:view:%s:%d:detail:%d", c.prefix, table, companyID, id)
}

// Get 读取缓存并反序列化到dst，命中返回true
func (c *ViewCache) Get(key string, dst interface{}) bool {
	ctx := context.Background()
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false
	}
	return true
}

// Set 序列化并写入缓存
func (c *ViewCache) Set(key string, value interface{}) error {
	ctx := context.Background()
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("序列化缓存数据失败: %v", err)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// 单次SCAN的批量大小
const scanBatch = 100

// Invalidate 使指定表+租户的全部视图失效（列表页和详情页一起失效）
// 用SCAN分批遍历，避免键量增长后阻塞Redis
func (c *ViewCache) Invalidate(table string, companyID uint) error {
	ctx := context.Background()
	pattern := fmt.Sprintf("%s:view:%s:%d:*", c.prefix, table, companyID)

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("查找缓存键失败: %v", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("删除缓存键失败: %v", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
