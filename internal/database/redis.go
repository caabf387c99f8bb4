package database

import (
	"ahmp/pkg/config"
	"ahmp/pkg/feed"
	"ahmp/pkg/viewcache"
	"sync"
	"time"
)

var (
	feedInstance *feed.RedisFeed
	feedOnce     sync.Once

	viewCacheInstance *viewcache.ViewCache
	viewCacheOnce     sync.Once
)

// GetFeed 获取变更推送的单例实例
func GetFeed() *feed.RedisFeed {
	feedOnce.Do(func() {
		cfg := config.GetConfig()
		feedInstance = feed.NewRedisFeed(&feed.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
	})
	return feedInstance
}

// GetViewCache 获取视图缓存的单例实例（复用变更推送的Redis连接）
func GetViewCache() *viewcache.ViewCache {
	viewCacheOnce.Do(func() {
		cfg := config.GetConfig()
		viewCacheInstance = viewcache.NewViewCache(
			GetFeed().GetClient(),
			cfg.Redis.Prefix,
			time.Duration(cfg.Cache.TTLSeconds)*time.Second,
		)
	})
	return viewCacheInstance
}

// CloseFeed 关闭Redis连接
func CloseFeed() error {
	if feedInstance != nil {
		return feedInstance.Close()
	}
	return nil
}
