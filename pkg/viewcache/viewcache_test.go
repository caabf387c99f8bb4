package viewcache

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedPage struct {
	Items []string `json:"items"`
	Total int64    `json:"total"`
}

func TestKeyLayout(t *testing.T) {
	client, _ := redismock.NewClientMock()
	cache := NewViewCache(client, "ahmp", time.Minute)

	// 键按 表+租户 分组，Invalidate 按该前缀整组失效
	assert.Equal(t, "ahmp:view:applicants:10:list:pending:1:20", cache.ListKey("applicants", 10, "pending:1:20"))
	assert.Equal(t, "ahmp:view:projects:10:detail:7", cache.DetailKey("projects", 10, 7))
}

func TestGetMissReturnsFalse(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewViewCache(client, "ahmp", time.Minute)

	mock.ExpectGet("ahmp:view:applicants:10:list:q").RedisNil()

	var dst cachedPage
	assert.False(t, cache.Get("ahmp:view:applicants:10:list:q", &dst))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetThenGetRoundTrip(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewViewCache(client, "ahmp", time.Minute)

	key := cache.ListKey("applicants", 10, "all:1:20")
	page := cachedPage{Items: []string{"陈伟", "王丽"}, Total: 2}
	data, err := json.Marshal(page)
	require.NoError(t, err)

	mock.ExpectSet(key, data, time.Minute).SetVal("OK")
	mock.ExpectGet(key).SetVal(string(data))

	require.NoError(t, cache.Set(key, page))

	var dst cachedPage
	assert.True(t, cache.Get(key, &dst))
	assert.Equal(t, page, dst)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidateScansAndDeletes(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewViewCache(client, "ahmp", time.Minute)

	// 两批游标遍历，每批命中的键都被删除
	mock.ExpectScan(0, "ahmp:view:applicants:10:*", scanBatch).
		SetVal([]string{"ahmp:view:applicants:10:list:a", "ahmp:view:applicants:10:detail:1"}, 42)
	mock.ExpectDel("ahmp:view:applicants:10:list:a", "ahmp:view:applicants:10:detail:1").SetVal(2)
	mock.ExpectScan(42, "ahmp:view:applicants:10:*", scanBatch).
		SetVal([]string{"ahmp:view:applicants:10:detail:2"}, 0)
	mock.ExpectDel("ahmp:view:applicants:10:detail:2").SetVal(1)

	require.NoError(t, cache.Invalidate("applicants", 10))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidateEmptyScanSkipsDelete(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewViewCache(client, "ahmp", time.Minute)

	mock.ExpectScan(0, "ahmp:view:projects:99:*", scanBatch).SetVal([]string{}, 0)

	require.NoError(t, cache.Invalidate("projects", 99))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDefaultsApplied(t *testing.T) {
	client, _ := redismock.NewClientMock()
	cache := NewViewCache(client, "", 0)

	assert.Equal(t, "ahmp:view:applicants:1:detail:2", cache.DetailKey("applicants", 1, 2))
	assert.Equal(t, 60*time.Second, cache.ttl)
}
