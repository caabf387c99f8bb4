package notifybridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// stubPullSource 可编程的拉取来源
type stubPullSource struct {
	notifications []Notification
	fetchErr      error
	markedRead    []string
	markReadErr   error
}

func (s *stubPullSource) Fetch() ([]Notification, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.notifications, nil
}

func (s *stubPullSource) MarkRead(id string) error {
	if s.markReadErr != nil {
		return s.markReadErr
	}
	s.markedRead = append(s.markedRead, id)
	return nil
}

func notif(id string, createdAt time.Time, read bool) Notification {
	return Notification{
		ID:        id,
		UserID:    1,
		Title:     "测试通知",
		Read:      read,
		CreatedAt: createdAt,
	}
}

func TestBridgeDeduplicatesByID(t *testing.T) {
	now := time.Now()
	pull := &stubPullSource{notifications: []Notification{
		notif("a", now, true),
		notif("b", now.Add(-time.Minute), false),
	}}
	b := NewBridge("ws://localhost", 1, "token", pull, nil)

	// 推送侧先送达同一条的旧副本
	b.merge(notif("a", now, false))
	assert.NoError(t, b.Refresh())

	notifications := b.Notifications()
	assert.Len(t, notifications, 2)

	// 拉取副本覆盖推送副本，read状态以拉取为准
	assert.Equal(t, "a", notifications[0].ID)
	assert.True(t, notifications[0].Read)
}

func TestBridgeSortsByCreatedAtDesc(t *testing.T) {
	now := time.Now()
	pull := &stubPullSource{notifications: []Notification{
		notif("old", now.Add(-2*time.Hour), false),
		notif("new", now, false),
		notif("mid", now.Add(-time.Hour), false),
	}}
	b := NewBridge("ws://localhost", 1, "token", pull, nil)
	assert.NoError(t, b.Refresh())

	notifications := b.Notifications()
	assert.Equal(t, []string{"new", "mid", "old"},
		[]string{notifications[0].ID, notifications[1].ID, notifications[2].ID})
}

func TestBridgeUnreadCount(t *testing.T) {
	now := time.Now()
	pull := &stubPullSource{notifications: []Notification{
		notif("a", now, false),
		notif("b", now, true),
		notif("c", now, false),
	}}
	b := NewBridge("ws://localhost", 1, "token", pull, nil)
	assert.NoError(t, b.Refresh())

	assert.Equal(t, 2, b.UnreadCount())
}

func TestMarkReadOptimisticAndDualWrite(t *testing.T) {
	now := time.Now()
	pull := &stubPullSource{notifications: []Notification{notif("a", now, false)}}
	b := NewBridge("ws://localhost", 1, "token", pull, nil)
	assert.NoError(t, b.Refresh())

	assert.NoError(t, b.MarkRead("a"))

	// 本地立即翻转，拉取来源也已写入
	assert.Equal(t, 0, b.UnreadCount())
	assert.Equal(t, []string{"a"}, pull.markedRead)
}

func TestMarkReadPropagatesPullError(t *testing.T) {
	now := time.Now()
	pull := &stubPullSource{
		notifications: []Notification{notif("a", now, false)},
		markReadErr:   assert.AnError,
	}
	b := NewBridge("ws://localhost", 1, "token", pull, nil)
	assert.NoError(t, b.Refresh())

	err := b.MarkRead("a")
	assert.Error(t, err)

	// 乐观更新已生效，本地仍显示已读
	assert.Equal(t, 0, b.UnreadCount())
}

func TestRefreshPropagatesFetchError(t *testing.T) {
	pull := &stubPullSource{fetchErr: assert.AnError}
	b := NewBridge("ws://localhost", 1, "token", pull, nil)

	assert.Error(t, b.Refresh())
	assert.Empty(t, b.Notifications())
}

func TestStopIsIdempotent(t *testing.T) {
	b := NewBridge("ws://localhost", 1, "token", &stubPullSource{}, nil)
	b.Stop()
	b.Stop()
}
