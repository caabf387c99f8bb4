package livefeed

import (
	"encoding/json"
	"sync"

	"ahmp/pkg/feed"

	"github.com/sirupsen/logrus"
)

// Row 变更事件中的行数据，按 id 字段去重/替换
type Row map[string]interface{}

func (r Row) id() (float64, bool) {
	v, ok := r["id"]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// LiveList 跟随变更事件的实时列表
// INSERT 头插，UPDATE 按id替换，DELETE 按id移除；
// 除"最新插入在最前"外不保证顺序，同行并发更新按事件到达顺序覆盖
type LiveList struct {
	mu    sync.RWMutex
	items []Row
}

// NewLiveList 以初始数据创建实时列表
func NewLiveList(initial []Row) *LiveList {
	items := make([]Row, len(initial))
	copy(items, initial)
	return &LiveList{items: items}
}

// Apply 应用一条变更事件
func (l *LiveList) Apply(event feed.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch event.EventType {
	case feed.EventInsert:
		row := decodeRow(event.New)
		if row == nil {
			return
		}
		l.items = append([]Row{row}, l.items...)

	case feed.EventUpdate:
		row := decodeRow(event.New)
		if row == nil {
			return
		}
		id, ok := row.id()
		if !ok {
			return
		}
		for i, item := range l.items {
			if existing, ok := item.id(); ok && existing == id {
				l.items[i] = row
				return
			}
		}

	case feed.EventDelete:
		row := decodeRow(event.Old)
		if row == nil {
			return
		}
		id, ok := row.id()
		if !ok {
			return
		}
		for i, item := range l.items {
			if existing, ok := item.id(); ok && existing == id {
				l.items = append(l.items[:i], l.items[i+1:]...)
				return
			}
		}
	}
}

// Snapshot 返回当前列表副本
func (l *LiveList) Snapshot() []Row {
	l.mu.RLock()
	defer l.mu.RUnlock()

	items := make([]Row, len(l.items))
	copy(items, l.items)
	return items
}

// Len 当前列表长度
func (l *LiveList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

func decodeRow(raw json.RawMessage) Row {
	if len(raw) == 0 {
		return nil
	}
	var row Row
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil
	}
	return row
}

// Watcher 订阅变更频道并驱动LiveList
type Watcher struct {
	list *LiveList
	stop chan struct{}
	once sync.Once
	log  *logrus.Logger
}

// Watch 订阅指定表+租户的变更并返回实时列表的监视器
// 调用方负责在不再使用时调用 Stop 退订
func Watch(f *feed.RedisFeed, table string, companyID uint, initial []Row, log *logrus.Logger) *Watcher {
	if log == nil {
		log = logrus.New()
	}

	w := &Watcher{
		list: NewLiveList(initial),
		stop: make(chan struct{}),
		log:  log,
	}

	pubsub := f.Subscribe(table, companyID)
	ch := pubsub.Channel()

	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-w.stop:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event feed.Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					w.log.WithError(err).Warn("解析变更事件失败")
					continue
				}
				w.list.Apply(event)
			}
		}
	}()

	return w
}

// List 监视中的实时列表
func (w *Watcher) List() *LiveList {
	return w.list
}

// Stop 停止监视并退订
func (w *Watcher) Stop() {
	w.once.Do(func() {
		close(w.stop)
	})
}
