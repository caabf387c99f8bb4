package livefeed

import (
	"encoding/json"
	"testing"

	"ahmp/pkg/feed"

	"github.com/stretchr/testify/assert"
)

func row(t *testing.T, v map[string]interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	assert.NoError(t, err)
	return data
}

func TestLiveListInsertPrepends(t *testing.T) {
	list := NewLiveList([]Row{
		{"id": float64(1), "name": "老张"},
	})

	list.Apply(feed.Event{
		EventType: feed.EventInsert,
		New:       row(t, map[string]interface{}{"id": 2, "name": "小王"}),
	})

	items := list.Snapshot()
	assert.Len(t, items, 2)
	id, ok := items[0].id()
	assert.True(t, ok)
	assert.Equal(t, float64(2), id)
}

func TestLiveListUpdateReplacesByID(t *testing.T) {
	list := NewLiveList([]Row{
		{"id": float64(1), "status": "pending"},
		{"id": float64(2), "status": "pending"},
	})

	list.Apply(feed.Event{
		EventType: feed.EventUpdate,
		New:       row(t, map[string]interface{}{"id": 2, "status": "approved"}),
	})

	items := list.Snapshot()
	assert.Len(t, items, 2)
	assert.Equal(t, "approved", items[1]["status"])
	assert.Equal(t, "pending", items[0]["status"])
}

func TestLiveListDeleteRemovesByID(t *testing.T) {
	list := NewLiveList([]Row{
		{"id": float64(1)},
		{"id": float64(2)},
		{"id": float64(3)},
	})

	list.Apply(feed.Event{
		EventType: feed.EventDelete,
		Old:       row(t, map[string]interface{}{"id": 2}),
	})

	assert.Equal(t, 2, list.Len())
	for _, item := range list.Snapshot() {
		id, _ := item.id()
		assert.NotEqual(t, float64(2), id)
	}
}

func TestLiveListUpdateUnknownIDIsNoop(t *testing.T) {
	list := NewLiveList([]Row{{"id": float64(1), "status": "pending"}})

	list.Apply(feed.Event{
		EventType: feed.EventUpdate,
		New:       row(t, map[string]interface{}{"id": 99, "status": "approved"}),
	})

	items := list.Snapshot()
	assert.Len(t, items, 1)
	assert.Equal(t, "pending", items[0]["status"])
}

func TestLiveListMalformedPayloadIgnored(t *testing.T) {
	list := NewLiveList(nil)

	list.Apply(feed.Event{EventType: feed.EventInsert, New: json.RawMessage(`not json`)})
	list.Apply(feed.Event{EventType: feed.EventDelete})

	assert.Equal(t, 0, list.Len())
}

func TestSnapshotIsCopy(t *testing.T) {
	list := NewLiveList([]Row{{"id": float64(1)}})

	items := list.Snapshot()
	items[0] = Row{"id": float64(42)}

	fresh := list.Snapshot()
	id, _ := fresh[0].id()
	assert.Equal(t, float64(1), id)
}
