package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayload_EqualIgnoresWhitespace(t *testing.T) {
	a := Payload{"amount": json.RawMessage(`{"v": 10}`)}
	b := Payload{"amount": json.RawMessage(`{"v":10}`)}

	assert.True(t, a.Equal(b))
	assert.True(t, a.FieldEqual(b, "amount"))
	assert.True(t, a.FieldEqual(b, "missing"))
}

func TestPayload_EqualDetectsDifferences(t *testing.T) {
	a := MustPayload(map[string]any{"title": "a", "amount": 1})
	b := MustPayload(map[string]any{"title": "b", "amount": 1})

	assert.False(t, a.Equal(b))
	assert.False(t, a.FieldEqual(b, "title"))
	assert.True(t, a.FieldEqual(b, "amount"))

	// поле есть только с одной стороны
	c := MustPayload(map[string]any{"title": "a"})
	assert.False(t, a.FieldEqual(c, "amount"))
}

func TestPayload_CloneIsDeep(t *testing.T) {
	p := MustPayload(map[string]any{"title": "a"})
	c := p.Clone()
	c["title"][1] = 'z'

	var title string
	ok, err := p.Decode("title", &title)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", title)
}

func TestPayload_Fields(t *testing.T) {
	a := MustPayload(map[string]any{"b": 1, "a": 2})
	b := MustPayload(map[string]any{"c": 3, "a": 4})

	assert.Equal(t, []string{"a", "b", "c"}, a.Fields(b))
}

func TestRecord_HasServerID(t *testing.T) {
	assert.False(t, Record{}.HasServerID())
	assert.True(t, Record{ServerID: "srv-1"}.HasServerID())
}

func TestSyncState_PendingSync(t *testing.T) {
	assert.False(t, SyncState{Dirty: true}.PendingSync())
	assert.True(t, SyncState{Dirty: true, FailedAttempts: 2}.PendingSync())
	assert.False(t, SyncState{FailedAttempts: 2}.PendingSync())
}
