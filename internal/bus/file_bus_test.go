package bus

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBusPublishReadAll(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBus(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, b.Publish(ctx, "test.topic.v1", map[string]interface{}{"b": 2, "a": 1}))
	require.NoError(t, b.Publish(ctx, "test.topic.v1", map[string]interface{}{"a": 3, "b": 4}))

	records, err := b.ReadAll(ctx, "test.topic.v1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.JSONEq(t, `{"a":1,"b":2}`, string(records[0]))
	assert.JSONEq(t, `{"a":3,"b":4}`, string(records[1]))

	// Canonical form is sorted keys, no insignificant whitespace.
	assert.Equal(t, `{"a":1,"b":2}`, string(records[0]))
}

func TestFileBusEmptyTopicReadsEmpty(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBus(dir)
	require.NoError(t, err)

	records, err := b.ReadAll(context.Background(), "never.published.v1")
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records)
}

func TestFileBusPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	b1, err := NewFileBus(dir)
	require.NoError(t, err)
	require.NoError(t, b1.Publish(context.Background(), "persisted.v1", map[string]int{"x": 1}))
	require.NoError(t, b1.Close())

	b2, err := NewFileBus(dir)
	require.NoError(t, err)
	records, err := b2.ReadAll(context.Background(), "persisted.v1")
	require.NoError(t, err)
	require.Len(t, records, 1)

	var got map[string]int
	require.NoError(t, json.Unmarshal(records[0], &got))
	assert.Equal(t, 1, got["x"])
}

func TestCanonicalizeSortsNestedKeys(t *testing.T) {
	type inner struct {
		Z int `json:"z"`
		A int `json:"a"`
	}
	type outer struct {
		Name  string `json:"name"`
		Inner inner  `json:"inner"`
	}
	b, err := Canonicalize(outer{Name: "x", Inner: inner{Z: 2, A: 1}})
	require.NoError(t, err)
	assert.Equal(t, `{"inner":{"a":1,"z":2},"name":"x"}`, string(b))
}

func TestFileBusTopicPathIsolation(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBus(dir)
	require.NoError(t, err)
	require.NoError(t, b.Publish(context.Background(), "a.v1", map[string]int{"v": 1}))
	require.NoError(t, b.Publish(context.Background(), "b.v1", map[string]int{"v": 2}))

	aRecs, err := b.ReadAll(context.Background(), "a.v1")
	require.NoError(t, err)
	bRecs, err := b.ReadAll(context.Background(), "b.v1")
	require.NoError(t, err)
	require.Len(t, aRecs, 1)
	require.Len(t, bRecs, 1)
	assert.FileExists(t, filepath.Join(dir, "a.v1.ndjson"))
}
