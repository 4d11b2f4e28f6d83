package ldstore

import (
	"testing"

	"github.com/launchdarkly/go-server-sdk/v7/ldstoretypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitAndGet(t *testing.T) {
	s := NewMemoryStore()
	assert.False(t, s.Initialized())
	err := s.Init(map[ldstoretypes.DataKind][]ldstoretypes.KeyedItemDescriptor{
		ldstoretypes.Features: {{Key: "f", Item: ldstoretypes.ItemDescriptor{Version: 1, Item: "flag-data"}}},
	})
	require.NoError(t, err)
	assert.True(t, s.Initialized())

	item, err := s.Get(ldstoretypes.Features, "f")
	require.NoError(t, err)
	assert.Equal(t, 1, item.Version)
	assert.False(t, item.IsDeleted())
}

func TestUpsertVersionGate(t *testing.T) {
	s := NewMemoryStore()
	_ = s.Upsert(ldstoretypes.Features, "f", ldstoretypes.ItemDescriptor{Version: 2, Item: "v2"})
	_ = s.Upsert(ldstoretypes.Features, "f", ldstoretypes.ItemDescriptor{Version: 1, Item: "v1"})
	item, _ := s.Get(ldstoretypes.Features, "f")
	assert.Equal(t, 2, item.Version)
	assert.Equal(t, "v2", item.Item)
}

func TestTombstoneMakesItemAbsentFromAll(t *testing.T) {
	s := NewMemoryStore()
	_ = s.Upsert(ldstoretypes.Features, "f", ldstoretypes.ItemDescriptor{Version: 1, Item: "v1"})
	_ = s.Upsert(ldstoretypes.Features, "f", ldstoretypes.ItemDescriptor{Version: 2}) // tombstone

	item, _ := s.Get(ldstoretypes.Features, "f")
	assert.True(t, item.IsDeleted())

	all, _ := s.All(ldstoretypes.Features)
	assert.Empty(t, all)
}

func TestTombstoneThenLowerUpsertIsNoOp(t *testing.T) {
	s := NewMemoryStore()
	_ = s.Upsert(ldstoretypes.Features, "f", ldstoretypes.ItemDescriptor{Version: 4}) // tombstone at 4
	_ = s.Upsert(ldstoretypes.Features, "f", ldstoretypes.ItemDescriptor{Version: 3, Item: "v3"})
	item, _ := s.Get(ldstoretypes.Features, "f")
	assert.True(t, item.IsDeleted())

	_ = s.Upsert(ldstoretypes.Features, "f", ldstoretypes.ItemDescriptor{Version: 5, Item: "v5"})
	item, _ = s.Get(ldstoretypes.Features, "f")
	assert.False(t, item.IsDeleted())
	assert.Equal(t, "v5", item.Item)
}
