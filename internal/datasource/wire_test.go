package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchdarkly/go-server-sdk/v7/ldstoretypes"
)

type fakeDest struct {
	initCalls   int
	upsertCalls int
	initData    map[ldstoretypes.DataKind][]ldstoretypes.KeyedItemDescriptor
	lastUpsert  ldstoretypes.KeyedItemDescriptor
	lastKind    ldstoretypes.DataKind
}

func (f *fakeDest) Init(data map[ldstoretypes.DataKind][]ldstoretypes.KeyedItemDescriptor) error {
	f.initCalls++
	f.initData = data
	return nil
}

func (f *fakeDest) Upsert(kind ldstoretypes.DataKind, key string, item ldstoretypes.ItemDescriptor) error {
	f.upsertCalls++
	f.lastKind = kind
	f.lastUpsert = ldstoretypes.KeyedItemDescriptor{Key: key, Item: item}
	return nil
}

func TestApplyPutWithValidPayload(t *testing.T) {
	dest := &fakeDest{}
	raw := []byte(`{"path":"/","data":{"flags":{"flagA":{"key":"flagA","version":3,"on":true}},"segments":{}}}`)
	err := applyPut(dest, raw)
	require.NoError(t, err)
	assert.Equal(t, 1, dest.initCalls)
	assert.Len(t, dest.initData[ldstoretypes.Features], 1)
	assert.Equal(t, "flagA", dest.initData[ldstoretypes.Features][0].Key)
}

func TestApplyPutWithMalformedPayloadReturnsError(t *testing.T) {
	dest := &fakeDest{}
	err := applyPut(dest, []byte(`not json`))
	require.Error(t, err)
	assert.Equal(t, 0, dest.initCalls)
}

func TestApplyPatchFlag(t *testing.T) {
	dest := &fakeDest{}
	raw := []byte(`{"path":"/flags/flagA","data":{"key":"flagA","version":5,"on":true}}`)
	err := applyPatch(dest, raw)
	require.NoError(t, err)
	assert.Equal(t, 1, dest.upsertCalls)
	assert.Equal(t, ldstoretypes.Features, dest.lastKind)
	assert.Equal(t, "flagA", dest.lastUpsert.Key)
	assert.Equal(t, 5, dest.lastUpsert.Item.Version)
}

func TestApplyPatchSegment(t *testing.T) {
	dest := &fakeDest{}
	raw := []byte(`{"path":"/segments/segA","data":{"key":"segA","version":2}}`)
	err := applyPatch(dest, raw)
	require.NoError(t, err)
	assert.Equal(t, ldstoretypes.Segments, dest.lastKind)
}

func TestApplyPatchUnknownPathIsIgnoredNotError(t *testing.T) {
	dest := &fakeDest{}
	raw := []byte(`{"path":"/weird/thing","data":{}}`)
	err := applyPatch(dest, raw)
	require.NoError(t, err)
	assert.Equal(t, 0, dest.upsertCalls)
}

func TestApplyPatchMalformedPayloadReturnsError(t *testing.T) {
	dest := &fakeDest{}
	err := applyPatch(dest, []byte(`not json`))
	require.Error(t, err)
}

func TestApplyPatchMalformedItemReturnsError(t *testing.T) {
	dest := &fakeDest{}
	raw := []byte(`{"path":"/flags/flagA","data":"not an object"}`)
	err := applyPatch(dest, raw)
	require.Error(t, err)
}

func TestApplyDeleteProducesTombstone(t *testing.T) {
	dest := &fakeDest{}
	raw := []byte(`{"path":"/flags/flagA","version":9}`)
	err := applyDelete(dest, raw)
	require.NoError(t, err)
	assert.Equal(t, ldstoretypes.Features, dest.lastKind)
	assert.True(t, dest.lastUpsert.Item.IsDeleted())
	assert.Equal(t, 9, dest.lastUpsert.Item.Version)
}

func TestApplyDeleteUnknownPathIsIgnored(t *testing.T) {
	dest := &fakeDest{}
	raw := []byte(`{"path":"/weird/thing","version":1}`)
	err := applyDelete(dest, raw)
	require.NoError(t, err)
	assert.Equal(t, 0, dest.upsertCalls)
}

func TestApplyDeleteMalformedPayloadReturnsError(t *testing.T) {
	dest := &fakeDest{}
	err := applyDelete(dest, []byte(`not json`))
	require.Error(t, err)
}

func TestParsePath(t *testing.T) {
	p, ok := parsePath("/flags/abc")
	require.True(t, ok)
	assert.Equal(t, ldstoretypes.Features, p.kind)
	assert.Equal(t, "abc", p.key)

	p, ok = parsePath("/segments/xyz")
	require.True(t, ok)
	assert.Equal(t, ldstoretypes.Segments, p.kind)
	assert.Equal(t, "xyz", p.key)

	_, ok = parsePath("/other/thing")
	assert.False(t, ok)
}
