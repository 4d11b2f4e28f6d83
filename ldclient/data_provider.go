package ldclient

import (
	"github.com/launchdarkly/go-server-sdk/v7/ldmodel"
	"github.com/launchdarkly/go-server-sdk/v7/ldstoretypes"
)

// storeDataProvider adapts an ldstoretypes.Store into the read-only view
// ldeval.Evaluate needs, translating the store's tombstone-vs-absent and
// any-interface{} item representation into typed flag/segment lookups.
type storeDataProvider struct {
	store ldstoretypes.Store
}

func (p storeDataProvider) GetFlag(key string) (*ldmodel.FeatureFlag, bool) {
	item, err := p.store.Get(ldstoretypes.Features, key)
	if err != nil || item.IsDeleted() {
		return nil, false
	}
	flag, ok := item.Item.(*ldmodel.FeatureFlag)
	return flag, ok
}

func (p storeDataProvider) GetSegment(key string) (*ldmodel.Segment, bool) {
	item, err := p.store.Get(ldstoretypes.Segments, key)
	if err != nil || item.IsDeleted() {
		return nil, false
	}
	segment, ok := item.Item.(*ldmodel.Segment)
	return segment, ok
}
