package ldstore

import (
	"fmt"
	"time"

	cache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/launchdarkly/go-server-sdk/v7/ldstoretypes"
)

const initCheckedKey = "$initChecked"

// CachingStore wraps a ldstoretypes.PersistentDataStore with a TTL-bounded
// in-memory cache, so that hot reads (which dominate flag evaluation) don't
// all round-trip to the backend. A ttl of 0 disables caching entirely: every
// read hits the backend.
type CachingStore struct {
	backend    ldstoretypes.PersistentDataStore
	serializer ldstoretypes.ItemSerializer
	ttl        time.Duration
	cache      *cache.Cache
	requests   singleflight.Group
}

// NewCachingStore constructs a CachingStore in front of backend, using
// serializer to convert between the data model and the backend's byte form.
func NewCachingStore(backend ldstoretypes.PersistentDataStore, serializer ldstoretypes.ItemSerializer, ttl time.Duration) *CachingStore {
	var c *cache.Cache
	if ttl > 0 {
		c = cache.New(ttl, ttl*2)
	}
	return &CachingStore{backend: backend, serializer: serializer, ttl: ttl, cache: c}
}

func itemCacheKey(kind ldstoretypes.DataKind, key string) string {
	return fmt.Sprintf("%s:%s", kind, key)
}

func allCacheKey(kind ldstoretypes.DataKind) string {
	return fmt.Sprintf("all:%s", kind)
}

// Init replaces the backend's dataset; only on success does the wrapper
// rewrite its own cache, so a failed Init leaves both layers consistent
// with whatever was there before.
func (s *CachingStore) Init(allData map[ldstoretypes.DataKind][]ldstoretypes.KeyedItemDescriptor) error {
	serialized := make(map[ldstoretypes.DataKind][]ldstoretypes.SerializedKeyedItemDescriptor, len(allData))
	for kind, list := range allData {
		sl := make([]ldstoretypes.SerializedKeyedItemDescriptor, 0, len(list))
		for _, ki := range list {
			sl = append(sl, ldstoretypes.SerializedKeyedItemDescriptor{
				Key: ki.Key,
				Item: ldstoretypes.SerializedItemDescriptor{
					Version:        ki.Item.Version,
					Deleted:        ki.Item.IsDeleted(),
					SerializedItem: s.serializer.Serialize(kind, ki.Item),
				},
			})
		}
		serialized[kind] = sl
	}

	if err := s.backend.Init(serialized); err != nil {
		return err
	}

	if s.cache != nil {
		s.cache.Flush()
		for kind, list := range allData {
			var all []ldstoretypes.KeyedItemDescriptor
			for _, ki := range list {
				s.cache.SetDefault(itemCacheKey(kind, ki.Key), ki.Item)
				if !ki.Item.IsDeleted() {
					all = append(all, ki)
				}
			}
			s.cache.SetDefault(allCacheKey(kind), all)
		}
		s.cache.SetDefault(initCheckedKey, true)
	}
	return nil
}

// Get returns the item for (kind,key), consulting the cache first. A cache
// miss triggers a single backend fetch even under concurrent callers asking
// for the same key, via singleflight.
func (s *CachingStore) Get(kind ldstoretypes.DataKind, key string) (ldstoretypes.ItemDescriptor, error) {
	if s.cache == nil {
		return s.getUncached(kind, key)
	}
	ck := itemCacheKey(kind, key)
	if cached, ok := s.cache.Get(ck); ok {
		return cached.(ldstoretypes.ItemDescriptor), nil
	}
	v, err, _ := s.requests.Do(ck, func() (interface{}, error) {
		item, err := s.getUncached(kind, key)
		if err != nil {
			return nil, err
		}
		s.cache.SetDefault(ck, item)
		return item, nil
	})
	if err != nil {
		return ldstoretypes.ItemDescriptor{}, err
	}
	return v.(ldstoretypes.ItemDescriptor), nil
}

func (s *CachingStore) getUncached(kind ldstoretypes.DataKind, key string) (ldstoretypes.ItemDescriptor, error) {
	serialized, err := s.backend.Get(kind, key)
	if err != nil {
		return ldstoretypes.ItemDescriptor{}, err
	}
	if serialized.SerializedItem == nil && !serialized.Deleted {
		// Genuinely absent from the backend: cache a tombstone at the
		// backend-reported version (0 if it gave us none) so repeated
		// misses for a nonexistent key don't keep hammering the backend.
		return ldstoretypes.Tombstone(serialized.Version), nil
	}
	if serialized.Deleted {
		return ldstoretypes.Tombstone(serialized.Version), nil
	}
	return s.serializer.Deserialize(kind, serialized.SerializedItem)
}

// All returns every non-deleted item in kind, cached as a single
// "all-of-kind" entry that any Upsert invalidates.
func (s *CachingStore) All(kind ldstoretypes.DataKind) ([]ldstoretypes.KeyedItemDescriptor, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(allCacheKey(kind)); ok {
			if list, ok := cached.([]ldstoretypes.KeyedItemDescriptor); ok {
				return list, nil
			}
		}
	}
	serializedList, err := s.backend.GetAll(kind)
	if err != nil {
		return nil, err
	}
	result := make([]ldstoretypes.KeyedItemDescriptor, 0, len(serializedList))
	for _, si := range serializedList {
		if si.Item.Deleted {
			continue
		}
		item, err := s.serializer.Deserialize(kind, si.Item.SerializedItem)
		if err != nil {
			continue
		}
		result = append(result, ldstoretypes.KeyedItemDescriptor{Key: si.Key, Item: item})
	}
	if s.cache != nil {
		s.cache.SetDefault(allCacheKey(kind), result)
	}
	return result, nil
}

// Upsert writes to the backend and, on success, updates the cache without
// ever downgrading a newer cached version, and invalidates the "all" entry.
func (s *CachingStore) Upsert(kind ldstoretypes.DataKind, key string, item ldstoretypes.ItemDescriptor) error {
	serialized := ldstoretypes.SerializedItemDescriptor{
		Version:        item.Version,
		Deleted:        item.IsDeleted(),
		SerializedItem: s.serializer.Serialize(kind, item),
	}
	updated, err := s.backend.Upsert(kind, key, serialized)
	if err != nil {
		return err
	}
	if s.cache == nil || !updated {
		return nil
	}
	ck := itemCacheKey(kind, key)
	if cached, ok := s.cache.Get(ck); ok {
		if existing, ok := cached.(ldstoretypes.ItemDescriptor); ok && existing.Version >= item.Version {
			return nil
		}
	}
	s.cache.SetDefault(ck, item)
	s.cache.Delete(allCacheKey(kind))
	return nil
}

// Initialized reports whether the dataset has ever been fully populated,
// consulting the cache before the backend per the documented fast path.
func (s *CachingStore) Initialized() bool {
	if s.cache != nil {
		if cached, ok := s.cache.Get(initCheckedKey); ok {
			if done, ok := cached.(bool); ok && done {
				return true
			}
			// Sentinel present but not yet "done": suppress further
			// backend queries until it expires.
			return false
		}
	}
	initialized := s.backend.IsInitialized()
	if s.cache != nil {
		if initialized {
			s.cache.Set(initCheckedKey, true, cache.NoExpiration)
		} else {
			s.cache.SetDefault(initCheckedKey, false)
		}
	}
	return initialized
}

// Close releases the backend.
func (s *CachingStore) Close() error {
	return s.backend.Close()
}
