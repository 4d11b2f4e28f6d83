// Package ldstore provides the in-memory data store and a TTL-caching
// wrapper around a persistent-store backend.
package ldstore

import (
	"sync"

	"github.com/launchdarkly/go-server-sdk/v7/ldstoretypes"
)

// MemoryStore is the default Store implementation: two maps (features,
// segments) protected by a single readers-writer lock. Every write is
// gated by a monotonically non-decreasing version per (kind,key); deletes
// are tombstones rather than removals, so a late upsert at a lower version
// can never resurrect a deleted item.
type MemoryStore struct {
	mu          sync.RWMutex
	items       map[ldstoretypes.DataKind]map[string]ldstoretypes.ItemDescriptor
	initialized bool
}

// NewMemoryStore constructs an empty, uninitialized MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: map[ldstoretypes.DataKind]map[string]ldstoretypes.ItemDescriptor{
			ldstoretypes.Features: {},
			ldstoretypes.Segments: {},
		},
	}
}

// Init atomically replaces the full dataset.
func (s *MemoryStore) Init(allData map[ldstoretypes.DataKind][]ldstoretypes.KeyedItemDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	newItems := map[ldstoretypes.DataKind]map[string]ldstoretypes.ItemDescriptor{
		ldstoretypes.Features: {},
		ldstoretypes.Segments: {},
	}
	for kind, list := range allData {
		m := newItems[kind]
		if m == nil {
			m = map[string]ldstoretypes.ItemDescriptor{}
			newItems[kind] = m
		}
		for _, ki := range list {
			m[ki.Key] = ki.Item
		}
	}
	s.items = newItems
	s.initialized = true
	return nil
}

// Get returns the item for (kind,key). A tombstone is returned as-is
// (IsDeleted()==true); callers that want "absent" semantics should check
// that, exactly as the caching wrapper and evaluator do.
func (s *MemoryStore) Get(kind ldstoretypes.DataKind, key string) (ldstoretypes.ItemDescriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.items[kind]; ok {
		if item, ok := m[key]; ok {
			return item, nil
		}
	}
	return ldstoretypes.ItemDescriptor{}, nil
}

// All returns every non-deleted item in a namespace, as an independent
// snapshot slice safe to range over after releasing the lock.
func (s *MemoryStore) All(kind ldstoretypes.DataKind) ([]ldstoretypes.KeyedItemDescriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.items[kind]
	result := make([]ldstoretypes.KeyedItemDescriptor, 0, len(m))
	for k, item := range m {
		if item.IsDeleted() {
			continue
		}
		result = append(result, ldstoretypes.KeyedItemDescriptor{Key: k, Item: item})
	}
	return result, nil
}

// Upsert inserts or replaces an item, ignoring writes at a version less
// than or equal to the currently stored version for that key.
func (s *MemoryStore) Upsert(kind ldstoretypes.DataKind, key string, item ldstoretypes.ItemDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.items[kind]
	if !ok {
		m = map[string]ldstoretypes.ItemDescriptor{}
		s.items[kind] = m
	}
	if existing, ok := m[key]; ok && existing.Version >= item.Version {
		return nil
	}
	m[key] = item
	return nil
}

// Initialized reports whether Init has ever succeeded.
func (s *MemoryStore) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
