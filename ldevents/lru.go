package ldevents

import lru "github.com/hashicorp/golang-lru"

// lruCache tracks the most recently seen user keys so the processor can
// skip redundant index events. It is not safe for concurrent use; the
// event dispatcher only ever touches it from its own goroutine.
type lruCache struct {
	cache *lru.Cache
}

func newLruCache(capacity int) lruCache {
	if capacity <= 0 {
		capacity = DefaultUserKeysCapacity
	}
	c, err := lru.New(capacity)
	if err != nil {
		// Only possible if capacity <= 0, which we've already guarded against.
		c, _ = lru.New(DefaultUserKeysCapacity)
	}
	return lruCache{cache: c}
}

// add records key as seen and reports whether it was already present.
func (c lruCache) add(key string) bool {
	if _, ok := c.cache.Get(key); ok {
		c.cache.Add(key, true)
		return true
	}
	c.cache.Add(key, true)
	return false
}

func (c lruCache) clear() {
	c.cache.Purge()
}
