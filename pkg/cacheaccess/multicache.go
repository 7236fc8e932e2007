package cacheaccess

import (
	"fmt"
	"sync"

	"cachecoord/pkg/cache"
	"cachecoord/pkg/serialize"
)

// CacheStats reports hit/miss/eviction counts for a MultiProcessSafeCache's
// in-process read-through layer.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// cacheMetricsSink is the narrow metrics capability a MultiProcessSafeCache
// reports through, if the coordinator was built with metrics enabled.
type cacheMetricsSink interface {
	RecordCacheHit(cache string)
	RecordCacheMiss(cache string)
	RecordCacheEviction(cache string)
}

// MultiProcessSafeCache is the façade returned from Coordinator.NewCache: a
// cross-process-safe key-value cache with an optional in-process
// read-through LRU layer. Its methods assume the calling goroutine holds
// ownership; callers reach it from inside a UseCache frame, which is the
// only place NewCache's caller is expected to invoke it from.
//
// Keys and values handed to Get/Put/Delete are the caller's declared
// KeyType/ValueType shape (a string, a []byte, a JSON-able struct, ...);
// keySer/valSer encode and decode them to the bytes the backing store and
// LRU layer actually hold.
type MultiProcessSafeCache struct {
	name    string
	backing PersistentCache
	lru     *cache.Cache
	metrics cacheMetricsSink
	keySer  serialize.AnySerializer
	valSer  serialize.AnySerializer

	mu    sync.Mutex
	stats CacheStats
}

func newMultiProcessSafeCache(name string, backing PersistentCache, lruSize int, metrics cacheMetricsSink, keySer, valSer serialize.AnySerializer) (*MultiProcessSafeCache, error) {
	c := &MultiProcessSafeCache{name: name, backing: backing, metrics: metrics, keySer: keySer, valSer: valSer}
	if lruSize > 0 {
		l, err := cache.NewCache(cache.CacheConfig{
			MaxSize: lruSize,
			OnEvict: func(string, *cache.CacheEntry) {
				c.mu.Lock()
				c.stats.Evictions++
				c.mu.Unlock()
				if c.metrics != nil {
					c.metrics.RecordCacheEviction(c.name)
				}
			},
		})
		if err != nil {
			return nil, err
		}
		c.lru = l
	}
	return c, nil
}

// Name returns the cache's registered name.
func (c *MultiProcessSafeCache) Name() string { return c.name }

// Get returns the value stored under key, checking the in-process LRU layer
// before falling through to the cross-process backing store.
func (c *MultiProcessSafeCache) Get(key any) (any, bool, error) {
	rawKey, err := c.keySer.SerializeAny(key)
	if err != nil {
		return nil, false, fmt.Errorf("cacheaccess: serialize key: %w", err)
	}

	if c.lru != nil {
		if entry, ok := c.lru.Get(string(rawKey)); ok {
			c.mu.Lock()
			c.stats.Hits++
			c.mu.Unlock()
			if c.metrics != nil {
				c.metrics.RecordCacheHit(c.name)
			}
			v, err := c.valSer.DeserializeAny(entry.Data)
			return v, err == nil, err
		}
	}
	c.mu.Lock()
	c.stats.Misses++
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.RecordCacheMiss(c.name)
	}

	raw, ok, err := c.backing.Get(rawKey)
	if err != nil || !ok {
		return nil, ok, err
	}
	if c.lru != nil {
		c.lru.Set(string(rawKey), raw)
	}
	v, err := c.valSer.DeserializeAny(raw)
	if err != nil {
		return nil, false, fmt.Errorf("cacheaccess: deserialize value: %w", err)
	}
	return v, true, nil
}

// Put writes key/value through to the backing store and refreshes the LRU
// layer. If valSer gates the value (a schema.ValidatingSerializer, for
// example), an invalid value is rejected here and never reaches the
// backing store or the lock.
func (c *MultiProcessSafeCache) Put(key, value any) error {
	rawKey, err := c.keySer.SerializeAny(key)
	if err != nil {
		return fmt.Errorf("cacheaccess: serialize key: %w", err)
	}
	rawValue, err := c.valSer.SerializeAny(value)
	if err != nil {
		return fmt.Errorf("cacheaccess: serialize value: %w", err)
	}

	if err := c.backing.Put(rawKey, rawValue); err != nil {
		return err
	}
	if c.lru != nil {
		c.lru.Set(string(rawKey), rawValue)
	}
	return nil
}

// Delete removes key from the backing store and the LRU layer.
func (c *MultiProcessSafeCache) Delete(key any) error {
	rawKey, err := c.keySer.SerializeAny(key)
	if err != nil {
		return fmt.Errorf("cacheaccess: serialize key: %w", err)
	}

	if err := c.backing.Delete(rawKey); err != nil {
		return err
	}
	if c.lru != nil {
		c.lru.Evict(string(rawKey))
	}
	return nil
}

// Stats returns a snapshot of the LRU layer's hit/miss/eviction counters.
func (c *MultiProcessSafeCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Close releases the LRU layer's entries. Safe to call on a cache with no
// LRU layer configured.
func (c *MultiProcessSafeCache) Close() {
	if c.lru != nil {
		c.lru.Close()
	}
}
