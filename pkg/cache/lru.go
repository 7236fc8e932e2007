package cache

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheEntry is a cached item's in-memory representation — typically the
// decrypted bytes stored in the backing file.
type CacheEntry struct {
	Data []byte
}

// Cache is a thread-safe, size-bounded, pure-LRU in-process read-through
// layer. It has no TTL or version bookkeeping of its own: coherence with
// the on-disk store is the backing cache's job (cacheaccess.PersistentCache),
// not this layer's.
type Cache struct {
	cache *lru.Cache[string, *CacheEntry]
	mu    sync.RWMutex

	maxSize int

	hits   int64
	misses int64
	evicts int64
}

// CacheConfig holds configuration for the cache.
type CacheConfig struct {
	// MaxSize is the maximum number of entries in the cache.
	MaxSize int

	// OnEvict, if set, is called whenever an entry leaves the cache: when the
	// LRU algorithm evicts it to make room for a new one, when it is removed
	// with Evict, and for every entry dropped by Close.
	OnEvict func(key string, entry *CacheEntry)
}

// NewCache creates a new LRU cache with the given configuration.
func NewCache(config CacheConfig) (*Cache, error) {
	if config.MaxSize <= 0 {
		return nil, fmt.Errorf("max size must be positive, got %d", config.MaxSize)
	}

	c := &Cache{maxSize: config.MaxSize}

	onEvict := func(key string, entry *CacheEntry) {
		c.evicts++
		if config.OnEvict != nil {
			config.OnEvict(key, entry)
		}
	}
	lruCache, err := lru.NewWithEvict(config.MaxSize, onEvict)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	c.cache = lruCache

	return c, nil
}

// Get retrieves a value from the cache.
func (c *Cache) Get(key string) (*CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, found := c.cache.Get(key)
	if !found {
		c.misses++
		return nil, false
	}

	c.hits++
	return entry, true
}

// Set adds or updates a value in the cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Add(key, &CacheEntry{Data: data})
}

// Evict removes a specific entry from the cache.
func (c *Cache) Evict(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Remove fires the eviction callback, which does the counting.
	return c.cache.Remove(key)
}

// Len returns the number of items in the cache.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.cache.Len()
}

// Stats returns cache performance statistics.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.hits + c.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return CacheStats{
		Hits:    c.hits,
		Misses:  c.misses,
		Evicts:  c.evicts,
		Size:    int64(c.cache.Len()),
		MaxSize: int64(c.maxSize),
		HitRate: hitRate,
	}
}

// CacheStats holds cache performance statistics.
type CacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Evicts  int64   `json:"evicts"`
	Size    int64   `json:"size"`
	MaxSize int64   `json:"max_size"`
	HitRate float64 `json:"hit_rate"`
}

// Close releases the cache's entries. Safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Purge()
}
