package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCache(t *testing.T) {
	t.Run("creates cache with valid config", func(t *testing.T) {
		cache, err := NewCache(CacheConfig{MaxSize: 100})

		assert.NoError(t, err)
		assert.NotNil(t, cache)
		assert.Equal(t, 100, cache.maxSize)
	})

	t.Run("returns error for invalid max size", func(t *testing.T) {
		cache, err := NewCache(CacheConfig{MaxSize: 0})

		assert.Error(t, err)
		assert.Nil(t, cache)
		assert.Contains(t, err.Error(), "must be positive")
	})
}

func TestCacheSetAndGet(t *testing.T) {
	cache, err := NewCache(CacheConfig{MaxSize: 10})
	require.NoError(t, err)

	cache.Set("key1", []byte("value1"))

	entry, found := cache.Get("key1")
	require.True(t, found)
	assert.Equal(t, []byte("value1"), entry.Data)

	_, found = cache.Get("missing")
	assert.False(t, found)
}

func TestCacheEvict(t *testing.T) {
	cache, err := NewCache(CacheConfig{MaxSize: 10})
	require.NoError(t, err)

	cache.Set("key1", []byte("value1"))
	assert.True(t, cache.Evict("key1"))
	assert.False(t, cache.Evict("key1"))

	_, found := cache.Get("key1")
	assert.False(t, found)
}

func TestCacheStats(t *testing.T) {
	cache, err := NewCache(CacheConfig{MaxSize: 10})
	require.NoError(t, err)

	cache.Set("key1", []byte("value1"))
	cache.Get("key1")
	cache.Get("missing")

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Size)
	assert.Equal(t, int64(10), stats.MaxSize)
	assert.Equal(t, 0.5, stats.HitRate)
}

func TestCacheLRUEviction(t *testing.T) {
	var evicted []string
	cache, err := NewCache(CacheConfig{
		MaxSize: 2,
		OnEvict: func(key string, entry *CacheEntry) { evicted = append(evicted, key) },
	})
	require.NoError(t, err)

	cache.Set("a", []byte("1"))
	cache.Set("b", []byte("2"))
	cache.Set("c", []byte("3")) // evicts "a", the least recently used

	_, found := cache.Get("a")
	assert.False(t, found)
	require.Equal(t, []string{"a"}, evicted)

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Evicts)
}

func TestCacheClose(t *testing.T) {
	cache, err := NewCache(CacheConfig{MaxSize: 10})
	require.NoError(t, err)

	cache.Set("key1", []byte("value1"))
	cache.Close()

	assert.Equal(t, 0, cache.Len())
	// Safe to call twice.
	cache.Close()
}

func TestConcurrentAccess(t *testing.T) {
	cache, err := NewCache(CacheConfig{MaxSize: 100})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			cache.Set(key, []byte(key))
			cache.Get(key)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.Len(), 100)
}
