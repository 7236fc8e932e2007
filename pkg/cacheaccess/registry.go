package cacheaccess

import "sync"

// CacheRegistry is the in-process name -> CacheEntry table. It is grounded
// on the same register/lookup-by-name shape as a worker registry, but
// entries are never independently removed: they live for the coordinator's
// lifetime and are discarded only when the coordinator itself is closed.
// Construction never triggers lock acquisition; the lock is acquired on the
// first UseCache frame that touches the built cache.
type CacheRegistry struct {
	mu      sync.Mutex
	entries map[string]*CacheEntry
}

func newCacheRegistry() *CacheRegistry {
	return &CacheRegistry{entries: make(map[string]*CacheEntry)}
}

// getOrBuild returns the existing cache registered under params.Name if its
// parameters are compatible, building a new one via build on first use.
func (r *CacheRegistry) getOrBuild(params CacheParameters, build func() (*MultiProcessSafeCache, error)) (*MultiProcessSafeCache, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[params.Name]; ok {
		if !params.compatibleWith(existing.Params) {
			return nil, &InvalidCacheReuseError{Requested: params, Existing: existing.Params}
		}
		return existing.Cache, nil
	}

	cache, err := build()
	if err != nil {
		return nil, err
	}
	r.entries[params.Name] = &CacheEntry{Params: params, Cache: cache}
	return cache, nil
}

// Len reports the number of registered caches.
func (r *CacheRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Names returns the registered cache names.
func (r *CacheRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}

// closeAll releases every registered cache's in-process LRU entries. Called
// from every Coordinator.Close call.
func (r *CacheRegistry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		entry.Cache.Close()
	}
}
