package cacheaccess

import (
	"context"

	"cachecoord/pkg/filelock"
)

// IndexedCache is the external, byte-keyed store backing a single named
// cache. The default implementation is storedcache.Store; anything with
// this method set is accepted, so callers are free to plug in their own.
type IndexedCache interface {
	Get(key []byte) ([]byte, bool, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Close() error
}

// InitializationAction decides whether a backing store needs initializing
// and performs that initialization inside the lock's write-file region. The
// default implementation is storedcache.Initializer.
type InitializationAction interface {
	RequiresInitialization(lock filelock.FileLock) (bool, error)
	Initialize(lock filelock.FileLock) error
}

// PersistentCache is the capability a CacheDecorator wraps: the same
// byte-keyed get/put/delete shape IndexedCache exposes, so decorators
// compose transparently over a raw store or over another decorator.
type PersistentCache interface {
	Get(key []byte) ([]byte, bool, error)
	Put(key, value []byte) error
	Delete(key []byte) error
}

// CrossProcessCacheAccess is a thin view over the coordinator a
// CacheDecorator can use to run file-lock-guarded work, without the
// decorator holding a back-pointer to the coordinator itself.
type CrossProcessCacheAccess interface {
	WithFileLock(ctx context.Context, fn func(ctx context.Context) error) error
}

// AsyncCacheAccess is a thin view over the coordinator a CacheDecorator can
// use to schedule fire-and-forget work.
type AsyncCacheAccess interface {
	Go(fn func())
}

// CacheDecorator wraps a freshly built PersistentCache, e.g. to add
// encryption or metrics counters.
type CacheDecorator interface {
	Decorate(id, name string, persistent PersistentCache, cross CrossProcessCacheAccess, async AsyncCacheAccess) PersistentCache
}
