// Package cacheaccess is the multi-process-safe persistent cache access
// coordinator: it mediates access to an on-disk, indexed key->value store
// shared by many cooperating processes and many threads within one
// process, combining an inter-process lock-mode state machine, a
// thread-ownership discipline on top of that lock, contention-driven lock
// release during long-running operations, and a registry of typed per-name
// caches.
package cacheaccess

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"cachecoord/pkg/filelock"
	"cachecoord/pkg/serialize"
)

// LockMode selects how the coordinator behaves on Open. Shared and
// Exclusive hold a lock for the coordinator's whole lifetime (barring
// contention); None acquires a lock lazily on the first UseCache frame.
type LockMode int

const (
	ModeShared LockMode = iota
	ModeExclusive
	ModeNone
)

func (m LockMode) String() string {
	switch m {
	case ModeShared:
		return "shared"
	case ModeExclusive:
		return "exclusive"
	case ModeNone:
		return "none"
	default:
		return "unknown"
	}
}

// LifecycleState is the coordinator's top-level state.
type LifecycleState int

const (
	StateClosed LifecycleState = iota
	StateOpen
)

// coordinatorMetrics is the narrow metrics capability the coordinator
// reports through. *metrics.CoordinatorMetrics satisfies it; nil disables
// instrumentation entirely.
type coordinatorMetrics interface {
	RecordOpen(mode string)
	ObserveUseCache(description string, d time.Duration)
	SetRegisteredCaches(n int)
	RecordContention()
	RecordLockAcquired(mode string, waited time.Duration)
	cacheMetricsSink
}

// StoreFactory builds the backing IndexedCache for a named cache. The
// default is storedcache.Open bound to a directory.
type StoreFactory func(name string) (IndexedCache, error)

// Coordinator is the CacheAccessCoordinator façade: it owns the lock state
// machine, the cache registry, and the store factory used to lazily build
// backing caches.
type Coordinator struct {
	lsm      *lockStateMachine
	registry *CacheRegistry
	newStore StoreFactory
	lruSize  int
	metrics  coordinatorMetrics
	log      *log.Logger
}

// Option configures a Coordinator at construction.
type Option func(*Coordinator)

// WithLRUSize sets the in-process LRU capacity for every cache built by this
// coordinator. Zero disables the LRU layer.
func WithLRUSize(n int) Option { return func(c *Coordinator) { c.lruSize = n } }

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m coordinatorMetrics) Option { return func(c *Coordinator) { c.metrics = m } }

// WithLogger overrides the coordinator's log destination.
func WithLogger(l *log.Logger) Option { return func(c *Coordinator) { c.log = l } }

// New constructs a Coordinator in the Closed state. lockFile is the path
// passed to manager.Lock; displayName is used only for log lines.
func New(mode LockMode, lockFile, displayName string, manager filelock.FileLockManager, initAction InitializationAction, newStore StoreFactory, opts ...Option) *Coordinator {
	c := &Coordinator{
		registry: newCacheRegistry(),
		newStore: newStore,
		lruSize:  256,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = log.New(os.Stderr, "[cacheaccess] ", log.LstdFlags)
	}
	c.lsm = newLockStateMachine(mode, lockFile, displayName, manager, initAction)
	if c.metrics != nil {
		c.lsm.onContentionObserved = c.metrics.RecordContention
		c.lsm.onLockAcquired = func(mode filelock.Mode, waited time.Duration) {
			c.metrics.RecordLockAcquired(mode.String(), waited)
		}
	}
	return c
}

// Open moves the coordinator from Closed to Open, acquiring a lock and
// running the initialization handshake when configured with
// ModeShared/ModeExclusive. Fails with *AlreadyOpenError on a second call.
func (c *Coordinator) Open() error {
	if err := c.lsm.open(); err != nil {
		return err
	}
	c.log.Printf("open (mode=%s)", c.lsm.mode)
	if c.metrics != nil {
		c.metrics.RecordOpen(c.lsm.mode.String())
	}
	return nil
}

// Close releases any held lock and moves the coordinator to Closed.
// Idempotent.
func (c *Coordinator) Close() error {
	err := c.lsm.close()
	c.registry.closeAll()
	c.log.Printf("closed")
	return err
}

// UseCache runs action with file-access ownership established: it acquires
// the Exclusive lock if not already held, establishes thread ownership
// (reentrant on the same call chain via ctx), runs action, and releases
// ownership on return without releasing the lock. Fails immediately with
// *SharedModeDoesNotSupportWriteError when the coordinator is in ModeShared.
//
// Nested UseCache/LongRunningOperation/FileAccess calls must use the ctx
// passed to action, not the ctx passed to the outer call, for reentrancy to
// be recognized.
func (c *Coordinator) UseCache(ctx context.Context, description string, action func(ctx context.Context) error) error {
	if c.lsm.mode == ModeShared {
		return &SharedModeDoesNotSupportWriteError{Description: description}
	}

	start := time.Now()
	newCtx, err := c.lsm.enterUseCache(ctx)
	if err != nil {
		return err
	}
	defer func() {
		c.lsm.exitUseCache()
		if c.metrics != nil {
			c.metrics.ObserveUseCache(description, time.Since(start))
			c.metrics.SetRegisteredCaches(c.registry.Len())
		}
	}()
	return action(newCtx)
}

// LongRunningOperation relinquishes ownership for the duration of action
// when called from inside a UseCache frame; if contention was signaled
// before or during action, the lock is closed as soon as ownership is
// released and reacquired when action returns. Called at the top level (no
// enclosing UseCache) it is a no-op with respect to the lock.
func (c *Coordinator) LongRunningOperation(ctx context.Context, description string, action func(ctx context.Context) error) error {
	newCtx, frame, err := c.lsm.enterLongRunning(ctx)
	if err != nil {
		return err
	}
	actionErr := action(newCtx)
	if restoreErr := c.lsm.exitLongRunning(frame); restoreErr != nil && actionErr == nil {
		return restoreErr
	}
	return actionErr
}

// WhenContended is the contention handler a FileLockManager invokes
// asynchronously when another process wants the lock. Idempotent and
// thread-safe; registered automatically every time a lock is acquired, so
// callers rarely need to invoke it directly.
func (c *Coordinator) WhenContended() {
	c.lsm.onContention()
}

// NewCache returns the MultiProcessSafeCache registered under params.Name,
// building it on first use via the coordinator's StoreFactory (and, if
// params.Decorator is set, wrapping it). Returns *InvalidCacheReuseError if
// params are incompatible with an already-registered cache of that name.
// Construction never acquires the lock; the lock is acquired on the first
// UseCache frame that touches the returned cache.
func (c *Coordinator) NewCache(params CacheParameters) (*MultiProcessSafeCache, error) {
	return c.registry.getOrBuild(params, func() (*MultiProcessSafeCache, error) {
		store, err := c.newStore(params.Name)
		if err != nil {
			return nil, fmt.Errorf("cacheaccess: build backing store for %q: %w", params.Name, err)
		}
		var persistent PersistentCache = store
		if params.Decorator != nil {
			persistent = params.Decorator.Decorate(params.Name, params.Name, persistent, c.crossProcessView(), c.asyncView())
		}
		var sink cacheMetricsSink
		if c.metrics != nil {
			sink = c.metrics
		}
		keySer := params.KeySerializer
		if keySer == nil {
			keySer = serialize.DefaultFor(params.KeyType)
		}
		valSer := params.ValueSerializer
		if valSer == nil {
			valSer = serialize.DefaultFor(params.ValueType)
		}
		return newMultiProcessSafeCache(params.Name, persistent, c.lruSize, sink, keySer, valSer)
	})
}

// FileAccess returns a façade bound to ctx's ownership token; its
// operations fail with *FileAccessRequiresLockError unless ctx was obtained
// from inside a UseCache frame on this call chain and a lock is currently
// held.
func (c *Coordinator) FileAccess(ctx context.Context) *FileAccess {
	return &FileAccess{lsm: c.lsm, tok: ownerOf(ctx)}
}

func (c *Coordinator) crossProcessView() CrossProcessCacheAccess { return crossProcessView{c} }
func (c *Coordinator) asyncView() AsyncCacheAccess               { return asyncView{} }

type crossProcessView struct{ c *Coordinator }

func (v crossProcessView) WithFileLock(ctx context.Context, fn func(ctx context.Context) error) error {
	return v.c.UseCache(ctx, "decorator", fn)
}

type asyncView struct{}

func (asyncView) Go(fn func()) { go fn() }
