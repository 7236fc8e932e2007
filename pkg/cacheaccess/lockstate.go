package cacheaccess

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cachecoord/pkg/filelock"
)

// ownerToken is the unit of thread ownership. Go exposes no stable
// goroutine identity, so ownership is carried explicitly through
// context.Context rather than compared against a goroutine ID: a token
// minted on entry to the outermost UseCache frame and threaded into nested
// calls via the ctx passed to the caller's action is what makes reentrancy
// on "the owner thread" observable.
type ownerToken struct{}

type ctxOwnerKey struct{}

func withOwner(ctx context.Context, tok *ownerToken) context.Context {
	return context.WithValue(ctx, ctxOwnerKey{}, tok)
}

func ownerOf(ctx context.Context) *ownerToken {
	tok, _ := ctx.Value(ctxOwnerKey{}).(*ownerToken)
	return tok
}

// lockStateMachine holds the mutable lock and ownership state described in
// the data model: lifecycle state, the current lock (if any), the owner
// token and its reentrancy depth, and whether contention has been signaled.
// All fields are guarded by mu; the condition variable wakes goroutines
// blocked waiting for ownership to free up.
type lockStateMachine struct {
	mode        LockMode
	lockFile    string
	displayName string
	manager     filelock.FileLockManager
	initAction  InitializationAction

	mu   sync.Mutex
	cond *sync.Cond

	state             LifecycleState
	currentLock       filelock.FileLock
	owner             *ownerToken
	depth             int
	contentionPending bool
	needsReacquire    bool

	onContentionObserved func()
	onLockAcquired       func(mode filelock.Mode, waited time.Duration)
}

func newLockStateMachine(mode LockMode, lockFile, displayName string, manager filelock.FileLockManager, initAction InitializationAction) *lockStateMachine {
	lsm := &lockStateMachine{
		mode:        mode,
		lockFile:    lockFile,
		displayName: displayName,
		manager:     manager,
		initAction:  initAction,
		state:       StateClosed,
	}
	lsm.cond = sync.NewCond(&lsm.mu)
	return lsm
}

// open implements CacheAccessCoordinator.open: Shared/Exclusive acquire a
// lock and run the initialization handshake up front; None leaves the
// coordinator open with no lock.
func (lsm *lockStateMachine) open() error {
	lsm.mu.Lock()
	if lsm.state != StateClosed {
		lsm.mu.Unlock()
		return &AlreadyOpenError{}
	}
	lsm.state = StateOpen
	lsm.mu.Unlock()

	if lsm.mode == ModeNone {
		return nil
	}

	fm := filelock.Shared
	if lsm.mode == ModeExclusive {
		fm = filelock.Exclusive
	}
	lock, err := lsm.acquireWithInit(fm)
	if err != nil {
		lsm.mu.Lock()
		lsm.state = StateClosed
		lsm.mu.Unlock()
		return err
	}

	lsm.mu.Lock()
	lsm.currentLock = lock
	lsm.needsReacquire = false
	lsm.mu.Unlock()
	lsm.manager.AllowContention(lock, lsm.onContention)
	return nil
}

// timedLock acquires lockFile in mode fm, reporting the wait duration
// through onLockAcquired when metrics are enabled.
func (lsm *lockStateMachine) timedLock(fm filelock.Mode) (filelock.FileLock, error) {
	start := time.Now()
	lock, err := lsm.manager.Lock(lsm.lockFile, fm, lsm.displayName)
	if err != nil {
		return nil, err
	}
	if lsm.onLockAcquired != nil {
		lsm.onLockAcquired(fm, time.Since(start))
	}
	return lock, nil
}

// acquireWithInit acquires lockFile in mode fm and runs the initialization
// handshake (spec §4.2). The returned lock's mode always equals fm, even
// though a Shared acquisition may transiently upgrade to Exclusive and back
// while initializing.
func (lsm *lockStateMachine) acquireWithInit(fm filelock.Mode) (filelock.FileLock, error) {
	lock, err := lsm.timedLock(fm)
	if err != nil {
		return nil, fmt.Errorf("cacheaccess: acquire %s lock: %w", fm, err)
	}

	needsInit, err := lsm.initAction.RequiresInitialization(lock)
	if err != nil {
		lock.Close()
		return nil, fmt.Errorf("cacheaccess: requires-initialization check: %w", err)
	}
	if !needsInit {
		return lock, nil
	}

	if fm == filelock.Exclusive {
		if err := lock.WriteFile(func() error { return lsm.initAction.Initialize(lock) }); err != nil {
			lock.Close()
			return nil, fmt.Errorf("cacheaccess: initialize: %w", err)
		}
		return lock, nil
	}

	// fm == Shared: upgrade to Exclusive for the duration of initialization.
	if err := lock.Close(); err != nil {
		return nil, fmt.Errorf("cacheaccess: close shared lock before upgrade: %w", err)
	}
	exLock, err := lsm.timedLock(filelock.Exclusive)
	if err != nil {
		return nil, fmt.Errorf("cacheaccess: acquire exclusive lock for init: %w", err)
	}
	needsInit, err = lsm.initAction.RequiresInitialization(exLock)
	if err != nil {
		exLock.Close()
		return nil, fmt.Errorf("cacheaccess: requires-initialization recheck: %w", err)
	}
	if needsInit {
		if err := exLock.WriteFile(func() error { return lsm.initAction.Initialize(exLock) }); err != nil {
			exLock.Close()
			return nil, fmt.Errorf("cacheaccess: initialize: %w", err)
		}
	}
	if err := exLock.Close(); err != nil {
		return nil, fmt.Errorf("cacheaccess: close exclusive lock after init: %w", err)
	}
	shLock, err := lsm.timedLock(filelock.Shared)
	if err != nil {
		return nil, fmt.Errorf("cacheaccess: reacquire shared lock after init: %w", err)
	}
	return shLock, nil
}

// enterUseCache implements the enter-use-cache transition. The returned
// context carries the ownership token callers must thread into any nested
// UseCache/LongRunningOperation/FileAccess calls.
func (lsm *lockStateMachine) enterUseCache(ctx context.Context) (context.Context, error) {
	lsm.mu.Lock()
	tok := ownerOf(ctx)
	for lsm.owner != nil && lsm.owner != tok {
		lsm.cond.Wait()
	}
	if lsm.owner != nil && lsm.owner == tok {
		lsm.depth++
		lsm.mu.Unlock()
		return ctx, nil
	}

	newTok := &ownerToken{}
	lsm.owner = newTok
	lsm.depth = 1
	needAcquire := lsm.currentLock == nil
	lsm.mu.Unlock()

	if needAcquire {
		lock, err := lsm.acquireWithInit(filelock.Exclusive)
		if err != nil {
			lsm.mu.Lock()
			lsm.owner = nil
			lsm.depth = 0
			lsm.cond.Broadcast()
			lsm.mu.Unlock()
			return ctx, err
		}
		lsm.mu.Lock()
		lsm.currentLock = lock
		lsm.needsReacquire = false
		lsm.mu.Unlock()
		lsm.manager.AllowContention(lock, lsm.onContention)
	}

	return withOwner(ctx, newTok), nil
}

// exitUseCache implements exit-use-cache: decrement depth, clear owner at
// zero. The lock itself is never released here.
func (lsm *lockStateMachine) exitUseCache() {
	lsm.mu.Lock()
	lsm.depth--
	if lsm.depth <= 0 {
		lsm.owner = nil
		lsm.depth = 0
		lsm.cond.Broadcast()
	}
	lsm.mu.Unlock()
}

// longRunningFrame records what enterLongRunning did, for exitLongRunning to
// undo.
type longRunningFrame struct {
	wasActive bool
	tok       *ownerToken
	depth     int
}

// enterLongRunning implements enter-long-running. Called at the top level
// (ctx carries no token for the current owner) it is a no-op, matching the
// spec's "longRunningOperation at the top level... no-ops with respect to
// the lock and ownership".
func (lsm *lockStateMachine) enterLongRunning(ctx context.Context) (context.Context, *longRunningFrame, error) {
	tok := ownerOf(ctx)
	lsm.mu.Lock()
	if tok == nil || lsm.owner != tok {
		lsm.mu.Unlock()
		return ctx, &longRunningFrame{}, nil
	}

	frame := &longRunningFrame{wasActive: true, tok: lsm.owner, depth: lsm.depth}
	lsm.owner = nil
	lsm.depth = 0

	var lockToClose filelock.FileLock
	if lsm.contentionPending {
		lockToClose = lsm.currentLock
		lsm.currentLock = nil
		lsm.needsReacquire = true
		lsm.contentionPending = false
	}
	lsm.cond.Broadcast()
	lsm.mu.Unlock()

	if lockToClose != nil {
		lockToClose.Close()
	}
	return withOwner(ctx, nil), frame, nil
}

// exitLongRunning implements exit-long-running: reacquire the lock if it
// was closed mid-operation, then restore ownership.
func (lsm *lockStateMachine) exitLongRunning(frame *longRunningFrame) error {
	if !frame.wasActive {
		return nil
	}

	lsm.mu.Lock()
	needsReacquire := lsm.needsReacquire
	lsm.mu.Unlock()

	if needsReacquire {
		lock, err := lsm.acquireWithInit(filelock.Exclusive)
		if err != nil {
			return err
		}
		lsm.mu.Lock()
		lsm.currentLock = lock
		lsm.needsReacquire = false
		lsm.mu.Unlock()
		lsm.manager.AllowContention(lock, lsm.onContention)
	}

	lsm.mu.Lock()
	for lsm.owner != nil {
		lsm.cond.Wait()
	}
	lsm.owner = frame.tok
	lsm.depth = frame.depth
	lsm.mu.Unlock()
	return nil
}

// onContention implements the whenContended-fired transition. It is
// registered as the manager's ContentionCallback every time a lock is
// acquired.
func (lsm *lockStateMachine) onContention() {
	lsm.mu.Lock()
	if lsm.state == StateClosed || lsm.currentLock == nil {
		lsm.mu.Unlock()
		return
	}
	if observe := lsm.onContentionObserved; observe != nil {
		observe()
	}
	if lsm.owner != nil {
		lsm.contentionPending = true
		lsm.mu.Unlock()
		return
	}
	lock := lsm.currentLock
	lsm.currentLock = nil
	lsm.needsReacquire = true
	lsm.mu.Unlock()
	lock.Close()
}

// close implements the close transition: idempotent, releases any held
// lock, leaves the machine Closed.
func (lsm *lockStateMachine) close() error {
	lsm.mu.Lock()
	if lsm.state == StateClosed {
		lsm.mu.Unlock()
		return nil
	}
	lock := lsm.currentLock
	lsm.currentLock = nil
	lsm.owner = nil
	lsm.depth = 0
	lsm.contentionPending = false
	lsm.needsReacquire = false
	lsm.state = StateClosed
	lsm.cond.Broadcast()
	lsm.mu.Unlock()

	if lock != nil {
		return lock.Close()
	}
	return nil
}
