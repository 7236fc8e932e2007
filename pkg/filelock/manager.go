package filelock

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// DefaultWaiterPollInterval is how often a lock holder checks whether a peer
// process is waiting on the same path.
const DefaultWaiterPollInterval = 150 * time.Millisecond

// Manager is a FileLockManager backed by github.com/gofrs/flock advisory
// locks. Because gofrs/flock exposes no contention notification of its own,
// Manager layers a waiter-counter file on top: any caller blocked in Lock
// increments a counter file before blocking and decrements it after
// acquiring, and the holder of a lock polls that counter in the background
// to detect a rising edge and fire the registered contention callback.
type Manager struct {
	log          *log.Logger
	pollInterval time.Duration

	mu      sync.Mutex
	waiters map[string]*waiterCount
}

// NewManager constructs a Manager that polls waiter counters at interval.
// A zero interval uses DefaultWaiterPollInterval.
func NewManager(logger *log.Logger, interval time.Duration) *Manager {
	if logger == nil {
		logger = log.New(os.Stderr, "[filelock] ", log.LstdFlags)
	}
	if interval <= 0 {
		interval = DefaultWaiterPollInterval
	}
	return &Manager{log: logger, pollInterval: interval, waiters: make(map[string]*waiterCount)}
}

type waiterCount struct {
	mu   sync.Mutex
	path string
}

func (m *Manager) waiterPath(lockFile string) *waiterCount {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.waiters[lockFile]
	if !ok {
		w = &waiterCount{path: lockFile + ".waiters"}
		m.waiters[lockFile] = w
	}
	return w
}

func (w *waiterCount) adjust(delta int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	guard := flock.New(w.path + ".lock")
	if err := guard.Lock(); err != nil {
		return fmt.Errorf("filelock: waiter counter guard: %w", err)
	}
	defer guard.Unlock()

	n := 0
	if raw, err := os.ReadFile(w.path); err == nil {
		n, _ = strconv.Atoi(string(raw))
	}
	n += delta
	if n < 0 {
		n = 0
	}
	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(n)), 0o644); err != nil {
		return fmt.Errorf("filelock: write waiter counter: %w", err)
	}
	return os.Rename(tmp, w.path)
}

func (w *waiterCount) read() int {
	raw, err := os.ReadFile(w.path)
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(string(raw))
	return n
}

// Lock blocks until lockFile is acquired in the requested mode.
func (m *Manager) Lock(lockFile string, mode Mode, displayName string) (FileLock, error) {
	fl := flock.New(lockFile)
	w := m.waiterPath(lockFile)

	if err := w.adjust(1); err != nil {
		m.log.Printf("%s: failed to register waiter: %v", displayName, err)
	}
	var err error
	if mode == Exclusive {
		err = fl.Lock()
	} else {
		err = fl.RLock()
	}
	if adjErr := w.adjust(-1); adjErr != nil {
		m.log.Printf("%s: failed to clear waiter: %v", displayName, adjErr)
	}
	if err != nil {
		return nil, fmt.Errorf("filelock: acquire %s lock on %s: %w", mode, lockFile, err)
	}

	m.log.Printf("%s: acquired %s lock on %s", displayName, mode, lockFile)
	handle := &fileLock{
		mode:        mode,
		flock:       fl,
		waiter:      w,
		displayName: displayName,
		log:         m.log,
		pollEvery:   m.pollInterval,
		stop:        make(chan struct{}),
	}
	return handle, nil
}

// AllowContention registers cb to run when a peer process is detected
// waiting on lock's path. Starts the background poller if it is not already
// running; otherwise only the callback is replaced.
func (m *Manager) AllowContention(lock FileLock, cb ContentionCallback) {
	fl, ok := lock.(*fileLock)
	if !ok {
		return
	}
	fl.setCallback(cb)
}

type fileLock struct {
	mode        Mode
	flock       *flock.Flock
	waiter      *waiterCount
	displayName string
	log         *log.Logger
	pollEvery   time.Duration

	mu       sync.Mutex
	cb       ContentionCallback
	closed   bool
	stop     chan struct{}
	watching bool
}

func (f *fileLock) Mode() Mode { return f.mode }

func (f *fileLock) setCallback(cb ContentionCallback) {
	f.mu.Lock()
	f.cb = cb
	alreadyWatching := f.watching
	f.watching = true
	f.mu.Unlock()
	if !alreadyWatching {
		go f.watch()
	}
}

func (f *fileLock) watch() {
	ticker := time.NewTicker(f.pollEvery)
	defer ticker.Stop()
	sawWaiters := false
	for {
		select {
		case <-f.stop:
			return
		case <-ticker.C:
			n := f.waiter.read()
			if n > 0 && !sawWaiters {
				sawWaiters = true
				f.mu.Lock()
				cb := f.cb
				f.mu.Unlock()
				if cb != nil {
					f.log.Printf("%s: contention detected on %s", f.displayName, f.waiter.path)
					cb()
				}
			} else if n == 0 {
				sawWaiters = false
			}
		}
	}
}

func (f *fileLock) WriteFile(fn func() error) error {
	return f.runGuarded(fn)
}

func (f *fileLock) UpdateFile(fn func() error) error {
	return f.runGuarded(fn)
}

func (f *fileLock) ReadFile(fn func() error) error {
	return f.runGuarded(fn)
}

func (f *fileLock) runGuarded(fn func() error) error {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return ErrLockClosed
	}
	return fn()
}

func (f *fileLock) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	watching := f.watching
	f.mu.Unlock()

	if watching {
		close(f.stop)
	}
	f.log.Printf("%s: released %s lock", f.displayName, f.mode)
	return f.flock.Unlock()
}
