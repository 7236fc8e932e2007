package cacheaccess

import "cachecoord/pkg/filelock"

// FileAccess delegates updateFile/writeFile/readFile to the currently held
// FileLock, but only for the goroutine that holds ownership. Off-owner
// calls, calls made with no lock currently held, and calls inside a
// LongRunningOperation (a nested one strips ownership from its ctx; a
// top-level one's ctx never carried any) fail with
// FileAccessRequiresLockError.
type FileAccess struct {
	lsm *lockStateMachine
	tok *ownerToken
}

func (f *FileAccess) lockForOp(op string) (filelock.FileLock, error) {
	f.lsm.mu.Lock()
	defer f.lsm.mu.Unlock()
	if f.tok == nil || f.lsm.owner != f.tok || f.lsm.currentLock == nil {
		return nil, &FileAccessRequiresLockError{Op: op}
	}
	return f.lsm.currentLock, nil
}

// WriteFile runs fn as a crash-safe region via the held lock.
func (f *FileAccess) WriteFile(fn func() error) error {
	lock, err := f.lockForOp("writeFile")
	if err != nil {
		return err
	}
	return lock.WriteFile(fn)
}

// UpdateFile runs fn with the held lock, no crash-safety guarantee beyond
// the lock itself.
func (f *FileAccess) UpdateFile(fn func() error) error {
	lock, err := f.lockForOp("updateFile")
	if err != nil {
		return err
	}
	return lock.UpdateFile(fn)
}

// ReadFile runs fn with the held lock for a read.
func (f *FileAccess) ReadFile(fn func() error) error {
	lock, err := f.lockForOp("readFile")
	if err != nil {
		return err
	}
	return lock.ReadFile(fn)
}
