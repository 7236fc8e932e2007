package storedcache

import (
	"fmt"

	"cachecoord/pkg/filelock"
)

// Initializer is the default InitializationAction: it considers a named
// store initialized once its index file exists, and initializes one by
// opening it and writing an empty index inside the lock's write-file region.
type Initializer struct {
	Dir  string
	Name string
}

// RequiresInitialization reports whether the named store's index file has
// not yet been created on disk.
func (in Initializer) RequiresInitialization(lock filelock.FileLock) (bool, error) {
	return !Exists(in.Dir, in.Name), nil
}

// Initialize creates an empty store on disk. Called while holding the
// Exclusive lock, inside lock.WriteFile.
func (in Initializer) Initialize(lock filelock.FileLock) error {
	s, err := Open(in.Dir, in.Name)
	if err != nil {
		return fmt.Errorf("storedcache: initialize %s: %w", in.Name, err)
	}
	s.mu.Lock()
	err = s.saveIndexLocked()
	s.mu.Unlock()
	if err != nil {
		s.Close()
		return fmt.Errorf("storedcache: initialize %s: %w", in.Name, err)
	}
	return s.Close()
}
