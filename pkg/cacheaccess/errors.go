package cacheaccess

import "fmt"

// AlreadyOpenError is returned by a second call to Coordinator.Open.
type AlreadyOpenError struct{}

func (e *AlreadyOpenError) Error() string { return "cacheaccess: coordinator already open" }

// SharedModeDoesNotSupportWriteError is returned by UseCache when the
// coordinator was constructed with ModeShared.
type SharedModeDoesNotSupportWriteError struct{ Description string }

func (e *SharedModeDoesNotSupportWriteError) Error() string {
	return fmt.Sprintf("cacheaccess: shared mode does not permit cache operations (%s)", e.Description)
}

// InvalidCacheReuseError is returned by NewCache when the requested
// parameters for an existing cache name are incompatible with the
// registered ones.
type InvalidCacheReuseError struct {
	Requested CacheParameters
	Existing  CacheParameters
}

func (e *InvalidCacheReuseError) Error() string {
	return fmt.Sprintf(
		"cacheaccess: cache %q already registered with incompatible parameters (key %s vs %s, value %s vs %s)",
		e.Requested.Name, e.Existing.KeyType, e.Requested.KeyType, e.Existing.ValueType, e.Requested.ValueType,
	)
}

// FileAccessRequiresLockError is returned by FileAccess operations called
// off the owner thread, or with no lock currently held.
type FileAccessRequiresLockError struct{ Op string }

func (e *FileAccessRequiresLockError) Error() string {
	return fmt.Sprintf("cacheaccess: file access requires acquired lock (%s)", e.Op)
}
