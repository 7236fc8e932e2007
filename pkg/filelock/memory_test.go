package filelock

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryManagerExclusiveMutualExclusion(t *testing.T) {
	m := NewMemoryManager()
	path := "test.lock"

	lock, err := m.Lock(path, Exclusive, "holder")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		l2, err := m.Lock(path, Exclusive, "waiter")
		require.NoError(t, err)
		close(acquired)
		l2.Close()
	}()

	select {
	case <-acquired:
		t.Fatal("second exclusive lock acquired while first still held")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, lock.Close())
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second exclusive lock never acquired after release")
	}
}

func TestMemoryManagerSharedReadersConcurrent(t *testing.T) {
	m := NewMemoryManager()
	path := "shared.lock"

	var wg sync.WaitGroup
	var concurrent int32
	var maxConcurrent int32

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock, err := m.Lock(path, Shared, "reader")
			require.NoError(t, err)
			defer lock.Close()

			n := atomic.AddInt32(&concurrent, 1)
			for {
				max := atomic.LoadInt32(&maxConcurrent)
				if n <= max || atomic.CompareAndSwapInt32(&maxConcurrent, max, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&concurrent, -1)
		}()
	}
	wg.Wait()

	assert.Greater(t, atomic.LoadInt32(&maxConcurrent), int32(1), "shared locks should allow concurrent holders")
}

func TestMemoryManagerSimulateContention(t *testing.T) {
	m := NewMemoryManager()
	path := "contended.lock"

	lock, err := m.Lock(path, Exclusive, "holder")
	require.NoError(t, err)

	var fired int32
	m.AllowContention(lock, func() { atomic.AddInt32(&fired, 1) })

	m.SimulateContention(path)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))

	m.SimulateContention(path)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fired))

	require.NoError(t, lock.Close())
}

func TestMemFileLockCloseIdempotent(t *testing.T) {
	m := NewMemoryManager()
	lock, err := m.Lock("idempotent.lock", Exclusive, "holder")
	require.NoError(t, err)
	require.NoError(t, lock.Close())
	require.NoError(t, lock.Close())
}

func TestMemFileLockRunGuardedAfterClose(t *testing.T) {
	m := NewMemoryManager()
	lock, err := m.Lock("closed.lock", Exclusive, "holder")
	require.NoError(t, err)
	require.NoError(t, lock.Close())

	err = lock.WriteFile(func() error { return nil })
	assert.ErrorIs(t, err, ErrLockClosed)
}
