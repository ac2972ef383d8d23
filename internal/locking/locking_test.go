package locking_test

import (
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Dhairya-911/vedang-portfolio/internal/locking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertExclusive(t *testing.T, group locking.Group) {
	t.Helper()

	var inside int32
	var overlap int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := group.DoWithLock("vedang", func() error {
				if atomic.AddInt32(&inside, 1) > 1 {
					atomic.StoreInt32(&overlap, 1)
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(0), atomic.LoadInt32(&overlap), "critical sections overlapped")
}

func TestMemLock_Exclusive(t *testing.T) {
	assertExclusive(t, locking.NewMemLock())
}

func TestFileLock_Exclusive(t *testing.T) {
	group, err := locking.NewFileLock(t.TempDir())
	require.NoError(t, err)
	assertExclusive(t, group)
}

func TestFileLock_CreatesLockFile(t *testing.T) {
	dir := t.TempDir()
	group, err := locking.NewFileLock(dir)
	require.NoError(t, err)

	require.NoError(t, group.DoWithLock("vedang", func() error { return nil }))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), ".lock")
}

func TestDoWithLock_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	groups := map[string]locking.Group{
		"noop": locking.NoOpGroup{},
		"mem":  locking.NewMemLock(),
	}
	for name, group := range groups {
		t.Run(name, func(t *testing.T) {
			err := group.DoWithLock("k", func() error { return boom })
			assert.ErrorIs(t, err, boom)
		})
	}
}
