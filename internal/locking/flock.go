package locking

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/Dhairya-911/vedang-portfolio/pkg/fileutil"
	"github.com/Dhairya-911/vedang-portfolio/pkg/hashutil"
	"github.com/gofrs/flock"
)

// FileLock excludes other processes sharing dir through advisory file locks.
// Keys map to "<dir>/<blake3(key)[:16]>.lock". Goroutines of the same process
// are serialized by an in-memory lock first, since flock is per process.
type FileLock struct {
	dir   string
	local *MemLock

	mu    sync.Mutex
	files map[string]*flock.Flock
}

func NewFileLock(dir string) (*FileLock, error) {
	if err := fileutil.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("lock dir: %w", err)
	}
	return &FileLock{
		dir:   dir,
		local: NewMemLock(),
		files: make(map[string]*flock.Flock),
	}, nil
}

func (l *FileLock) DoWithLock(key string, fn func() error) error {
	return l.local.DoWithLock(key, func() error {
		fileLock := l.fileFor(key)
		if err := fileLock.Lock(); err != nil {
			return fmt.Errorf("acquire lock %s: %w", fileLock.Path(), err)
		}
		defer func() {
			_ = fileLock.Unlock()
		}()
		return fn()
	})
}

func (l *FileLock) fileFor(key string) *flock.Flock {
	l.mu.Lock()
	defer l.mu.Unlock()

	if f, ok := l.files[key]; ok {
		return f
	}
	f := flock.New(filepath.Join(l.dir, hashutil.KeyDigest(key)[:16]+".lock"))
	l.files[key] = f
	return f
}
