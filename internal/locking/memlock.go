package locking

import "sync"

// MemLock holds one mutex per key. It only excludes goroutines within a
// single process; tests and the memory storage backend use it.
type MemLock struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMemLock() *MemLock {
	return &MemLock{
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *MemLock) DoWithLock(key string, fn func() error) error {
	s.Lock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	s.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn()
}
