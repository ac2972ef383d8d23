package locking

// Group runs functions with mutual exclusion over string keys.
type Group interface {
	// DoWithLock runs fn while holding the lock for key.
	DoWithLock(key string, fn func() error) error
}

// NoOpGroup runs fn without any locking.
type NoOpGroup struct{}

func (NoOpGroup) DoWithLock(_ string, fn func() error) error {
	return fn()
}
