package eviction

import (
	"context"
	"time"
)

// DefaultCleanupInterval is how often the janitor runs when unset.
const DefaultCleanupInterval = 5 * time.Minute

type Cleaner interface {
	Clean(ctx context.Context) (int, error)
}

// Janitor runs a Cleaner on a fixed interval. Eviction never happens on
// the request path.
type Janitor struct {
	interval time.Duration
	cleaner  Cleaner
}

func NewJanitor(interval time.Duration, cleaner Cleaner) *Janitor {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &Janitor{interval: interval, cleaner: cleaner}
}

// Run blocks until ctx is cancelled. Clean failures are already recorded by
// the cleaner and do not stop the loop.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = j.cleaner.Clean(ctx)
		}
	}
}
