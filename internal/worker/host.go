package worker

import (
	"context"
	"sync"

	"github.com/Dhairya-911/vedang-portfolio/internal/config"
)

// Host owns the controlling worker and swaps it on deploy.
type Host struct {
	deps Deps

	mu      sync.RWMutex
	current *Worker
}

func NewHost(deps Deps) *Host {
	return &Host{deps: deps}
}

// Current returns the controlling worker, or nil before the first
// successful deploy.
func (h *Host) Current() *Worker {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Deploy installs a worker for cfg and, on success, activates it and
// supersedes the previous one. A version whose install already completed in
// storage is resumed without precaching. A failed install or activate
// leaves the previous worker serving.
func (h *Host) Deploy(ctx context.Context, cfg config.Config) (*Worker, error) {
	next := New(cfg, h.deps)
	resumed, err := next.Resume(ctx)
	if err != nil {
		return nil, err
	}
	if !resumed {
		if err := next.Install(ctx); err != nil {
			return nil, err
		}
	}
	if _, err := next.Activate(ctx); err != nil {
		return nil, err
	}

	h.mu.Lock()
	previous := h.current
	h.current = next
	h.mu.Unlock()

	if previous != nil {
		previous.Supersede()
		previous.Wait()
	}
	return next, nil
}

// Wait blocks until the current worker's background work settles.
func (h *Host) Wait() {
	if w := h.Current(); w != nil {
		w.Wait()
	}
}
