package partition

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Registry hands out Partition handles over a Store.
type Registry struct {
	store Store
	now   func() time.Time
}

func NewRegistry(store Store) *Registry {
	return &Registry{
		store: store,
		now:   time.Now,
	}
}

// Open returns a handle for name, creating the partition if absent.
// Opening an existing partition never clears it.
func (r *Registry) Open(ctx context.Context, name string) (*Partition, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &StorageError{Message: "empty name", Cause: ErrCauseInvalidName}
	}
	if err := r.store.Open(ctx, name); err != nil {
		return nil, err
	}
	return &Partition{name: name, store: r.store, now: r.now}, nil
}

// Partition returns a handle without creating the partition. Reads through
// it miss and writes fail with ErrCausePartitionNotFound until the
// partition is opened, so a dropped partition is never resurrected.
func (r *Registry) Partition(name string) *Partition {
	return &Partition{name: name, store: r.store, now: r.now}
}

// Names lists every partition currently in storage.
func (r *Registry) Names(ctx context.Context) ([]string, error) {
	return r.store.Names(ctx)
}

// Drop deletes a partition and every entry in it. Reports whether it existed.
func (r *Registry) Drop(ctx context.Context, name string) (bool, error) {
	return r.store.Drop(ctx, name)
}

func (r *Registry) Close() error {
	return r.store.Close()
}

// Partition is a handle to one named partition. Handles are cheap; two
// handles for the same name observe the same entries.
type Partition struct {
	name  string
	store Store
	now   func() time.Time
}

func (p *Partition) Name() string {
	return p.name
}

func (p *Partition) Match(ctx context.Context, req *http.Request) (Entry, bool, error) {
	return p.MatchKey(ctx, Key(req))
}

func (p *Partition) MatchKey(ctx context.Context, key string) (Entry, bool, error) {
	return p.store.Match(ctx, p.name, key)
}

// Put stores a copy of resp under the request's key. Cookies set by the
// origin are not kept.
func (p *Partition) Put(ctx context.Context, req *http.Request, resp Response) error {
	return p.PutKey(ctx, Key(req), resp)
}

func (p *Partition) PutKey(ctx context.Context, key string, resp Response) error {
	stored := resp.Clone()
	stored.Header.Del("Set-Cookie")
	return p.store.Put(ctx, p.name, Entry{
		Key:      key,
		Response: stored,
		StoredAt: p.now(),
	})
}

func (p *Partition) Delete(ctx context.Context, req *http.Request) (bool, error) {
	return p.DeleteKey(ctx, Key(req))
}

func (p *Partition) DeleteKey(ctx context.Context, key string) (bool, error) {
	return p.store.Delete(ctx, p.name, key)
}

func (p *Partition) Keys(ctx context.Context) ([]string, error) {
	return p.store.Keys(ctx, p.name)
}

func (p *Partition) Count(ctx context.Context) (int, error) {
	return p.store.Count(ctx, p.name)
}

func (p *Partition) Seal(ctx context.Context) error {
	return p.store.Seal(ctx, p.name)
}

// Sealed is false for partitions that do not exist.
func (p *Partition) Sealed(ctx context.Context) (bool, error) {
	return p.store.Sealed(ctx, p.name)
}
