package partition

import "context"

// Store is the persistence port behind the registry. Each call is atomic on
// its own; there are no multi-call transactions and the last writer wins.
//
// Put on a name that was never opened, or has been dropped, fails with
// ErrCausePartitionNotFound. Match on such a name is a miss.
type Store interface {
	Open(ctx context.Context, name string) error
	Match(ctx context.Context, name string, key string) (Entry, bool, error)
	// Put inserts or replaces the entry for entry.Key. A replaced key moves
	// to the newest insertion position.
	Put(ctx context.Context, name string, entry Entry) error
	Delete(ctx context.Context, name string, key string) (bool, error)
	// Keys lists keys in insertion order, oldest first.
	Keys(ctx context.Context, name string) ([]string, error)
	Count(ctx context.Context, name string) (int, error)
	Names(ctx context.Context) ([]string, error)
	Drop(ctx context.Context, name string) (bool, error)
	// Seal marks an open partition as fully precached. The mark survives
	// reopening and is removed by Drop.
	Seal(ctx context.Context, name string) error
	Sealed(ctx context.Context, name string) (bool, error)
	Close() error
}
