// Package partitiontest holds the behaviour every partition.Store adapter
// must satisfy. Adapter tests call RunStoreSuite with their constructor.
package partitiontest

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Dhairya-911/vedang-portfolio/internal/partition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(key string, body string) partition.Entry {
	return partition.Entry{
		Key: key,
		Response: partition.Response{
			Status: http.StatusOK,
			Header: http.Header{"Content-Type": {"text/plain"}},
			Body:   []byte(body),
		},
		StoredAt: time.UnixMilli(1_700_000_000_000).UTC(),
	}
}

// RunStoreSuite runs the shared Store contract against stores built by newStore.
func RunStoreSuite(t *testing.T, newStore func(t *testing.T) partition.Store) {
	ctx := context.Background()

	t.Run("open is idempotent and keeps entries", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Open(ctx, "p"))
		require.NoError(t, store.Put(ctx, "p", entry("GET https://a/1", "one")))
		require.NoError(t, store.Open(ctx, "p"))

		count, err := store.Count(ctx, "p")
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		names, err := store.Names(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"p"}, names)
	})

	t.Run("match returns stored response", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Open(ctx, "p"))
		require.NoError(t, store.Put(ctx, "p", entry("GET https://a/x.jpg", "pixels")))

		got, ok, err := store.Match(ctx, "p", "GET https://a/x.jpg")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "GET https://a/x.jpg", got.Key)
		assert.Equal(t, http.StatusOK, got.Response.Status)
		assert.Equal(t, "text/plain", got.Response.Header.Get("Content-Type"))
		assert.Equal(t, []byte("pixels"), got.Response.Body)
		assert.True(t, got.StoredAt.Equal(time.UnixMilli(1_700_000_000_000)))

		_, ok, err = store.Match(ctx, "p", "GET https://a/missing.jpg")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("match on unknown partition is a miss", func(t *testing.T) {
		store := newStore(t)
		_, ok, err := store.Match(ctx, "nope", "GET https://a/1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("put on unopened partition fails", func(t *testing.T) {
		store := newStore(t)
		err := store.Put(ctx, "nope", entry("GET https://a/1", "x"))
		require.Error(t, err)
		assert.ErrorIs(t, err, &partition.StorageError{Cause: partition.ErrCausePartitionNotFound})
	})

	t.Run("keys are in insertion order and overwrite moves to newest", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Open(ctx, "p"))
		for i := 1; i <= 3; i++ {
			require.NoError(t, store.Put(ctx, "p", entry(fmt.Sprintf("GET https://a/%d", i), "v1")))
		}
		require.NoError(t, store.Put(ctx, "p", entry("GET https://a/1", "v2")))

		keys, err := store.Keys(ctx, "p")
		require.NoError(t, err)
		assert.Equal(t, []string{"GET https://a/2", "GET https://a/3", "GET https://a/1"}, keys)

		got, ok, err := store.Match(ctx, "p", "GET https://a/1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte("v2"), got.Response.Body)

		count, err := store.Count(ctx, "p")
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("delete removes a single entry", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Open(ctx, "p"))
		require.NoError(t, store.Put(ctx, "p", entry("GET https://a/1", "x")))

		removed, err := store.Delete(ctx, "p", "GET https://a/1")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = store.Delete(ctx, "p", "GET https://a/1")
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("partitions are isolated", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Open(ctx, "a"))
		require.NoError(t, store.Open(ctx, "b"))
		require.NoError(t, store.Put(ctx, "a", entry("GET https://a/1", "x")))

		_, ok, err := store.Match(ctx, "b", "GET https://a/1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("drop removes partition and entries", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Open(ctx, "old"))
		require.NoError(t, store.Open(ctx, "new"))
		require.NoError(t, store.Put(ctx, "old", entry("GET https://a/1", "x")))

		dropped, err := store.Drop(ctx, "old")
		require.NoError(t, err)
		assert.True(t, dropped)

		names, err := store.Names(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"new"}, names)

		count, err := store.Count(ctx, "old")
		require.NoError(t, err)
		assert.Zero(t, count)

		dropped, err = store.Drop(ctx, "old")
		require.NoError(t, err)
		assert.False(t, dropped)

		err = store.Put(ctx, "old", entry("GET https://a/2", "x"))
		assert.ErrorIs(t, err, &partition.StorageError{Cause: partition.ErrCausePartitionNotFound})
	})

	t.Run("seal survives reopen and is cleared by drop", func(t *testing.T) {
		store := newStore(t)
		sealed, err := store.Sealed(ctx, "p")
		require.NoError(t, err)
		assert.False(t, sealed)

		err = store.Seal(ctx, "p")
		assert.ErrorIs(t, err, &partition.StorageError{Cause: partition.ErrCausePartitionNotFound})

		require.NoError(t, store.Open(ctx, "p"))
		sealed, err = store.Sealed(ctx, "p")
		require.NoError(t, err)
		assert.False(t, sealed)

		require.NoError(t, store.Seal(ctx, "p"))
		require.NoError(t, store.Open(ctx, "p"))
		sealed, err = store.Sealed(ctx, "p")
		require.NoError(t, err)
		assert.True(t, sealed)

		_, err = store.Drop(ctx, "p")
		require.NoError(t, err)
		require.NoError(t, store.Open(ctx, "p"))
		sealed, err = store.Sealed(ctx, "p")
		require.NoError(t, err)
		assert.False(t, sealed)
	})

	t.Run("concurrent puts are each atomic", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Open(ctx, "p"))

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, store.Put(ctx, "p", entry(fmt.Sprintf("GET https://a/%d", i%4), fmt.Sprintf("body-%d", i))))
			}(i)
		}
		wg.Wait()

		count, err := store.Count(ctx, "p")
		require.NoError(t, err)
		assert.Equal(t, 4, count)

		keys, err := store.Keys(ctx, "p")
		require.NoError(t, err)
		assert.Len(t, keys, 4)
	})
}
