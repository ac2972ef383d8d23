package memory

import (
	"container/list"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Dhairya-911/vedang-portfolio/internal/partition"
)

// Store is an in-memory partition.Store. Each partition keeps its entries in
// a list ordered by insertion, with a map index for O(1) lookups.
//
// Contents live only as long as the process. An optional byte quota makes
// Put fail with ErrCauseQuotaExceeded instead of growing without bound.
type Store struct {
	mu         sync.RWMutex
	partitions map[string]*bucket
	seq        int64
	maxBytes   int64
	usedBytes  int64
}

type bucket struct {
	order  *list.List
	items  map[string]*list.Element
	sealed bool
}

// NewStore creates an empty store. maxBytes <= 0 disables the quota.
func NewStore(maxBytes int64) *Store {
	return &Store{
		partitions: make(map[string]*bucket),
		maxBytes:   maxBytes,
	}
}

func (s *Store) Open(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.partitions[name]; !ok {
		s.partitions[name] = &bucket{
			order: list.New(),
			items: make(map[string]*list.Element),
		}
	}
	return nil
}

func (s *Store) Match(_ context.Context, name string, key string) (partition.Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.partitions[name]
	if !ok {
		return partition.Entry{}, false, nil
	}
	elem, ok := b.items[key]
	if !ok {
		return partition.Entry{}, false, nil
	}
	entry := elem.Value.(*partition.Entry)
	out := *entry
	out.Response = entry.Response.Clone()
	return out, true, nil
}

func (s *Store) Put(_ context.Context, name string, entry partition.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.partitions[name]
	if !ok {
		return &partition.StorageError{
			Message:   "partition is not open",
			Cause:     partition.ErrCausePartitionNotFound,
			Partition: name,
		}
	}

	var replacedSize int64
	if elem, exists := b.items[entry.Key]; exists {
		replacedSize = elem.Value.(*partition.Entry).Response.Size()
	}
	newSize := entry.Response.Size()
	if s.maxBytes > 0 && s.usedBytes-replacedSize+newSize > s.maxBytes {
		return &partition.StorageError{
			Message:   fmt.Sprintf("entry of %d bytes exceeds quota of %d bytes", newSize, s.maxBytes),
			Retryable: true,
			Cause:     partition.ErrCauseQuotaExceeded,
			Partition: name,
		}
	}

	if elem, exists := b.items[entry.Key]; exists {
		b.order.Remove(elem)
	}
	s.seq++
	stored := entry
	stored.Response = entry.Response.Clone()
	stored.Seq = s.seq
	b.items[entry.Key] = b.order.PushBack(&stored)
	s.usedBytes += newSize - replacedSize
	return nil
}

func (s *Store) Delete(_ context.Context, name string, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.partitions[name]
	if !ok {
		return false, nil
	}
	elem, ok := b.items[key]
	if !ok {
		return false, nil
	}
	s.usedBytes -= elem.Value.(*partition.Entry).Response.Size()
	b.order.Remove(elem)
	delete(b.items, key)
	return true, nil
}

func (s *Store) Keys(_ context.Context, name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.partitions[name]
	if !ok {
		return nil, nil
	}
	keys := make([]string, 0, b.order.Len())
	for elem := b.order.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*partition.Entry).Key)
	}
	return keys, nil
}

func (s *Store) Count(_ context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.partitions[name]
	if !ok {
		return 0, nil
	}
	return b.order.Len(), nil
}

// Names returns partition names sorted lexically.
func (s *Store) Names(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.partitions))
	for name := range s.partitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) Drop(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.partitions[name]
	if !ok {
		return false, nil
	}
	for elem := b.order.Front(); elem != nil; elem = elem.Next() {
		s.usedBytes -= elem.Value.(*partition.Entry).Response.Size()
	}
	delete(s.partitions, name)
	return true, nil
}

func (s *Store) Seal(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.partitions[name]
	if !ok {
		return &partition.StorageError{
			Message:   "partition is not open",
			Cause:     partition.ErrCausePartitionNotFound,
			Partition: name,
		}
	}
	b.sealed = true
	return nil
}

func (s *Store) Sealed(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.partitions[name]
	return ok && b.sealed, nil
}

// UsedBytes reports the approximate bytes held across all partitions.
func (s *Store) UsedBytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usedBytes
}

func (s *Store) Close() error {
	return nil
}

var _ partition.Store = (*Store)(nil)
