package blobstore

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/visor/resource"
)

// CachingStore wraps a Store with an LRU read cache bounded in bytes.
// Cached blobs are charged to an optional resource controller.
type CachingStore struct {
	inner Store

	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[string]*list.Element
	evictList *list.List
	rc        *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	name string
	data []byte
}

// NewCachingStore creates a CachingStore holding at most capacity bytes.
func NewCachingStore(inner Store, capacity int64, rc *resource.Controller) *CachingStore {
	return &CachingStore{
		inner:     inner,
		capacity:  capacity,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
		rc:        rc,
	}
}

// Get returns a cached copy of the blob, reading through on a miss.
func (s *CachingStore) Get(ctx context.Context, name string) ([]byte, error) {
	if b, ok := s.lookup(name); ok {
		return b, nil
	}

	data, err := s.inner.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	s.set(name, data)
	return data, nil
}

// Put writes through and drops the cached copy.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.invalidate(name)
	return s.inner.Put(ctx, name, data)
}

// Delete deletes through and drops the cached copy.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.invalidate(name)
	return s.inner.Delete(ctx, name)
}

// List is served by the wrapped store.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// Stats returns cache hits and misses.
func (s *CachingStore) Stats() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}

// Size returns the number of cached bytes.
func (s *CachingStore) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

func (s *CachingStore) lookup(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[name]
	if !ok {
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	s.evictList.MoveToFront(el)

	data := el.Value.(*cacheEntry).data
	out := make([]byte, len(data))
	copy(out, data)
	return out, true
}

func (s *CachingStore) set(name string, data []byte) {
	itemSize := int64(len(data))
	if itemSize > s.capacity {
		return
	}

	copied := make([]byte, len(data))
	copy(copied, data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[name]; ok {
		s.removeElement(el)
	}

	for s.size+itemSize > s.capacity {
		el := s.evictList.Back()
		if el == nil {
			break
		}
		s.removeElement(el)
	}

	// If the global budget says no, don't cache.
	if s.rc != nil && !s.rc.TryAcquireMemory(itemSize) {
		return
	}

	s.items[name] = s.evictList.PushFront(&cacheEntry{name: name, data: copied})
	s.size += itemSize
}

func (s *CachingStore) invalidate(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[name]; ok {
		s.removeElement(el)
	}
}

func (s *CachingStore) removeElement(el *list.Element) {
	s.evictList.Remove(el)
	ent := el.Value.(*cacheEntry)
	delete(s.items, ent.name)
	itemSize := int64(len(ent.data))
	s.size -= itemSize
	if s.rc != nil {
		s.rc.ReleaseMemory(itemSize)
	}
}
