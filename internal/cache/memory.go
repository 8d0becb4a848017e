package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/hskang9/turbo-s/internal/model"
)

type memoryEntry struct {
	resp    *model.CachedResponse
	expires time.Time
}

// MemoryStore is an in-process Store bounded to a fixed number of entries.
// The least recently used entry is evicted when the bound is reached.
type MemoryStore struct {
	lru *expirable.LRU[string, memoryEntry]
	now func() time.Time
}

// NewMemoryStore creates a MemoryStore holding at most capacity entries.
// maxTTL bounds how long any entry may live and drives background purging;
// the ttl passed to Set is honored when shorter.
func NewMemoryStore(capacity int, maxTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		lru: expirable.NewLRU[string, memoryEntry](capacity, nil, maxTTL),
		now: time.Now,
	}
}

// Get returns the live entry for key.
func (s *MemoryStore) Get(_ context.Context, key string) (*model.CachedResponse, bool, error) {
	e, ok := s.lru.Get(key)
	if !ok || !s.now().Before(e.expires) {
		return nil, false, nil
	}
	return e.resp, true, nil
}

// Set stores resp under key until now+ttl.
func (s *MemoryStore) Set(_ context.Context, key string, resp *model.CachedResponse, ttl time.Duration) error {
	s.lru.Add(key, memoryEntry{resp: resp, expires: s.now().Add(ttl)})
	return nil
}

// Len returns the number of entries currently held, including expired
// entries not yet purged.
func (s *MemoryStore) Len() int {
	return s.lru.Len()
}
