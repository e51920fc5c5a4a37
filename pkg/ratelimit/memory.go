package ratelimit

import (
	"context"
	"sync"
)

// MemStore is an in-process Store for single-replica deployments and tests.
// Counters from past days are never pruned.
type MemStore struct {
	mu     sync.Mutex
	counts map[Key]int
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{counts: map[Key]int{}}
}

func (s *MemStore) ConsumeQuota(_ context.Context, key Key, limit int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.counts[key]
	if c >= limit {
		return c, false, nil
	}
	c++
	s.counts[key] = c
	return c, true, nil
}

func (s *MemStore) QuotaUsage(_ context.Context, key Key) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[key], nil
}
