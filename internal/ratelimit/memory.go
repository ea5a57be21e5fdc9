package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps counters in a process-local map. It is the default store
// for single-instance deployments and the fallback behind FailoverStore.
//
// Entries whose day window has lapsed are evicted by a janitor goroutine so
// the table does not grow without bound under key churn.
type MemoryStore struct {
	mu           sync.Mutex
	entries      map[string]Usage
	cleanupEvery time.Duration
}

type MemoryOption func(*MemoryStore)

func WithCleanupEvery(d time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.cleanupEvery = d }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries:      make(map[string]Usage),
		cleanupEvery: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) (Usage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.entries[key]
	return u, ok, nil
}

func (s *MemoryStore) CompareAndSwap(_ context.Context, key string, prev, next Usage, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A missing entry compares equal to the zero Usage.
	if s.entries[key] != prev {
		return false, nil
	}
	s.entries[key] = next
	return true, nil
}

// Len reports the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup drops entries whose day window reset has passed; every counter in
// such an entry would roll to zero on the next call anyway.
func (s *MemoryStore) Cleanup(now time.Time) {
	cutoff := now.Unix()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, u := range s.entries {
		if u.Day.ResetAt <= cutoff {
			delete(s.entries, k)
		}
	}
}

// StartJanitor runs Cleanup periodically until ctx is cancelled.
func (s *MemoryStore) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				s.Cleanup(now)
			}
		}
	}()
}
