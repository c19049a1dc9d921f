// Package ratelimit implements fixed-window request throttling behind an
// injected Store interface.
//
// The window is lazily reset: the first request for an identifier, or the
// first after the window elapses, starts a fresh window with count 1.
// Bursts are possible at window boundaries; that is an accepted tradeoff
// for simplicity over a sliding log.
//
// Two stores are provided. MemoryStore is the single-instance default: a
// mutex-guarded counter table living for the process lifetime. RedisStore
// shares counters across instances via atomic INCR. Callers depend only on
// Store, so a deployment can swap implementations without touching the
// middleware or handlers.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Store answers whether one more request for an identifier fits inside the
// current fixed window. Implementations must update the counter atomically:
// a non-atomic read-then-write would let two concurrent requests both
// observe "9 of 10" and both pass.
type Store interface {
	// Allow records a request for the identifier and reports whether it is
	// admitted under max requests per window. Crossing the threshold always
	// denies, never queues.
	Allow(ctx context.Context, identifier string, max int, window time.Duration) (bool, error)
}

// bucket is one identifier's counter and window boundary.
type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryStore is an in-process fixed-window counter table for
// single-instance deployments. Counters are never persisted; a restart
// clears all windows.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow implements Store. The whole check-and-update runs under one mutex,
// which is sufficient because the critical section is a map lookup and two
// field writes.
func (s *MemoryStore) Allow(_ context.Context, identifier string, max int, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	b, ok := s.buckets[identifier]
	if !ok || !now.Before(b.resetAt) {
		s.buckets[identifier] = &bucket{count: 1, resetAt: now.Add(window)}
		return true, nil
	}

	b.count++
	return b.count <= max, nil
}

// Len returns the number of live buckets. Exposed for the cleanup loop and
// tests.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// Cleanup drops buckets whose window has elapsed. The limiter is correct
// without it (stale buckets reset lazily on next use), but identifiers that
// never return would otherwise accumulate for the process lifetime.
func (s *MemoryStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, b := range s.buckets {
		if !now.Before(b.resetAt) {
			delete(s.buckets, id)
		}
	}
}
