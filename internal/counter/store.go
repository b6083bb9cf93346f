package counter

import (
	"context"
	"sync"
	"time"
)

// Store counts how many times a given signature has been consumed. Every
// entry expires on its own horizon, set when the entry is first created.
// The horizon must exceed the longest link lifetime so a counter always
// outlives the link it gates.
type Store interface {
	// Increment bumps the count for key, creating the entry with the
	// configured retention TTL if absent, and returns the new count.
	// It is the sole mutation point and must be atomic with respect to
	// concurrent calls for the same key.
	Increment(ctx context.Context, key string) (int, error)

	// Get returns the current count for key, 0 if absent or expired.
	Get(ctx context.Context, key string) (int, error)
}

type memEntry struct {
	count     int
	expiresAt time.Time
}

// MemStore is an in-process Store — used in ENV=local and in tests.
type MemStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemStore(ttl time.Duration) *MemStore {
	return &MemStore{
		entries: make(map[string]memEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemStore) Increment(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if !ok || !e.expiresAt.After(now) {
		e = memEntry{count: 0, expiresAt: now.Add(s.ttl)}
	}
	e.count++
	s.entries[key] = e
	return e.count, nil
}

func (s *MemStore) Get(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !e.expiresAt.After(s.now()) {
		delete(s.entries, key)
		return 0, nil
	}
	return e.count, nil
}

// SetNowFunc overrides the store's clock. Tests only.
func (s *MemStore) SetNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Purge drops all expired entries and returns how many were removed.
func (s *MemStore) Purge(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var removed int64
	for k, e := range s.entries {
		if !e.expiresAt.After(now) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed, nil
}
