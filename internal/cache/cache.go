// Package cache provides a generic in-memory store bounded by entry
// count, with per-entry TTL expiry and least-recently-used eviction.
// It knows nothing about search semantics; callers own key computation
// and any copy-on-read requirements.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value          T
	createdAt      time.Time
	lastAccessedAt time.Time
	hits           int64
}

// Stats is a snapshot of store counters for the admin stats endpoint.
type Stats struct {
	Size        int   `json:"size"`
	MaxSize     int   `json:"max_size"`
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Evictions   int64 `json:"evictions"`
	Expirations int64 `json:"expirations"`
}

// Store is a bounded key/value cache. All methods are safe for
// concurrent use. Absence is reported with a bool, never an error.
type Store[T any] struct {
	mu      sync.Mutex
	items   map[string]*entry[T]
	maxSize int
	ttl     time.Duration
	now     func() time.Time

	hits        int64
	misses      int64
	evictions   int64
	expirations int64
}

// New creates a store holding at most maxSize entries, each valid for
// ttl after creation. Both are fixed for the lifetime of the store.
func New[T any](maxSize int, ttl time.Duration) *Store[T] {
	return &Store[T]{
		items:   make(map[string]*entry[T]),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the value for key if present and not expired. Expired
// entries are deleted at lookup time, so a stale value is never
// returned regardless of whether Cleanup runs. A hit refreshes the
// entry's LRU position; reads are deliberately not side-effect-free.
func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[key]
	if !ok {
		s.misses++
		var zero T
		return zero, false
	}
	if s.now().Sub(e.createdAt) > s.ttl {
		delete(s.items, key)
		s.expirations++
		s.misses++
		var zero T
		return zero, false
	}
	e.lastAccessedAt = s.now()
	e.hits++
	s.hits++
	return e.value, true
}

// Set stores value under key. An existing key is overwritten in place
// without triggering eviction. A new key inserted at capacity first
// evicts exactly one entry, the one with the oldest lastAccessedAt.
func (s *Store[T]) Set(key string, value T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.items[key]; ok {
		e.value = value
		e.createdAt = now
		e.lastAccessedAt = now
		return
	}
	if len(s.items) >= s.maxSize {
		s.evictOldest()
	}
	s.items[key] = &entry[T]{value: value, createdAt: now, lastAccessedAt: now}
}

// evictOldest removes the least recently accessed entry. Caller holds mu.
func (s *Store[T]) evictOldest() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, e := range s.items {
		if first || e.lastAccessedAt.Before(oldest) {
			oldestKey = k
			oldest = e.lastAccessedAt
			first = false
		}
	}
	if !first {
		delete(s.items, oldestKey)
		s.evictions++
	}
}

// Clear empties the store unconditionally.
func (s *Store[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*entry[T])
}

// Cleanup removes every expired entry. Lazy expiry in Get already
// guarantees correctness; this exists for periodic maintenance so dead
// entries do not occupy capacity between reads.
func (s *Store[T]) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for k, e := range s.items {
		if now.Sub(e.createdAt) > s.ttl {
			delete(s.items, k)
			s.expirations++
			removed++
		}
	}
	return removed
}

// Len returns the current number of entries, expired or not.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Stats returns a snapshot of the store counters.
func (s *Store[T]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Size:        len(s.items),
		MaxSize:     s.maxSize,
		Hits:        s.hits,
		Misses:      s.misses,
		Evictions:   s.evictions,
		Expirations: s.expirations,
	}
}
