package outcomes

import (
	"container/list"
	"sync"
	"time"

	"github.com/upb/gancio-sync/models"
)

// Clock returns the current time
type Clock func() time.Time

// entry is a single stored outcome with its expiry
type entry struct {
	outcome models.Outcome
	element *list.Element // For LRU tracking
}

func (e *entry) isExpired(now time.Time) bool {
	return !now.Before(e.outcome.ExpiresAt)
}

// Store is an in-memory, auto-expiring keyed store for sync outcomes.
// Expired entries are treated as absent and purged when read.
// Thread-safe implementation using sync.Mutex.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	lruList *list.List
	maxSize int
	now     Clock
	hits    uint64
	misses  uint64
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces the wall clock, mainly for tests
func WithClock(c Clock) Option {
	return func(s *Store) {
		s.now = c
	}
}

// NewStore creates a Store holding at most maxSize outcomes
func NewStore(maxSize int, opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]*entry),
		lruList: list.New(),
		maxSize: maxSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set stores an outcome under key for ttl, replacing any previous value
func (s *Store) Set(key string, kind models.OutcomeKind, message string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcome := models.Outcome{
		Kind:      kind,
		Message:   message,
		ExpiresAt: s.now().Add(ttl),
	}

	if e, exists := s.entries[key]; exists {
		e.outcome = outcome
		s.lruList.MoveToFront(e.element)
		return
	}

	if s.maxSize > 0 && s.lruList.Len() >= s.maxSize {
		s.evictLRU()
	}

	e := &entry{outcome: outcome}
	e.element = s.lruList.PushFront(key)
	s.entries[key] = e
}

// Get returns the outcome stored under key, if present and not expired
func (s *Store) Get(key string) (models.Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lookup(key)
}

// Take returns the outcome stored under key and removes it
func (s *Store) Take(key string) (models.Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcome, ok := s.lookup(key)
	if ok {
		s.removeEntry(key)
	}
	return outcome, ok
}

// Delete removes the outcome stored under key
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeEntry(key)
}

// lookup must be called with lock held
func (s *Store) lookup(key string) (models.Outcome, bool) {
	e, exists := s.entries[key]
	if !exists || e.isExpired(s.now()) {
		s.misses++
		if exists {
			s.removeEntry(key)
		}
		return models.Outcome{}, false
	}
	s.hits++
	return e.outcome, true
}

// Stats returns store statistics
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Size:    s.lruList.Len(),
		MaxSize: s.maxSize,
		Hits:    s.hits,
		Misses:  s.misses,
	}
}

// Stats represents store statistics
type Stats struct {
	Size    int
	MaxSize int
	Hits    uint64
	Misses  uint64
}

// removeEntry must be called with lock held
func (s *Store) removeEntry(key string) {
	if e, exists := s.entries[key]; exists {
		s.lruList.Remove(e.element)
		delete(s.entries, key)
	}
}

// evictLRU must be called with lock held
func (s *Store) evictLRU() {
	back := s.lruList.Back()
	if back == nil {
		return
	}
	key := back.Value.(string)
	s.lruList.Remove(back)
	delete(s.entries, key)
}

// CleanupExpired removes all expired entries and returns how many were removed
func (s *Store) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	expired := make([]string, 0)
	for key, e := range s.entries {
		if e.isExpired(now) {
			expired = append(expired, key)
		}
	}
	for _, key := range expired {
		s.removeEntry(key)
	}
	return len(expired)
}

// StartCleanupWorker periodically purges expired entries until stopCh is closed
func (s *Store) StartCleanupWorker(interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.CleanupExpired()
		case <-stopCh:
			return
		}
	}
}
