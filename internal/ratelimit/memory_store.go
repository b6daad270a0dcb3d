package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value   string
	expires time.Time
}

// MemoryStore is a single-process Store: a map behind a mutex with lazy
// expiry. A periodic Sweep reclaims memory; correctness does not depend on
// it.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	if entry, ok := s.live(key); ok {
		count, _ = strconv.ParseInt(entry.value, 10, 64)
	}
	count++
	s.entries[key] = memoryEntry{
		value:   strconv.FormatInt(count, 10),
		expires: s.expiryOf(key),
	}
	return count, nil
}

func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.live(key); ok {
		entry.expires = s.now().Add(ttl)
		s.entries[key] = entry
	}
	return nil
}

func (s *MemoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live(key)
	if !ok || entry.expires.IsZero() {
		return -1, nil
	}
	return entry.expires.Sub(s.now()), nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live(key)
	if !ok {
		return "", false, nil
	}
	return entry.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expires := time.Time{}
	if ttl > 0 {
		expires = s.now().Add(ttl)
	}
	s.entries[key] = memoryEntry{value: value, expires: expires}
	return nil
}

func (s *MemoryStore) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Sweep drops expired entries. Wired to a cron in main.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	now := s.now()
	for key, entry := range s.entries {
		if !entry.expires.IsZero() && now.After(entry.expires) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// live returns the entry at key, treating expired entries as absent.
func (s *MemoryStore) live(key string) (memoryEntry, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expires.IsZero() && s.now().After(entry.expires) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

// expiryOf preserves an existing expiry across Incr calls.
func (s *MemoryStore) expiryOf(key string) time.Time {
	if entry, ok := s.entries[key]; ok {
		return entry.expires
	}
	return time.Time{}
}
