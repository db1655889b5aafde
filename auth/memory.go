package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps authenticators in process memory. It suits single-node
// deployments and tests; entries are keyed by token digest like the other
// stores and are dropped by ReapExpired.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Authenticator
}

var (
	_ Store  = (*MemoryStore)(nil)
	_ Reaper = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Authenticator)}
}

func (s *MemoryStore) Find(ctx context.Context, id string) (Authenticator, bool, error) {
	if err := contextError(ctx); err != nil {
		return Authenticator{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.entries[Digest(id)]
	return a, ok, nil
}

func (s *MemoryStore) Add(ctx context.Context, a Authenticator) (Authenticator, error) {
	if err := contextError(ctx); err != nil {
		return Authenticator{}, err
	}
	if a.ID == "" {
		return Authenticator{}, ErrInvalidAuthenticator
	}
	key := Digest(a.ID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[key]; exists {
		return Authenticator{}, ErrDuplicateID
	}
	s.entries[key] = a
	return a, nil
}

func (s *MemoryStore) Update(ctx context.Context, a Authenticator) (Authenticator, error) {
	if err := contextError(ctx); err != nil {
		return Authenticator{}, err
	}
	key := Digest(a.ID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[key]; !exists {
		return Authenticator{}, ErrUnknownAuthenticator
	}
	s.entries[key] = a
	return a, nil
}

func (s *MemoryStore) Remove(ctx context.Context, id string) error {
	if err := contextError(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.entries, Digest(id))
	s.mu.Unlock()
	return nil
}

// ReapExpired drops every entry that is no longer valid at now.
func (s *MemoryStore) ReapExpired(ctx context.Context, now time.Time) (int, error) {
	if err := contextError(ctx); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, a := range s.entries {
		if !a.IsValid(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
