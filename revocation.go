package auth

import (
	"context"
	"sync"
	"time"
)

// RevocationStore tracks refresh token ids that were retired before their
// natural expiry, after sign out or rotation. Entries only need to live as
// long as the token they block.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryRevocationStore is the single process store. It is the default used
// by SessionAuthenticator when no other store is configured.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	nowFn   func() time.Time
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		entries: map[string]time.Time{},
		nowFn:   time.Now,
	}
}

func (s *MemoryRevocationStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if tokenID == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[tokenID] = until
	s.pruneLocked()

	return nil
}

func (s *MemoryRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}

	s.mu.RLock()
	until, ok := s.entries[tokenID]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}

	if s.nowFn().After(until) {
		s.mu.Lock()
		delete(s.entries, tokenID)
		s.mu.Unlock()
		return false, nil
	}

	return true, nil
}

// pruneLocked drops expired entries. Callers hold the write lock.
func (s *MemoryRevocationStore) pruneLocked() {
	now := s.nowFn()
	for id, until := range s.entries {
		if now.After(until) {
			delete(s.entries, id)
		}
	}
}

// Len reports live entries, expired ones included until pruned.
func (s *MemoryRevocationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
