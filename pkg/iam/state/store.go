package state

import (
	"context"
	"sync"
	"time"
)

// NonceStore remembers issued nonces so a callback can prove the state was
// minted here. A nonce can be consumed exactly once.
type NonceStore interface {
	Issue(ctx context.Context, nonce string, ttl time.Duration) error
	Consume(ctx context.Context, nonce string) (bool, error)
}

// MemoryStore is a per-process NonceStore.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Issue(ctx context.Context, nonce string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)

	if _, ok := s.entries[nonce]; ok {
		return ErrNonceExists()
	}
	s.entries[nonce] = now.Add(ttl)
	return nil
}

func (s *MemoryStore) Consume(ctx context.Context, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.entries[nonce]
	if !ok {
		return false, nil
	}
	delete(s.entries, nonce)
	return s.now().Before(exp), nil
}

func (s *MemoryStore) pruneLocked(now time.Time) {
	for k, exp := range s.entries {
		if !now.Before(exp) {
			delete(s.entries, k)
		}
	}
}
