package auth

import (
	"context"
	"sync"
)

// NewInMemorySessionStore returns a RefreshTokenStore backed by an in-memory map.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{tokens: make(map[string]string)}
}

// InMemorySessionStore implements RefreshTokenStore for tests and local development.
type InMemorySessionStore struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// GetRefreshToken returns the stored token for userID, or "" when none is set.
func (s *InMemorySessionStore) GetRefreshToken(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens[userID], nil
}

// SetRefreshToken overwrites the stored token for userID.
func (s *InMemorySessionStore) SetRefreshToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	s.tokens[userID] = token
	s.mu.Unlock()
	return nil
}

// SwapRefreshToken replaces current with next if current is still stored.
func (s *InMemorySessionStore) SwapRefreshToken(_ context.Context, userID, current, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stored, ok := s.tokens[userID]; !ok || stored == "" || stored != current {
		return ErrSessionNotFound
	}
	s.tokens[userID] = next
	return nil
}

// ClearRefreshToken removes the stored token for userID.
func (s *InMemorySessionStore) ClearRefreshToken(_ context.Context, userID string) error {
	s.mu.Lock()
	delete(s.tokens, userID)
	s.mu.Unlock()
	return nil
}

// Has reports whether userID holds a refresh token. Useful for tests.
func (s *InMemorySessionStore) Has(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens[userID] != ""
}
