package session

import (
	"context"
	"sync"
)

// MemoryTokenStore is a process-local TokenStore. Useful for tests and for
// short-lived agents that should not persist credentials across restarts.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	creds *CredentialSet
}

// Verify interface compliance
var _ TokenStore = (*MemoryTokenStore)(nil)

// NewMemoryTokenStore creates an empty in-memory store
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

// Save stores a copy of creds, overwriting any prior value
func (s *MemoryTokenStore) Save(_ context.Context, creds *CredentialSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if creds == nil {
		s.creds = nil
		return nil
	}

	cp := *creds
	s.creds = &cp
	return nil
}

// Load returns the current credential set, or nil if absent or incomplete
func (s *MemoryTokenStore) Load(_ context.Context) (*CredentialSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.creds.Complete() {
		return nil, nil
	}

	cp := *s.creds
	return &cp, nil
}

// Clear removes the credential set
func (s *MemoryTokenStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = nil
	return nil
}
