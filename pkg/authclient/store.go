package authclient

import (
	"net/http"
	"sync"
)

// Store holds the client's current credential: at most one resident at a
// time, guarded by a single lock so concurrent readers never observe a
// half-written value.
type Store struct {
	mu      sync.Mutex
	current *Credential
	storage Storage
}

// NewStore builds a store, loading any persisted credential once.
func NewStore(storage Storage) (*Store, error) {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	current, err := storage.Load()
	if err != nil {
		return nil, err
	}
	return &Store{current: current, storage: storage}, nil
}

// Set replaces the current credential, never merges.
func (s *Store) Set(credential Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := credential
	s.current = &clone
	return s.storage.Save(&clone)
}

// Get returns the current credential, if any.
func (s *Store) Get() (Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Credential{}, false
	}
	return *s.current, true
}

// Clear removes the current credential. Clearing an empty store is a no-op.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	s.current = nil
	return s.storage.Clear()
}

// Attach injects the credential into the outgoing request's identity
// header; requests go out unmodified when no credential is present.
func (s *Store) Attach(req *http.Request) {
	credential, ok := s.Get()
	if !ok {
		return
	}
	req.Header.Set("Authorization", "Bearer "+credential.Token)
}
