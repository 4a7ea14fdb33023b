package session

import (
	"context"
	"sync"
)

// MemStore keeps the token in process memory only. Used by tests and by
// one-shot invocations that should not leave a session behind.
type MemStore struct {
	mu    sync.RWMutex
	token string
	set   bool
}

func NewMemStore() *MemStore { return &MemStore{} }

func (s *MemStore) Get(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return "", ErrNoSession
	}
	return s.token, nil
}

func (s *MemStore) Set(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.set = true
	return nil
}

func (s *MemStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.set = false
	return nil
}
