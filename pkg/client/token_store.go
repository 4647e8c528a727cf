package client

import (
	"sync"

	"github.com/fixora/authapi/domain/valueobject"
)

// TokenStore holds the caller's current token pair.
type TokenStore interface {
	Get() (valueobject.TokenPair, bool)
	Set(pair valueobject.TokenPair)
	Clear()
}

type MemoryTokenStore struct {
	mu   sync.RWMutex
	pair *valueobject.TokenPair
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Get() (valueobject.TokenPair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pair == nil {
		return valueobject.TokenPair{}, false
	}
	return *s.pair, true
}

func (s *MemoryTokenStore) Set(pair valueobject.TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = &pair
}

func (s *MemoryTokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = nil
}
