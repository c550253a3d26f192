// Package memory provides an ephemeral in-memory persistence adapter. Useful
// for tests and for running the engine without durability.
package memory

import (
	"context"
	"sync"
)

// Store keeps the last saved record in memory.
type Store struct {
	mu   sync.RWMutex
	data []byte
	ok   bool
}

// New creates an empty Store.
func New() *Store {
	return &Store{}
}

// Save retains a copy of the record.
func (s *Store) Save(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	s.ok = true
	return nil
}

// Load returns a copy of the last saved record.
func (s *Store) Load(_ context.Context) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ok {
		return nil, false, nil
	}
	return append([]byte(nil), s.data...), true, nil
}
