// Package memory provides an in-memory open-history store used for tests and
// ephemeral sessions.
package memory

import (
	"context"
	"sort"
	"sync"

	"nwbview/internal/history"
)

// DefaultCapacity bounds the number of retained entries.
const DefaultCapacity = 256

var _ history.Store = (*Store)(nil)

// Store keeps the newest entries up to a fixed capacity.
type Store struct {
	mu       sync.RWMutex
	entries  []history.Entry
	capacity int
}

// NewStore constructs a store; capacity <= 0 selects DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity}
}

// Record appends an entry, evicting the oldest when full.
func (s *Store) Record(_ context.Context, e history.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	if over := len(s.entries) - s.capacity; over > 0 {
		s.entries = append([]history.Entry(nil), s.entries[over:]...)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(_ context.Context, limit int) ([]history.Entry, error) {
	s.mu.RLock()
	out := make([]history.Entry, len(s.entries))
	for i, e := range s.entries {
		out[len(out)-1-i] = e
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].OpenedAt.After(out[j].OpenedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len reports the number of retained entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close drops all entries.
func (s *Store) Close() error {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
	return nil
}
