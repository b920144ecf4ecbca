package audit

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore keeps audit entries in arrival order.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryStore) ListBySubject(_ context.Context, subject string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if e.Subject == subject {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ReplaceSubject(_ context.Context, oldSubject, newSubject string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.entries {
		if s.entries[i].Subject == oldSubject {
			s.entries[i].Subject = newSubject
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	deleted := 0
	for _, e := range s.entries {
		if e.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return deleted, nil
}
