package rights

import (
	"context"
	"sync"

	"veriloc/pkg/platform/sentinel"
)

// TokenStore persists the erasure token ledger.
type TokenStore interface {
	Save(ctx context.Context, record TokenRecord) error
	// FindBySubject returns the subject's token record, or
	// sentinel.ErrNotFound when the subject was never erased.
	FindBySubject(ctx context.Context, subject string) (TokenRecord, error)
}

// InMemoryTokenStore backs the ledger for development and tests.
type InMemoryTokenStore struct {
	mu      sync.RWMutex
	records map[string]TokenRecord
}

func NewInMemoryTokenStore() *InMemoryTokenStore {
	return &InMemoryTokenStore{records: make(map[string]TokenRecord)}
}

func (s *InMemoryTokenStore) Save(_ context.Context, record TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Subject] = record
	return nil
}

func (s *InMemoryTokenStore) FindBySubject(_ context.Context, subject string) (TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.records[subject]; ok {
		return r, nil
	}
	return TokenRecord{}, sentinel.ErrNotFound
}
