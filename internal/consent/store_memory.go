package consent

import (
	"context"
	"sync"
	"time"

	"veriloc/pkg/domain"
)

// InMemoryStore keeps consent records per subject. It favors clarity over
// performance; production deployments use the postgres store.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[domain.SubjectID][]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[domain.SubjectID][]Record)}
}

func (s *InMemoryStore) Save(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.SubjectID] = append(s.records[record.SubjectID], record)
	return nil
}

func (s *InMemoryStore) ListBySubject(_ context.Context, subjectID domain.SubjectID) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record{}, s.records[subjectID]...), nil
}

func (s *InMemoryStore) Revoke(_ context.Context, subjectID domain.SubjectID, purpose domain.TrackingPurpose, revokedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.records[subjectID]
	for i := range records {
		if records[i].Purpose == purpose && records[i].RevokedAt == nil {
			t := revokedAt
			records[i].RevokedAt = &t
		}
	}
	s.records[subjectID] = records
	return nil
}

func (s *InMemoryStore) TombstoneSubject(_ context.Context, subjectID domain.SubjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.records[subjectID]
	for i := range records {
		records[i].Tombstoned = true
	}
	s.records[subjectID] = records
	return nil
}
