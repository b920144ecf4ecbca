package verification

import (
	"context"
	"sync"
	"time"

	"veriloc/pkg/domain"
)

// InMemoryCooldownStore tracks cooldown expiry per subject for single-process
// deployments and tests.
type InMemoryCooldownStore struct {
	mu     sync.Mutex
	expiry map[domain.SubjectID]time.Time
}

func NewInMemoryCooldownStore() *InMemoryCooldownStore {
	return &InMemoryCooldownStore{expiry: make(map[domain.SubjectID]time.Time)}
}

func (s *InMemoryCooldownStore) Remaining(_ context.Context, subjectID domain.SubjectID, now time.Time) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.expiry[subjectID]
	if !ok || !until.After(now) {
		delete(s.expiry, subjectID)
		return 0, nil
	}
	return until.Sub(now), nil
}

func (s *InMemoryCooldownStore) Mark(_ context.Context, subjectID domain.SubjectID, now time.Time, window time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiry[subjectID] = now.Add(window)
	return nil
}

func (s *InMemoryCooldownStore) Clear(_ context.Context, subjectID domain.SubjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expiry, subjectID)
	return nil
}
