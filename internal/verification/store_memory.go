package verification

import (
	"context"
	"sync"
	"time"

	"veriloc/pkg/domain"
)

// In-memory stores keep development and tests lightweight; production uses
// the postgres stores.

type InMemoryResultStore struct {
	mu      sync.RWMutex
	results map[domain.SubjectID][]Result
}

func NewInMemoryResultStore() *InMemoryResultStore {
	return &InMemoryResultStore{results: make(map[domain.SubjectID][]Result)}
}

func (s *InMemoryResultStore) Save(_ context.Context, result Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.SubjectID] = append(s.results[result.SubjectID], result)
	return nil
}

func (s *InMemoryResultStore) ListBySubject(_ context.Context, subjectID domain.SubjectID) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Result{}, s.results[subjectID]...), nil
}

func (s *InMemoryResultStore) DeleteBySubject(_ context.Context, subjectID domain.SubjectID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.results[subjectID])
	delete(s.results, subjectID)
	return n, nil
}

func (s *InMemoryResultStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for subject, results := range s.results {
		kept := results[:0]
		for _, r := range results {
			if r.RetentionDeadline.Before(now) {
				deleted++
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			delete(s.results, subject)
		} else {
			s.results[subject] = kept
		}
	}
	return deleted, nil
}

type InMemorySampleCache struct {
	mu      sync.RWMutex
	samples map[domain.SubjectID][]CachedSample
}

func NewInMemorySampleCache() *InMemorySampleCache {
	return &InMemorySampleCache{samples: make(map[domain.SubjectID][]CachedSample)}
}

func (s *InMemorySampleCache) Put(_ context.Context, cached CachedSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples[cached.SubjectID] = append(s.samples[cached.SubjectID], cached)
	return nil
}

func (s *InMemorySampleCache) ListBySubject(_ context.Context, subjectID domain.SubjectID) ([]CachedSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]CachedSample{}, s.samples[subjectID]...), nil
}

func (s *InMemorySampleCache) DeleteBySubject(_ context.Context, subjectID domain.SubjectID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.samples[subjectID])
	delete(s.samples, subjectID)
	return n, nil
}

func (s *InMemorySampleCache) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for subject, samples := range s.samples {
		kept := samples[:0]
		for _, c := range samples {
			if c.RetentionDeadline.Before(now) {
				deleted++
				continue
			}
			kept = append(kept, c)
		}
		if len(kept) == 0 {
			delete(s.samples, subject)
		} else {
			s.samples[subject] = kept
		}
	}
	return deleted, nil
}

type InMemoryEmergencyStore struct {
	mu      sync.RWMutex
	records map[domain.SubjectID][]EmergencyRecord
}

func NewInMemoryEmergencyStore() *InMemoryEmergencyStore {
	return &InMemoryEmergencyStore{records: make(map[domain.SubjectID][]EmergencyRecord)}
}

func (s *InMemoryEmergencyStore) Save(_ context.Context, record EmergencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.SubjectID] = append(s.records[record.SubjectID], record)
	return nil
}

func (s *InMemoryEmergencyStore) ListBySubject(_ context.Context, subjectID domain.SubjectID) ([]EmergencyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]EmergencyRecord{}, s.records[subjectID]...), nil
}

func (s *InMemoryEmergencyStore) DeleteBySubject(_ context.Context, subjectID domain.SubjectID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.records[subjectID])
	delete(s.records, subjectID)
	return n, nil
}

func (s *InMemoryEmergencyStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for subject, records := range s.records {
		kept := records[:0]
		for _, r := range records {
			if r.RetentionDeadline.Before(now) {
				deleted++
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			delete(s.records, subject)
		} else {
			s.records[subject] = kept
		}
	}
	return deleted, nil
}
