package history

import (
	"sync"

	"veriloc/pkg/domain"
)

// Store is an arena of per-subject history buffers with per-key locking.
// Verification calls for the same subject are serialized through Acquire;
// calls for different subjects proceed in parallel. Both request-driven and
// periodic-monitoring call sites must go through the same Store so the ring
// buffer is never mutated concurrently.
type Store struct {
	mu       sync.Mutex
	subjects map[domain.SubjectID]*entry
}

type entry struct {
	mu     sync.Mutex
	buffer *Buffer
}

// NewStore returns an empty arena.
func NewStore() *Store {
	return &Store{subjects: make(map[domain.SubjectID]*entry)}
}

// Session is a locked handle on one subject's history. Hold it for the whole
// verification call and Release when done.
type Session struct {
	entry *entry
}

// Acquire locks the subject's session, creating it on first use. Blocks while
// another call for the same subject is in flight.
func (s *Store) Acquire(subjectID domain.SubjectID) *Session {
	s.mu.Lock()
	e, ok := s.subjects[subjectID]
	if !ok {
		e = &entry{buffer: NewBuffer()}
		s.subjects[subjectID] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	return &Session{entry: e}
}

// Buffer exposes the subject's rolling window. Only valid until Release.
func (s *Session) Buffer() *Buffer {
	return s.entry.buffer
}

// Release unlocks the session.
func (s *Session) Release() {
	s.entry.mu.Unlock()
}

// Clear drops the subject's buffer. Called when monitoring stops or the
// subject logs out; an in-flight call keeps its locked session and simply
// finds a fresh buffer on its next Acquire.
func (s *Store) Clear(subjectID domain.SubjectID) {
	s.mu.Lock()
	delete(s.subjects, subjectID)
	s.mu.Unlock()
}
