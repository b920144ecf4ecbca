package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"veriloc/pkg/domain"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store   *InMemoryStore
	service *Service
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.service = NewService(s.store)
}

func (s *InMemoryStoreSuite) TestRecordFillsIDAndTimestamp() {
	subject := domain.NewSubjectID()
	err := s.service.Record(context.Background(), subject, DecisionVerificationGranted, map[string]string{"target_id": "t-1"})
	require.NoError(s.T(), err)

	entries, err := s.service.ListBySubject(context.Background(), subject.String())
	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 1)
	assert.NotEqual(s.T(), uuid.Nil, entries[0].ID)
	assert.False(s.T(), entries[0].Timestamp.IsZero())
	assert.Equal(s.T(), DecisionVerificationGranted, entries[0].Decision)
	assert.Equal(s.T(), "t-1", entries[0].Context["target_id"])
}

func (s *InMemoryStoreSuite) TestTombstoneSubject() {
	subject := domain.NewSubjectID()
	other := domain.NewSubjectID()
	require.NoError(s.T(), s.service.Record(context.Background(), subject, DecisionConsentGranted, nil))
	require.NoError(s.T(), s.service.Record(context.Background(), subject, DecisionVerificationGranted, nil))
	require.NoError(s.T(), s.service.Record(context.Background(), other, DecisionVerificationGranted, nil))

	token := "anon-" + uuid.NewString()
	n, err := s.service.TombstoneSubject(context.Background(), subject, token)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, n)

	// Nothing left under the original id; everything reachable via the token.
	orig, err := s.service.ListBySubject(context.Background(), subject.String())
	require.NoError(s.T(), err)
	assert.Empty(s.T(), orig)

	tombstoned, err := s.service.ListBySubject(context.Background(), token)
	require.NoError(s.T(), err)
	assert.Len(s.T(), tombstoned, 2)

	// Unrelated subjects are untouched.
	untouched, err := s.service.ListBySubject(context.Background(), other.String())
	require.NoError(s.T(), err)
	assert.Len(s.T(), untouched, 1)
}

func (s *InMemoryStoreSuite) TestDeleteExpiredHonorsLegalPeriod() {
	now := time.Date(2026, 3, 12, 12, 0, 0, 0, time.UTC)
	old := Entry{ID: uuid.New(), Decision: DecisionConsentGranted, Subject: "s", Timestamp: now.Add(-RetentionPeriod - time.Hour)}
	recent := Entry{ID: uuid.New(), Decision: DecisionConsentGranted, Subject: "s", Timestamp: now.Add(-24 * time.Hour)}
	require.NoError(s.T(), s.store.Append(context.Background(), old))
	require.NoError(s.T(), s.store.Append(context.Background(), recent))

	n, err := s.service.DeleteExpired(context.Background(), now)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, n)

	left, err := s.store.ListBySubject(context.Background(), "s")
	require.NoError(s.T(), err)
	require.Len(s.T(), left, 1)
	assert.Equal(s.T(), recent.ID, left[0].ID)
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}
