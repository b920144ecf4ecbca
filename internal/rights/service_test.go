package rights

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"veriloc/internal/audit"
	"veriloc/internal/consent"
	"veriloc/internal/geo"
	"veriloc/internal/location"
	"veriloc/internal/privacy"
	"veriloc/internal/verification"
	"veriloc/pkg/domain"
	dErrors "veriloc/pkg/domain-errors"
	"veriloc/pkg/requestcontext"
)

type fakeSessions struct {
	ended []domain.SubjectID
}

func (f *fakeSessions) EndSession(_ context.Context, subjectID domain.SubjectID) error {
	f.ended = append(f.ended, subjectID)
	return nil
}

type failingResultStore struct {
	verification.ResultStore
}

func (failingResultStore) ListBySubject(context.Context, domain.SubjectID) ([]verification.Result, error) {
	return nil, errors.New("store down")
}

type failingOnceTokenStore struct {
	TokenStore
	failed bool
}

func (f *failingOnceTokenStore) Save(ctx context.Context, record TokenRecord) error {
	if !f.failed {
		f.failed = true
		return errors.New("ledger down")
	}
	return f.TokenStore.Save(ctx, record)
}

type failingOnceAuditLedger struct {
	AuditLedger
	failed bool
}

func (f *failingOnceAuditLedger) TombstoneSubject(ctx context.Context, subjectID domain.SubjectID, token string) (int, error) {
	if !f.failed {
		f.failed = true
		return 0, errors.New("audit store down")
	}
	return f.AuditLedger.TombstoneSubject(ctx, subjectID, token)
}

type RightsSuite struct {
	suite.Suite
	consentSvc *consent.Service
	auditSvc   *audit.Service
	results    *verification.InMemoryResultStore
	samples    *verification.InMemorySampleCache
	emergency  *verification.InMemoryEmergencyStore
	sessions   *fakeSessions
	tokens     *InMemoryTokenStore
	service    *Service

	subject domain.SubjectID
	now     time.Time
	ctx     context.Context
}

func (s *RightsSuite) SetupTest() {
	s.consentSvc = consent.NewService(consent.NewInMemoryStore())
	s.auditSvc = audit.NewService(audit.NewInMemoryStore())
	s.results = verification.NewInMemoryResultStore()
	s.samples = verification.NewInMemorySampleCache()
	s.emergency = verification.NewInMemoryEmergencyStore()
	s.sessions = &fakeSessions{}
	s.tokens = NewInMemoryTokenStore()

	s.service = NewService(Deps{
		Consent:     s.consentSvc,
		Audit:       s.auditSvc,
		Results:     s.results,
		Samples:     s.samples,
		Emergencies: s.emergency,
		Sessions:    s.sessions,
		Tokens:      s.tokens,
	})

	s.subject = domain.NewSubjectID()
	s.now = time.Date(2026, time.April, 2, 14, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	s.seed()
}

func (s *RightsSuite) seed() {
	_, err := s.consentSvc.Grant(s.ctx, s.subject, []domain.TrackingPurpose{domain.PurposeWorkVerification}, time.Hour)
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.results.Save(s.ctx, verification.Result{
		ID:                uuid.New(),
		SubjectID:         s.subject,
		TargetID:          domain.NewTargetID(),
		Relevant:          true,
		Contained:         true,
		DistanceMeters:    50,
		Bucket:            privacy.BucketGood,
		CapturedAt:        s.now,
		RetentionDeadline: s.now.Add(verification.ResultRetention),
	}))
	require.NoError(s.T(), s.samples.Put(s.ctx, verification.CachedSample{
		ID:        uuid.New(),
		SubjectID: s.subject,
		Sample: location.Sample{
			Point:          geo.Point{Lat: 40.0, Lon: -74.0},
			AccuracyMeters: 10,
			CapturedAt:     s.now,
			Provider:       "gps",
		},
		RetentionDeadline: s.now.Add(verification.SampleCacheRetention),
	}))
	require.NoError(s.T(), s.emergency.Save(s.ctx, verification.EmergencyRecord{
		ID:                uuid.New(),
		SubjectID:         s.subject,
		Point:             geo.Point{Lat: 40.0, Lon: -74.0},
		AccuracyMeters:    5,
		CapturedAt:        s.now,
		RetentionDeadline: s.now.Add(verification.EmergencyRetention),
	}))
	require.NoError(s.T(), s.auditSvc.Record(s.ctx, s.subject, audit.DecisionVerificationGranted, nil))
}

func (s *RightsSuite) TestExportIncludesEveryClass() {
	export, err := s.service.ExportSubjectData(s.ctx, s.subject)
	require.NoError(s.T(), err)

	assert.Equal(s.T(), s.subject.String(), export.Subject)
	assert.Equal(s.T(), s.now, export.GeneratedAt)
	assert.Len(s.T(), export.Consent, 1)
	assert.Len(s.T(), export.Results, 1)
	assert.Len(s.T(), export.CachedSamples, 1)
	assert.Len(s.T(), export.EmergencyRecords, 1)
	assert.Len(s.T(), export.AuditTrail, 1)

	// The export itself lands in the audit trail.
	entries, err := s.auditSvc.ListBySubject(s.ctx, s.subject.String())
	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 2)
}

func (s *RightsSuite) TestExportIsAllOrNothing() {
	s.service = NewService(Deps{
		Consent:     s.consentSvc,
		Audit:       s.auditSvc,
		Results:     failingResultStore{},
		Samples:     s.samples,
		Emergencies: s.emergency,
		Sessions:    s.sessions,
		Tokens:      s.tokens,
	})

	_, err := s.service.ExportSubjectData(s.ctx, s.subject)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeExportFailed))
}

func (s *RightsSuite) TestEraseDeletesLocationData() {
	require.NoError(s.T(), s.service.EraseSubjectData(s.ctx, s.subject))

	results, _ := s.results.ListBySubject(s.ctx, s.subject)
	assert.Empty(s.T(), results)
	samples, _ := s.samples.ListBySubject(s.ctx, s.subject)
	assert.Empty(s.T(), samples)
	emergency, _ := s.emergency.ListBySubject(s.ctx, s.subject)
	assert.Empty(s.T(), emergency)

	records, err := s.consentSvc.List(s.ctx, s.subject)
	require.NoError(s.T(), err)
	require.Len(s.T(), records, 1)
	assert.True(s.T(), records[0].Tombstoned)

	assert.Equal(s.T(), []domain.SubjectID{s.subject}, s.sessions.ended)
}

func (s *RightsSuite) TestEraseBreaksAuditLinkage() {
	require.NoError(s.T(), s.service.EraseSubjectData(s.ctx, s.subject))

	// Nothing in the trail points at the subject id anymore.
	entries, err := s.auditSvc.ListBySubject(s.ctx, s.subject.String())
	require.NoError(s.T(), err)
	assert.Empty(s.T(), entries)

	token, err := s.tokens.FindBySubject(s.ctx, s.subject.String())
	require.NoError(s.T(), err)
	require.NotEmpty(s.T(), token.Token)
	assert.NotEqual(s.T(), s.subject.String(), token.Token)

	tokenized, err := s.auditSvc.ListBySubject(s.ctx, token.Token)
	require.NoError(s.T(), err)
	require.Len(s.T(), tokenized, 2, "the original entry and the erasure record survive under the token")
}

func (s *RightsSuite) TestExportAfterErase() {
	require.NoError(s.T(), s.service.EraseSubjectData(s.ctx, s.subject))

	export, err := s.service.ExportSubjectData(s.ctx, s.subject)
	require.NoError(s.T(), err)

	assert.Empty(s.T(), export.Results)
	assert.Empty(s.T(), export.CachedSamples)
	assert.Empty(s.T(), export.EmergencyRecords)
	assert.NotEmpty(s.T(), export.AuditTrail, "tokenized audit entries stay reachable through the ledger")
	for _, entry := range export.AuditTrail {
		assert.NotEqual(s.T(), s.subject.String(), entry.Subject)
	}
}

func (s *RightsSuite) TestEraseRetryAfterTokenLedgerFailure() {
	s.service = NewService(Deps{
		Consent:     s.consentSvc,
		Audit:       s.auditSvc,
		Results:     s.results,
		Samples:     s.samples,
		Emergencies: s.emergency,
		Sessions:    s.sessions,
		Tokens:      &failingOnceTokenStore{TokenStore: s.tokens},
	})

	err := s.service.EraseSubjectData(s.ctx, s.subject)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeErasureFailed))

	// The ledger write comes before the tombstone, so the failed attempt left
	// every audit row still under the subject id.
	require.NoError(s.T(), s.service.EraseSubjectData(s.ctx, s.subject))

	entries, err := s.auditSvc.ListBySubject(s.ctx, s.subject.String())
	require.NoError(s.T(), err)
	assert.Empty(s.T(), entries)

	export, err := s.service.ExportSubjectData(s.ctx, s.subject)
	require.NoError(s.T(), err)
	decisions := make([]audit.Decision, 0, len(export.AuditTrail))
	for _, entry := range export.AuditTrail {
		decisions = append(decisions, entry.Decision)
	}
	assert.Contains(s.T(), decisions, audit.DecisionVerificationGranted,
		"pre-erasure entries stay reachable through the token after a retried erasure")
}

func (s *RightsSuite) TestEraseRetryAfterTombstoneFailureReusesToken() {
	s.service = NewService(Deps{
		Consent:     s.consentSvc,
		Audit:       &failingOnceAuditLedger{AuditLedger: s.auditSvc},
		Results:     s.results,
		Samples:     s.samples,
		Emergencies: s.emergency,
		Sessions:    s.sessions,
		Tokens:      s.tokens,
	})

	err := s.service.EraseSubjectData(s.ctx, s.subject)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeErasureFailed))

	// The first attempt recorded a token before the tombstone faulted; the
	// retry must pick that one up instead of minting a second.
	first, err := s.tokens.FindBySubject(s.ctx, s.subject.String())
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.service.EraseSubjectData(s.ctx, s.subject))

	second, err := s.tokens.FindBySubject(s.ctx, s.subject.String())
	require.NoError(s.T(), err)
	assert.Equal(s.T(), first.Token, second.Token)

	tokenized, err := s.auditSvc.ListBySubject(s.ctx, second.Token)
	require.NoError(s.T(), err)
	require.Len(s.T(), tokenized, 2, "the original entry and the erasure record sit under the reused token")
}

func (s *RightsSuite) TestEraseRejectsNilSubject() {
	err := s.service.EraseSubjectData(s.ctx, domain.SubjectID{})
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestRightsSuite(t *testing.T) {
	suite.Run(t, new(RightsSuite))
}
