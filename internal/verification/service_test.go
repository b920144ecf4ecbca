package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"veriloc/internal/audit"
	"veriloc/internal/geo"
	"veriloc/internal/history"
	"veriloc/internal/location"
	"veriloc/internal/privacy"
	"veriloc/internal/sites"
	"veriloc/internal/spoof"
	"veriloc/pkg/domain"
	dErrors "veriloc/pkg/domain-errors"
	"veriloc/pkg/requestcontext"
)

type fakeConsent struct {
	allowed map[domain.TrackingPurpose]bool
}

func (f *fakeConsent) Require(_ context.Context, _ domain.SubjectID, purpose domain.TrackingPurpose, _ time.Time) error {
	if f.allowed[purpose] {
		return nil
	}
	return dErrors.New(dErrors.CodeConsentRequired, "consent not granted for required purpose")
}

type fakeAuditor struct {
	entries []audit.Decision
	details []map[string]string
}

func (f *fakeAuditor) Record(_ context.Context, _ domain.SubjectID, decision audit.Decision, detail map[string]string) error {
	f.entries = append(f.entries, decision)
	f.details = append(f.details, detail)
	return nil
}

type fakeSource struct {
	sample location.Sample
	err    error
}

func (f *fakeSource) Current(_ context.Context, _ domain.SubjectID) (location.Sample, error) {
	return f.sample, f.err
}

type VerifySuite struct {
	suite.Suite
	consent   *fakeConsent
	auditor   *fakeAuditor
	source    *fakeSource
	registry  *sites.InMemoryRegistry
	results   *InMemoryResultStore
	samples   *InMemorySampleCache
	emergency *InMemoryEmergencyStore
	cooldowns *InMemoryCooldownStore
	service   *Service

	subject domain.SubjectID
	target  sites.TargetLocation
	now     time.Time
	ctx     context.Context
}

func (s *VerifySuite) SetupTest() {
	s.consent = &fakeConsent{allowed: map[domain.TrackingPurpose]bool{
		domain.PurposeWorkVerification: true,
	}}
	s.auditor = &fakeAuditor{}
	s.source = &fakeSource{}
	s.registry = sites.NewInMemoryRegistry()
	s.results = NewInMemoryResultStore()
	s.samples = NewInMemorySampleCache()
	s.emergency = NewInMemoryEmergencyStore()
	s.cooldowns = NewInMemoryCooldownStore()

	s.subject = domain.NewSubjectID()
	s.target = sites.TargetLocation{
		ID:           domain.NewTargetID(),
		Name:         "warehouse north",
		Point:        geo.Point{Lat: 40.0, Lon: -74.0},
		RadiusMeters: 150,
		OrgID:        domain.NewOrgID(),
	}
	s.registry.Put(s.target)

	s.now = time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	s.source.sample = location.Sample{
		Point:          geo.Point{Lat: 40.0003, Lon: -74.0004},
		AccuracyMeters: 12,
		CapturedAt:     s.now,
		Provider:       "gps",
	}

	s.service = NewService(Deps{
		Consent:     s.consent,
		Audit:       s.auditor,
		Source:      s.source,
		Registry:    s.registry,
		History:     history.NewStore(),
		Results:     s.results,
		Samples:     s.samples,
		Emergencies: s.emergency,
		Cooldowns:   s.cooldowns,
	})
}

func (s *VerifySuite) verify() (Outcome, error) {
	return s.service.Verify(s.ctx, s.subject, domain.PurposeWorkVerification, []domain.TargetID{s.target.ID})
}

func (s *VerifySuite) TestConsentRequiredPersistsNothing() {
	s.consent.allowed = nil

	outcome, err := s.verify()
	require.NoError(s.T(), err)
	assert.Equal(s.T(), OutcomeConsentRequired, outcome.Kind)

	results, _ := s.results.ListBySubject(s.ctx, s.subject)
	assert.Empty(s.T(), results)
	cached, _ := s.samples.ListBySubject(s.ctx, s.subject)
	assert.Empty(s.T(), cached)
	assert.Empty(s.T(), s.auditor.entries)

	remaining, err := s.cooldowns.Remaining(s.ctx, s.subject, s.now)
	require.NoError(s.T(), err)
	assert.Zero(s.T(), remaining, "a rejected request must not start a cooldown")
}

func (s *VerifySuite) TestVerifiedHappyPath() {
	outcome, err := s.verify()
	require.NoError(s.T(), err)
	require.Equal(s.T(), OutcomeVerified, outcome.Kind)
	assert.True(s.T(), outcome.Contained)
	assert.Equal(s.T(), s.target.ID, outcome.TargetID)
	assert.Equal(s.T(), privacy.BucketGood, outcome.Bucket)
	assert.Zero(s.T(), int(outcome.DistanceMeters)%50, "distance must be a 50m step")

	results, err := s.results.ListBySubject(s.ctx, s.subject)
	require.NoError(s.T(), err)
	require.Len(s.T(), results, 1)
	assert.Equal(s.T(), s.now.Add(ResultRetention), results[0].RetentionDeadline)
	assert.True(s.T(), results[0].Contained)

	cached, err := s.samples.ListBySubject(s.ctx, s.subject)
	require.NoError(s.T(), err)
	require.Len(s.T(), cached, 1)
	assert.Equal(s.T(), s.source.sample.Point, cached[0].Sample.Point, "dispute cache keeps the raw sample")
	assert.Equal(s.T(), s.now.Add(SampleCacheRetention), cached[0].RetentionDeadline)

	require.Len(s.T(), s.auditor.entries, 1)
	assert.Equal(s.T(), audit.DecisionVerificationGranted, s.auditor.entries[0])
}

func (s *VerifySuite) TestCooldownBlocksSecondCall() {
	_, err := s.verify()
	require.NoError(s.T(), err)

	outcome, err := s.verify()
	require.NoError(s.T(), err)
	assert.Equal(s.T(), OutcomeCooldown, outcome.Kind)
	assert.Equal(s.T(), DefaultCooldownWindow, outcome.Remaining)

	results, _ := s.results.ListBySubject(s.ctx, s.subject)
	assert.Len(s.T(), results, 1, "the cooled-down call must not process a sample")
}

func (s *VerifySuite) TestCooldownExpires() {
	_, err := s.verify()
	require.NoError(s.T(), err)

	later := requestcontext.WithTime(context.Background(), s.now.Add(DefaultCooldownWindow+time.Second))
	outcome, err := s.service.Verify(later, s.subject, domain.PurposeWorkVerification, []domain.TargetID{s.target.ID})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), OutcomeVerified, outcome.Kind)
}

func (s *VerifySuite) TestNotRelevantStoresNoResult() {
	s.source.sample.Point = geo.Point{Lat: 41.0, Lon: -74.0} // ~111 km north

	outcome, err := s.verify()
	require.NoError(s.T(), err)
	assert.Equal(s.T(), OutcomeNotRelevant, outcome.Kind)

	results, _ := s.results.ListBySubject(s.ctx, s.subject)
	assert.Empty(s.T(), results, "no proximity facts exist for irrelevant positions")

	require.Len(s.T(), s.auditor.entries, 1)
	assert.Equal(s.T(), audit.DecisionVerificationNotRelevant, s.auditor.entries[0])

	remaining, err := s.cooldowns.Remaining(s.ctx, s.subject, s.now)
	require.NoError(s.T(), err)
	assert.Positive(s.T(), remaining, "a processed sample starts the cooldown even without a result")
}

func (s *VerifySuite) TestMockedSampleIsUntrusted() {
	s.source.sample.Mocked = true

	outcome, err := s.verify()
	require.NoError(s.T(), err)
	require.Equal(s.T(), OutcomeUntrustedLocation, outcome.Kind)
	assert.Contains(s.T(), outcome.Reasons, spoof.ReasonMockProvider)

	results, _ := s.results.ListBySubject(s.ctx, s.subject)
	assert.Empty(s.T(), results)

	require.Len(s.T(), s.auditor.entries, 1)
	assert.Equal(s.T(), audit.DecisionVerificationUntrusted, s.auditor.entries[0])
	assert.Equal(s.T(), "mock_provider", s.auditor.details[0]["reasons"])
}

func (s *VerifySuite) TestSourceFailureIsLocationUnavailable() {
	s.source.err = errors.New("no fix")

	_, err := s.verify()
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeLocationUnavailable))
}

func (s *VerifySuite) TestRejectsInvalidPurpose() {
	_, err := s.service.Verify(s.ctx, s.subject, "ad_targeting", []domain.TargetID{s.target.ID})
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *VerifySuite) TestRejectsEmptyTargets() {
	_, err := s.service.Verify(s.ctx, s.subject, domain.PurposeWorkVerification, nil)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *VerifySuite) TestEndSessionClearsCooldown() {
	_, err := s.verify()
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.service.EndSession(s.ctx, s.subject))

	remaining, err := s.cooldowns.Remaining(s.ctx, s.subject, s.now)
	require.NoError(s.T(), err)
	assert.Zero(s.T(), remaining)
}

func (s *VerifySuite) TestRecordEmergencyKeepsFullPrecision() {
	s.consent.allowed[domain.PurposeEmergencyTracking] = true

	record, err := s.service.RecordEmergency(s.ctx, s.subject)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), s.source.sample.Point, record.Point, "emergency records are not obfuscated")
	assert.Equal(s.T(), s.now.Add(EmergencyRetention), record.RetentionDeadline)

	stored, err := s.emergency.ListBySubject(s.ctx, s.subject)
	require.NoError(s.T(), err)
	require.Len(s.T(), stored, 1)

	require.Len(s.T(), s.auditor.entries, 1)
	assert.Equal(s.T(), audit.DecisionEmergencyRecorded, s.auditor.entries[0])
}

func (s *VerifySuite) TestRecordEmergencyRequiresConsent() {
	_, err := s.service.RecordEmergency(s.ctx, s.subject)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeConsentRequired))

	stored, _ := s.emergency.ListBySubject(s.ctx, s.subject)
	assert.Empty(s.T(), stored)
}

func TestVerifySuite(t *testing.T) {
	suite.Run(t, new(VerifySuite))
}

func TestInMemoryCooldownStore(t *testing.T) {
	store := NewInMemoryCooldownStore()
	subject := domain.NewSubjectID()
	now := time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)

	remaining, err := store.Remaining(context.Background(), subject, now)
	require.NoError(t, err)
	assert.Zero(t, remaining)

	require.NoError(t, store.Mark(context.Background(), subject, now, 5*time.Minute))

	remaining, err = store.Remaining(context.Background(), subject, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3*time.Minute, remaining)

	remaining, err = store.Remaining(context.Background(), subject, now.Add(6*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, remaining)

	require.NoError(t, store.Mark(context.Background(), subject, now, 5*time.Minute))
	require.NoError(t, store.Clear(context.Background(), subject))
	remaining, err = store.Remaining(context.Background(), subject, now)
	require.NoError(t, err)
	assert.Zero(t, remaining)
}
