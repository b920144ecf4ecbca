// Package verification orchestrates the full location verification pipeline:
// consent gate, cooldown, position fix, spoofing detection, minimization, and
// geofence resolution, persisting only the minimized outcome.
package verification

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"veriloc/internal/audit"
	"veriloc/internal/geofence"
	"veriloc/internal/history"
	"veriloc/internal/location"
	"veriloc/internal/privacy"
	"veriloc/internal/sites"
	"veriloc/internal/spoof"
	"veriloc/internal/verification/metrics"
	"veriloc/pkg/domain"
	dErrors "veriloc/pkg/domain-errors"
	"veriloc/pkg/requestcontext"
)

const (
	// DefaultCooldownWindow is the minimum spacing between completed
	// verifications for one subject.
	DefaultCooldownWindow = 5 * time.Minute
	// DefaultFixTimeout bounds how long a verification waits for a position
	// fix before reporting the location unavailable.
	DefaultFixTimeout = 30 * time.Second
)

// ConsentGate is the consent check the pipeline calls before any location
// data is touched. It fails closed.
type ConsentGate interface {
	Require(ctx context.Context, subjectID domain.SubjectID, purpose domain.TrackingPurpose, now time.Time) error
}

// Auditor records engine decisions.
type Auditor interface {
	Record(ctx context.Context, subjectID domain.SubjectID, decision audit.Decision, detail map[string]string) error
}

// Deps are the required collaborators of the verification service.
type Deps struct {
	Consent     ConsentGate
	Audit       Auditor
	Source      location.Source
	Motion      location.MotionSource // optional; nil disables the sensor layer
	Registry    sites.Registry
	History     *history.Store
	Results     ResultStore
	Samples     SampleCacheStore
	Emergencies EmergencyStore
	Cooldowns   CooldownStore
}

// Service runs verification requests end to end. It is the only component
// with access to raw coordinates; everything downstream of it sees minimized
// data only.
type Service struct {
	deps     Deps
	detector *spoof.Detector
	fences   *geofence.Evaluator
	window   time.Duration
	timeout  time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a logger for pipeline events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches verification metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithDetector overrides the default spoofing detector.
func WithDetector(d *spoof.Detector) Option {
	return func(s *Service) { s.detector = d }
}

// WithCooldownWindow overrides the default cooldown spacing.
func WithCooldownWindow(d time.Duration) Option {
	return func(s *Service) { s.window = d }
}

// WithFixTimeout overrides the position-fix wait bound.
func WithFixTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

func NewService(deps Deps, opts ...Option) *Service {
	s := &Service{
		deps:    deps,
		window:  DefaultCooldownWindow,
		timeout: DefaultFixTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.detector == nil {
		s.detector = spoof.New(spoof.WithLogger(s.logger))
	}
	if s.fences == nil {
		s.fences = geofence.New()
	}
	return s
}

// Verify runs one verification for the subject against the candidate targets.
// Business rejections (consent missing, cooldown, no relevant target,
// untrusted sample) come back as Outcome kinds with a nil error; errors are
// reserved for invalid input, an unavailable position fix, and internal
// failures.
func (s *Service) Verify(ctx context.Context, subjectID domain.SubjectID, purpose domain.TrackingPurpose, targetIDs []domain.TargetID) (Outcome, error) {
	if subjectID.IsNil() {
		return Outcome{}, dErrors.New(dErrors.CodeInvalidInput, "subject id is required")
	}
	if !purpose.IsValid() {
		return Outcome{}, dErrors.New(dErrors.CodeBadRequest, "invalid purpose: "+purpose.String())
	}
	if len(targetIDs) == 0 {
		return Outcome{}, dErrors.New(dErrors.CodeBadRequest, "at least one target is required")
	}

	now := requestcontext.Now(ctx)
	started := time.Now()

	// Consent gate. Nothing location-shaped happens before this passes.
	if err := s.deps.Consent.Require(ctx, subjectID, purpose, now); err != nil {
		if dErrors.HasCode(err, dErrors.CodeConsentRequired) {
			return s.finish(ctx, purpose, started, Outcome{Kind: OutcomeConsentRequired}), nil
		}
		return Outcome{}, err
	}

	// Cooldown gate. A store fault here fails open: rate limiting is an
	// abuse control, not a privacy gate.
	remaining, err := s.deps.Cooldowns.Remaining(ctx, subjectID, now)
	if err != nil {
		s.warn(ctx, "cooldown lookup failed, proceeding", "subject_id", subjectID.String(), "error", err)
	} else if remaining > 0 {
		return s.finish(ctx, purpose, started, Outcome{Kind: OutcomeCooldown, Remaining: remaining}), nil
	}

	targets, err := s.deps.Registry.FindByIDs(ctx, targetIDs)
	if err != nil {
		return Outcome{}, dErrors.Wrap(dErrors.CodeInternal, "target lookup failed", err)
	}

	sample, err := s.fetchSample(ctx, subjectID)
	if err != nil {
		return Outcome{}, err
	}

	// From here on the subject's history window is held exclusively; a
	// concurrent call for the same subject blocks until release.
	session := s.deps.History.Acquire(subjectID)
	defer session.Release()

	window := session.Buffer().Snapshot()
	session.Buffer().Append(sample)

	// Relevance comes before trust: if the subject is nowhere near an
	// authorized site, no detection verdict is computed or recorded.
	nearest, relevant, err := s.fences.NearestRelevant(sample.Point, targets)
	if err != nil {
		return Outcome{}, err
	}
	if !relevant {
		if err := s.markCooldown(ctx, subjectID, now); err != nil {
			return Outcome{}, err
		}
		s.recordAudit(ctx, subjectID, audit.DecisionVerificationNotRelevant, map[string]string{
			"candidates": strconv.Itoa(len(targets)),
		})
		return s.finish(ctx, purpose, started, Outcome{Kind: OutcomeNotRelevant}), nil
	}

	verdict := s.detector.Evaluate(sample, window, s.recentMotion(ctx, subjectID, window))
	s.countLayerFaults(verdict)
	if !verdict.Trusted {
		if err := s.markCooldown(ctx, subjectID, now); err != nil {
			return Outcome{}, err
		}
		s.recordAudit(ctx, subjectID, audit.DecisionVerificationUntrusted, map[string]string{
			"reasons": joinReasons(verdict.Reasons),
		})
		return s.finish(ctx, purpose, started, Outcome{Kind: OutcomeUntrustedLocation, Reasons: verdict.Reasons}), nil
	}

	// Minimize before resolving: the persisted proximity is derived from the
	// obfuscated coordinates only.
	obfuscated := privacy.ObfuscateSample(sample)
	proximity, err := s.fences.Resolve(obfuscated.Point, sample.AccuracyMeters, nearest)
	if err != nil {
		return Outcome{}, err
	}

	result := Result{
		ID:                uuid.New(),
		SubjectID:         subjectID,
		TargetID:          proximity.TargetID,
		Relevant:          true,
		Contained:         proximity.Contained,
		DistanceMeters:    proximity.DistanceMeters,
		Bucket:            proximity.Bucket,
		CapturedAt:        sample.CapturedAt,
		RetentionDeadline: now.Add(ResultRetention),
	}
	if err := s.deps.Results.Save(ctx, result); err != nil {
		return Outcome{}, dErrors.Wrap(dErrors.CodeInternal, "failed to persist verification result", err)
	}

	cached := CachedSample{
		ID:                uuid.New(),
		SubjectID:         subjectID,
		Sample:            sample,
		RetentionDeadline: now.Add(SampleCacheRetention),
	}
	if err := s.deps.Samples.Put(ctx, cached); err != nil {
		return Outcome{}, dErrors.Wrap(dErrors.CodeInternal, "failed to cache raw sample", err)
	}

	if err := s.markCooldown(ctx, subjectID, now); err != nil {
		return Outcome{}, err
	}
	s.recordAudit(ctx, subjectID, audit.DecisionVerificationGranted, map[string]string{
		"target_id":  proximity.TargetID.String(),
		"contained":  strconv.FormatBool(proximity.Contained),
		"distance_m": strconv.FormatFloat(proximity.DistanceMeters, 'f', -1, 64),
		"bucket":     string(proximity.Bucket),
	})

	return s.finish(ctx, purpose, started, Outcome{
		Kind:           OutcomeVerified,
		Contained:      proximity.Contained,
		DistanceMeters: proximity.DistanceMeters,
		Bucket:         proximity.Bucket,
		TargetID:       proximity.TargetID,
	}), nil
}

// RecordEmergency captures one full-precision position for an active
// emergency. This is the only path that persists unobfuscated coordinates;
// consent for emergency tracking is still required and the record expires on
// the short emergency retention schedule.
func (s *Service) RecordEmergency(ctx context.Context, subjectID domain.SubjectID) (EmergencyRecord, error) {
	if subjectID.IsNil() {
		return EmergencyRecord{}, dErrors.New(dErrors.CodeInvalidInput, "subject id is required")
	}

	now := requestcontext.Now(ctx)
	if err := s.deps.Consent.Require(ctx, subjectID, domain.PurposeEmergencyTracking, now); err != nil {
		return EmergencyRecord{}, err
	}

	sample, err := s.fetchSample(ctx, subjectID)
	if err != nil {
		return EmergencyRecord{}, err
	}

	record := EmergencyRecord{
		ID:                uuid.New(),
		SubjectID:         subjectID,
		Point:             sample.Point,
		AccuracyMeters:    sample.AccuracyMeters,
		CapturedAt:        sample.CapturedAt,
		RetentionDeadline: now.Add(EmergencyRetention),
	}
	if err := s.deps.Emergencies.Save(ctx, record); err != nil {
		return EmergencyRecord{}, dErrors.Wrap(dErrors.CodeInternal, "failed to persist emergency record", err)
	}

	s.recordAudit(ctx, subjectID, audit.DecisionEmergencyRecorded, map[string]string{
		"record_id": record.ID.String(),
	})
	return record, nil
}

// EndSession discards the subject's in-memory history window and cooldown
// state. Called when monitoring stops and during erasure.
func (s *Service) EndSession(ctx context.Context, subjectID domain.SubjectID) error {
	s.deps.History.Clear(subjectID)
	if err := s.deps.Cooldowns.Clear(ctx, subjectID); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "failed to clear cooldown state", err)
	}
	return nil
}

func (s *Service) fetchSample(ctx context.Context, subjectID domain.SubjectID) (location.Sample, error) {
	fixCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sample, err := s.deps.Source.Current(fixCtx, subjectID)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return location.Sample{}, dErrors.Wrap(dErrors.CodeLocationUnavailable, "timed out waiting for a position fix", err)
		case dErrors.HasCode(err, dErrors.CodePermissionDenied), dErrors.HasCode(err, dErrors.CodeServiceDisabled):
			// The source already says why the fix is impossible; keep its
			// code so the caller can prompt the subject accordingly.
			return location.Sample{}, err
		default:
			return location.Sample{}, dErrors.Wrap(dErrors.CodeLocationUnavailable, "position fix failed", err)
		}
	}
	if err := sample.Point.Validate(); err != nil {
		return location.Sample{}, err
	}
	return sample, nil
}

// recentMotion fetches motion samples covering the window since the previous
// fix. Any failure degrades to nil, which disables only the sensor layer.
func (s *Service) recentMotion(ctx context.Context, subjectID domain.SubjectID, window []location.Sample) []location.MotionSample {
	if s.deps.Motion == nil || len(window) == 0 {
		return nil
	}
	since := window[len(window)-1].CapturedAt
	motion, err := s.deps.Motion.Recent(ctx, subjectID, since)
	if err != nil {
		s.warn(ctx, "motion lookup failed, sensor layer disabled", "subject_id", subjectID.String(), "error", err)
		return nil
	}
	return motion
}

func (s *Service) markCooldown(ctx context.Context, subjectID domain.SubjectID, now time.Time) error {
	if err := s.deps.Cooldowns.Mark(ctx, subjectID, now, s.window); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "failed to mark cooldown", err)
	}
	return nil
}

// recordAudit writes the decision entry without failing the request: the
// audit service logs its own write failures and the outcome already stands.
func (s *Service) recordAudit(ctx context.Context, subjectID domain.SubjectID, decision audit.Decision, detail map[string]string) {
	if err := s.deps.Audit.Record(ctx, subjectID, decision, detail); err != nil {
		s.warn(ctx, "audit record failed", "decision", string(decision), "error", err)
	}
}

func (s *Service) countLayerFaults(verdict spoof.Verdict) {
	if s.metrics == nil {
		return
	}
	for code, outcome := range verdict.Layers {
		if outcome.Status == spoof.LayerFailed {
			s.metrics.IncrementLayerFault(string(code))
		}
	}
}

func (s *Service) finish(ctx context.Context, purpose domain.TrackingPurpose, started time.Time, outcome Outcome) Outcome {
	if s.metrics != nil {
		s.metrics.IncrementOutcome(string(outcome.Kind), purpose.String())
		s.metrics.ObserveVerifyLatency(time.Since(started))
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "verification completed",
			"outcome", string(outcome.Kind),
			"purpose", purpose.String(),
		)
	}
	return outcome
}

func (s *Service) warn(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, args...)
	}
}

func joinReasons(reasons []spoof.ReasonCode) string {
	parts := make([]string, len(reasons))
	for i, r := range reasons {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}
