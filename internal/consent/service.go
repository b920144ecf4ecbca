// Package consent owns data-subject consent: purpose-bound grants with
// expiry, revocation, and the hard gate other services call before any
// location processing happens.
package consent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"veriloc/internal/audit"
	"veriloc/pkg/domain"
	dErrors "veriloc/pkg/domain-errors"
)

// DefaultTTL bounds a grant that arrives without an explicit duration so
// consent never silently outlives the working relationship.
const DefaultTTL = 365 * 24 * time.Hour

// AuditRecorder receives consent lifecycle events for the compliance trail.
type AuditRecorder interface {
	Record(ctx context.Context, subjectID domain.SubjectID, decision audit.Decision, detail map[string]string) error
}

// Service persists consent decisions and provides purpose-aware checks. It
// keeps orchestration out of handlers and domain logic thin.
type Service struct {
	store   Store
	auditor AuditRecorder
	logger  *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a logger for consent lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithAudit attaches an audit recorder for grant and revoke events.
func WithAudit(a AuditRecorder) Option {
	return func(s *Service) { s.auditor = a }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Grant records consent for each purpose with the given TTL. All purposes
// are validated before anything is written.
func (s *Service) Grant(ctx context.Context, subjectID domain.SubjectID, purposes []domain.TrackingPurpose, ttl time.Duration) ([]Record, error) {
	if subjectID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "subject id is required")
	}
	if len(purposes) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "purposes must not be empty")
	}
	for _, p := range purposes {
		if !p.IsValid() {
			return nil, dErrors.New(dErrors.CodeBadRequest, "invalid purpose: "+p.String())
		}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := time.Now()
	records := make([]Record, 0, len(purposes))
	for _, p := range purposes {
		record := Record{
			ID:        uuid.New(),
			SubjectID: subjectID,
			Purpose:   p,
			GrantedAt: now,
			ExpiresAt: now.Add(ttl),
		}
		if err := s.store.Save(ctx, record); err != nil {
			return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to record consent grant", err)
		}
		records = append(records, record)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "consent granted",
			"subject_id", subjectID.String(),
			"purposes", len(records),
		)
	}
	s.recordAudit(ctx, subjectID, audit.DecisionConsentGranted, map[string]string{
		"purposes": purposesString(purposes),
	})
	return records, nil
}

// Require returns a consent_required error when no active grant covers the
// purpose at now. This gate fails closed: a store failure rejects processing.
func (s *Service) Require(ctx context.Context, subjectID domain.SubjectID, purpose domain.TrackingPurpose, now time.Time) error {
	records, err := s.store.ListBySubject(ctx, subjectID)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "consent lookup failed", err)
	}
	if !ActiveForPurpose(records, purpose, now) {
		return dErrors.New(dErrors.CodeConsentRequired, "consent not granted for required purpose")
	}
	return nil
}

// Revoke withdraws consent for one purpose from now on.
func (s *Service) Revoke(ctx context.Context, subjectID domain.SubjectID, purpose domain.TrackingPurpose) error {
	if !purpose.IsValid() {
		return dErrors.New(dErrors.CodeBadRequest, "invalid purpose: "+purpose.String())
	}
	if err := s.store.Revoke(ctx, subjectID, purpose, time.Now()); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "failed to revoke consent", err)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "consent revoked",
			"subject_id", subjectID.String(),
			"purpose", purpose.String(),
		)
	}
	s.recordAudit(ctx, subjectID, audit.DecisionConsentRevoked, map[string]string{
		"purpose": purpose.String(),
	})
	return nil
}

// List returns every consent record for the subject, active or not.
func (s *Service) List(ctx context.Context, subjectID domain.SubjectID) ([]Record, error) {
	return s.store.ListBySubject(ctx, subjectID)
}

// EraseSubject tombstones all of the subject's consent records. Called by the
// rights manager during erasure; rows survive for accountability but stop
// granting anything.
func (s *Service) EraseSubject(ctx context.Context, subjectID domain.SubjectID) error {
	if err := s.store.TombstoneSubject(ctx, subjectID); err != nil {
		return dErrors.Wrap(dErrors.CodeErasureFailed, "failed to tombstone consent records", err)
	}
	return nil
}

// recordAudit writes a lifecycle event without failing the operation: the
// consent change already stands and the audit service logs its own failures.
func (s *Service) recordAudit(ctx context.Context, subjectID domain.SubjectID, decision audit.Decision, detail map[string]string) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(ctx, subjectID, decision, detail); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit record failed", "decision", string(decision), "error", err)
	}
}

func purposesString(purposes []domain.TrackingPurpose) string {
	parts := make([]string, len(purposes))
	for i, p := range purposes {
		parts[i] = p.String()
	}
	return strings.Join(parts, ",")
}
