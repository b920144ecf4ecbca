// Package rights implements the data-subject rights of access and erasure:
// complete export bundles, hard deletion of location data, and the token
// ledger that keeps the audit trail reachable after a subject is gone.
package rights

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"veriloc/internal/audit"
	"veriloc/internal/consent"
	"veriloc/internal/verification"
	"veriloc/pkg/domain"
	dErrors "veriloc/pkg/domain-errors"
	"veriloc/pkg/platform/sentinel"
	"veriloc/pkg/requestcontext"
)

// ConsentManager is the slice of the consent service the rights manager uses.
type ConsentManager interface {
	List(ctx context.Context, subjectID domain.SubjectID) ([]consent.Record, error)
	EraseSubject(ctx context.Context, subjectID domain.SubjectID) error
}

// AuditLedger is the slice of the audit service the rights manager uses.
type AuditLedger interface {
	ListBySubject(ctx context.Context, subject string) ([]audit.Entry, error)
	TombstoneSubject(ctx context.Context, subjectID domain.SubjectID, token string) (int, error)
	Append(ctx context.Context, entry audit.Entry) error
}

// SessionEnder discards a subject's in-memory verification state.
type SessionEnder interface {
	EndSession(ctx context.Context, subjectID domain.SubjectID) error
}

// Deps are the collaborators of the rights manager.
type Deps struct {
	Consent     ConsentManager
	Audit       AuditLedger
	Results     verification.ResultStore
	Samples     verification.SampleCacheStore
	Emergencies verification.EmergencyStore
	Sessions    SessionEnder
	Tokens      TokenStore
}

// Service handles export and erasure requests.
type Service struct {
	deps   Deps
	logger *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a logger for rights-request events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(deps Deps, opts ...Option) *Service {
	s := &Service{deps: deps}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExportSubjectData assembles the complete access bundle for a subject. All
// record classes are fetched concurrently and any failure fails the whole
// export: a bundle that silently misses a class would misrepresent what the
// engine holds.
func (s *Service) ExportSubjectData(ctx context.Context, subjectID domain.SubjectID) (Export, error) {
	if subjectID.IsNil() {
		return Export{}, dErrors.New(dErrors.CodeInvalidInput, "subject id is required")
	}

	export := Export{
		Subject:     subjectID.String(),
		GeneratedAt: requestcontext.Now(ctx),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		export.Consent, err = s.deps.Consent.List(gctx, subjectID)
		return err
	})
	g.Go(func() error {
		var err error
		export.Results, err = s.deps.Results.ListBySubject(gctx, subjectID)
		return err
	})
	g.Go(func() error {
		var err error
		export.CachedSamples, err = s.deps.Samples.ListBySubject(gctx, subjectID)
		return err
	})
	g.Go(func() error {
		var err error
		export.EmergencyRecords, err = s.deps.Emergencies.ListBySubject(gctx, subjectID)
		return err
	})
	g.Go(func() error {
		var err error
		export.AuditTrail, err = s.auditTrail(gctx, subjectID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Export{}, dErrors.Wrap(dErrors.CodeExportFailed, "failed to assemble export bundle", err)
	}

	s.record(ctx, audit.DecisionDataExported, subjectID.String(), map[string]string{
		"results":    strconv.Itoa(len(export.Results)),
		"samples":    strconv.Itoa(len(export.CachedSamples)),
		"emergency":  strconv.Itoa(len(export.EmergencyRecords)),
		"audit_rows": strconv.Itoa(len(export.AuditTrail)),
	})
	return export, nil
}

// auditTrail lists entries under the live subject id and, when the subject
// was previously erased, under their anonymization token as well.
func (s *Service) auditTrail(ctx context.Context, subjectID domain.SubjectID) ([]audit.Entry, error) {
	entries, err := s.deps.Audit.ListBySubject(ctx, subjectID.String())
	if err != nil {
		return nil, err
	}

	token, err := s.deps.Tokens.FindBySubject(ctx, subjectID.String())
	if errors.Is(err, sentinel.ErrNotFound) {
		return entries, nil
	}
	if err != nil {
		return nil, err
	}
	tokenized, err := s.deps.Audit.ListBySubject(ctx, token.Token)
	if err != nil {
		return nil, err
	}
	return append(entries, tokenized...), nil
}

// EraseSubjectData hard-deletes the subject's location data, tombstones their
// consent records, and breaks the audit linkage by replacing the subject id
// with a fresh anonymization token. Each record class is deleted in one store
// operation; a failure stops the run and reports erasure_failed so the caller
// retries, which is safe because every step is idempotent.
func (s *Service) EraseSubjectData(ctx context.Context, subjectID domain.SubjectID) error {
	if subjectID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "subject id is required")
	}
	now := requestcontext.Now(ctx)

	if _, err := s.deps.Results.DeleteBySubject(ctx, subjectID); err != nil {
		return dErrors.Wrap(dErrors.CodeErasureFailed, "failed to delete verification results", err)
	}
	if _, err := s.deps.Samples.DeleteBySubject(ctx, subjectID); err != nil {
		return dErrors.Wrap(dErrors.CodeErasureFailed, "failed to delete cached samples", err)
	}
	if _, err := s.deps.Emergencies.DeleteBySubject(ctx, subjectID); err != nil {
		return dErrors.Wrap(dErrors.CodeErasureFailed, "failed to delete emergency records", err)
	}
	if err := s.deps.Consent.EraseSubject(ctx, subjectID); err != nil {
		return err
	}
	if err := s.deps.Sessions.EndSession(ctx, subjectID); err != nil {
		return dErrors.Wrap(dErrors.CodeErasureFailed, "failed to clear session state", err)
	}

	// The token goes into the ledger before any audit row is rewritten. In the
	// other order a ledger write failure would strand already-tombstoned rows
	// under a token no retry can recover.
	token, err := s.erasureToken(ctx, subjectID)
	if err != nil {
		return err
	}
	if err := s.deps.Tokens.Save(ctx, TokenRecord{
		Subject:  subjectID.String(),
		Token:    token,
		ErasedAt: now,
	}); err != nil {
		return dErrors.Wrap(dErrors.CodeErasureFailed, "failed to record erasure token", err)
	}
	replaced, err := s.deps.Audit.TombstoneSubject(ctx, subjectID, token)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeErasureFailed, "failed to tombstone audit entries", err)
	}

	// The erasure record itself is linked to the token, never to the erased
	// subject id.
	s.record(ctx, audit.DecisionDataErased, token, map[string]string{
		"audit_rows_tombstoned": strconv.Itoa(replaced),
	})

	if s.logger != nil {
		s.logger.InfoContext(ctx, "subject data erased", "audit_rows_tombstoned", replaced)
	}
	return nil
}

// erasureToken returns the subject's anonymization token, reusing the ledger
// entry from an earlier attempt. Minting a fresh token on every call would
// strand already-tombstoned audit rows under the old one when a failed run is
// retried.
func (s *Service) erasureToken(ctx context.Context, subjectID domain.SubjectID) (string, error) {
	existing, err := s.deps.Tokens.FindBySubject(ctx, subjectID.String())
	if err == nil {
		return existing.Token, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return "", dErrors.Wrap(dErrors.CodeErasureFailed, "failed to look up erasure token", err)
	}
	return uuid.NewString(), nil
}

func (s *Service) record(ctx context.Context, decision audit.Decision, subject string, detail map[string]string) {
	err := s.deps.Audit.Append(ctx, audit.Entry{
		Decision:  decision,
		Subject:   subject,
		Timestamp: requestcontext.Now(ctx),
		Context:   detail,
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit record failed", "decision", string(decision), "error", err)
	}
}
