// Package audit captures the engine's decision trail. Entries are
// append-only and outlive subject erasure: the legal retention period applies
// to the record, while erasure breaks only the subject linkage.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"veriloc/pkg/domain"
)

// RetentionPeriod is the fixed legal retention for audit entries.
const RetentionPeriod = 7 * 365 * 24 * time.Hour

// Service writes and queries the audit trail. It uses the store layer for
// persistence so tests can swap sinks easily.
type Service struct {
	store  Store
	logger *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a logger for audit write failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record appends one decision entry for a subject. ID and timestamp are
// filled in when absent so call sites stay terse.
func (s *Service) Record(ctx context.Context, subjectID domain.SubjectID, decision Decision, detail map[string]string) error {
	return s.Append(ctx, Entry{
		Decision: decision,
		Subject:  subjectID.String(),
		Context:  detail,
	})
}

// Append writes a fully formed entry.
func (s *Service) Append(ctx context.Context, entry Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if err := s.store.Append(ctx, entry); err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "audit append failed",
				"decision", string(entry.Decision),
				"error", err,
			)
		}
		return err
	}
	return nil
}

// ListBySubject returns entries linked to the given subject string, which is
// either a live subject id or a post-erasure anonymization token.
func (s *Service) ListBySubject(ctx context.Context, subject string) ([]Entry, error) {
	return s.store.ListBySubject(ctx, subject)
}

// TombstoneSubject replaces the subject id on all entries with the token.
// The entries themselves survive until their legal retention elapses.
func (s *Service) TombstoneSubject(ctx context.Context, subjectID domain.SubjectID, token string) (int, error) {
	return s.store.ReplaceSubject(ctx, subjectID.String(), token)
}

// DeleteExpired removes entries older than the legal retention period.
// Only the retention sweeper calls this.
func (s *Service) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	return s.store.DeleteOlderThan(ctx, now.Add(-RetentionPeriod))
}
