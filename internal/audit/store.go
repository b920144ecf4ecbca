package audit

import (
	"context"
	"time"
)

// Store is the append-only audit sink. Entries are never updated except by
// ReplaceSubject, and never deleted except by DeleteOlderThan once the legal
// retention period has elapsed.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListBySubject(ctx context.Context, subject string) ([]Entry, error)
	// ReplaceSubject rewrites the subject linkage on every entry, returning
	// the number of entries touched. Used for erasure tombstoning.
	ReplaceSubject(ctx context.Context, oldSubject, newSubject string) (int, error)
	// DeleteOlderThan removes entries whose timestamp precedes cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
