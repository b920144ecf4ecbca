package rights

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veriloc/internal/audit"
	"veriloc/internal/verification"
	"veriloc/pkg/domain"
	"veriloc/pkg/requestcontext"
)

func TestSweeperDeletesOnlyExpired(t *testing.T) {
	now := time.Date(2026, time.April, 2, 14, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	subject := domain.NewSubjectID()

	results := verification.NewInMemoryResultStore()
	samples := verification.NewInMemorySampleCache()
	emergency := verification.NewInMemoryEmergencyStore()
	auditSvc := audit.NewService(audit.NewInMemoryStore())

	// One expired and one live record per class.
	for _, deadline := range []time.Time{now.Add(-time.Minute), now.Add(time.Hour)} {
		require.NoError(t, results.Save(ctx, verification.Result{
			ID: uuid.New(), SubjectID: subject, TargetID: domain.NewTargetID(),
			RetentionDeadline: deadline,
		}))
		require.NoError(t, samples.Put(ctx, verification.CachedSample{
			ID: uuid.New(), SubjectID: subject,
			RetentionDeadline: deadline,
		}))
		require.NoError(t, emergency.Save(ctx, verification.EmergencyRecord{
			ID: uuid.New(), SubjectID: subject,
			RetentionDeadline: deadline,
		}))
	}
	require.NoError(t, auditSvc.Append(ctx, audit.Entry{
		Decision: audit.DecisionVerificationGranted, Subject: subject.String(),
		Timestamp: now.Add(-audit.RetentionPeriod - time.Hour),
	}))
	require.NoError(t, auditSvc.Append(ctx, audit.Entry{
		Decision: audit.DecisionVerificationGranted, Subject: subject.String(),
		Timestamp: now.Add(-time.Hour),
	}))

	sweeper := NewSweeper(results, samples, emergency, auditSvc, auditSvc)
	counts, err := sweeper.RunOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, counts[ClassResults])
	assert.Equal(t, 1, counts[ClassSamples])
	assert.Equal(t, 1, counts[ClassEmergency])
	assert.Equal(t, 1, counts[ClassAudit])

	remaining, err := results.ListBySubject(ctx, subject)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.True(t, remaining[0].RetentionDeadline.After(now))

	// The sweep itself is recorded for the compliance trail.
	systemEntries, err := auditSvc.ListBySubject(ctx, "system")
	require.NoError(t, err)
	require.Len(t, systemEntries, 1)
	assert.Equal(t, audit.DecisionRetentionSweep, systemEntries[0].Decision)
}

func TestSweeperNoopWhenNothingExpired(t *testing.T) {
	now := time.Date(2026, time.April, 2, 14, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	auditSvc := audit.NewService(audit.NewInMemoryStore())

	sweeper := NewSweeper(
		verification.NewInMemoryResultStore(),
		verification.NewInMemorySampleCache(),
		verification.NewInMemoryEmergencyStore(),
		auditSvc,
		auditSvc,
	)
	counts, err := sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, total(counts))

	// No deletions, no sweep entry.
	systemEntries, err := auditSvc.ListBySubject(ctx, "system")
	require.NoError(t, err)
	assert.Empty(t, systemEntries)
}
