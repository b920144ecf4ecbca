package rights

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"veriloc/internal/audit"
	"veriloc/internal/verification"
	"veriloc/internal/verification/metrics"
	"veriloc/pkg/requestcontext"
)

// DefaultSweepInterval is the spacing of scheduled retention sweeps.
const DefaultSweepInterval = time.Hour

// Record classes reported by the sweeper.
const (
	ClassResults   = "verification_results"
	ClassSamples   = "sample_cache"
	ClassEmergency = "emergency_records"
	ClassAudit     = "audit_entries"
)

// AuditSweeper deletes audit entries past their legal retention.
type AuditSweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// Sweeper enforces the retention schedule. It is the only component that
// deletes records by age; services never delete on read.
type Sweeper struct {
	results     verification.ResultStore
	samples     verification.SampleCacheStore
	emergencies verification.EmergencyStore
	auditTrail  AuditSweeper
	auditor     AuditLedger
	interval    time.Duration
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// SweeperOption configures the Sweeper.
type SweeperOption func(*Sweeper)

// WithSweeperLogger sets a logger for sweep runs.
func WithSweeperLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) { s.logger = logger }
}

// WithSweepInterval overrides the sweep spacing.
func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) { s.interval = d }
}

// WithSweeperMetrics attaches deletion counters.
func WithSweeperMetrics(m *metrics.Metrics) SweeperOption {
	return func(s *Sweeper) { s.metrics = m }
}

func NewSweeper(
	results verification.ResultStore,
	samples verification.SampleCacheStore,
	emergencies verification.EmergencyStore,
	auditTrail AuditSweeper,
	auditor AuditLedger,
	opts ...SweeperOption,
) *Sweeper {
	s := &Sweeper{
		results:     results,
		samples:     samples,
		emergencies: emergencies,
		auditTrail:  auditTrail,
		auditor:     auditor,
		interval:    DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunOnce deletes every record past its retention deadline and returns the
// per-class deletion counts. A failing class stops the run; the next sweep
// picks up where this one left off.
func (s *Sweeper) RunOnce(ctx context.Context) (map[string]int, error) {
	now := requestcontext.Now(ctx)
	counts := make(map[string]int, 4)

	steps := []struct {
		class string
		fn    func(context.Context, time.Time) (int, error)
	}{
		{ClassResults, s.results.DeleteExpired},
		{ClassSamples, s.samples.DeleteExpired},
		{ClassEmergency, s.emergencies.DeleteExpired},
		{ClassAudit, s.auditTrail.DeleteExpired},
	}
	for _, step := range steps {
		n, err := step.fn(ctx, now)
		if err != nil {
			return counts, err
		}
		counts[step.class] = n
		if s.metrics != nil {
			s.metrics.AddSweepDeleted(step.class, n)
		}
	}

	if total(counts) > 0 {
		detail := make(map[string]string, len(counts))
		for class, n := range counts {
			detail[class] = strconv.Itoa(n)
		}
		err := s.auditor.Append(ctx, audit.Entry{
			Decision:  audit.DecisionRetentionSweep,
			Subject:   "system",
			Timestamp: now,
			Context:   detail,
		})
		if err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "audit record failed", "decision", string(audit.DecisionRetentionSweep), "error", err)
		}
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "retention sweep completed",
			"results", counts[ClassResults],
			"samples", counts[ClassSamples],
			"emergency", counts[ClassEmergency],
			"audit", counts[ClassAudit],
		)
	}
	return counts, nil
}

// Run sweeps on the configured interval until the context is cancelled. The
// first sweep happens immediately.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if _, err := s.RunOnce(ctx); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "retention sweep failed", "error", err)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && s.logger != nil {
				s.logger.ErrorContext(ctx, "retention sweep failed", "error", err)
			}
		}
	}
}

func total(counts map[string]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}
