package verification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"veriloc/internal/audit"
	"veriloc/pkg/domain"
	dErrors "veriloc/pkg/domain-errors"
)

// DefaultMonitorInterval is the spacing of periodic verification runs. It
// matches the cooldown window so monitoring never trips its own cooldown.
const DefaultMonitorInterval = 5 * time.Minute

// Monitor drives periodic verification for subjects on an active shift. Each
// monitored subject gets one goroutine that funnels through the same Verify
// entry point as on-demand requests, so every consent, detection, and
// minimization gate applies identically.
type Monitor struct {
	service  *Service
	auditor  Auditor
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[domain.SubjectID]context.CancelFunc
	wg       sync.WaitGroup
}

// MonitorOption configures the Monitor.
type MonitorOption func(*Monitor)

// WithMonitorLogger sets a logger for monitoring lifecycle events.
func WithMonitorLogger(logger *slog.Logger) MonitorOption {
	return func(m *Monitor) { m.logger = logger }
}

// WithMonitorInterval overrides the periodic run spacing.
func WithMonitorInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.interval = d }
}

func NewMonitor(service *Service, auditor Auditor, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		service:  service,
		auditor:  auditor,
		interval: DefaultMonitorInterval,
		sessions: make(map[domain.SubjectID]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins periodic verification for the subject. The first run happens
// immediately; later runs fire every interval until Stop. Starting an already
// monitored subject is rejected rather than stacking tickers.
func (m *Monitor) Start(ctx context.Context, subjectID domain.SubjectID, purpose domain.TrackingPurpose, targetIDs []domain.TargetID) error {
	if subjectID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "subject id is required")
	}
	if !purpose.IsValid() {
		return dErrors.New(dErrors.CodeBadRequest, "invalid purpose: "+purpose.String())
	}
	if len(targetIDs) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "at least one target is required")
	}

	m.mu.Lock()
	if _, active := m.sessions[subjectID]; active {
		m.mu.Unlock()
		return dErrors.New(dErrors.CodeBadRequest, "subject is already being monitored")
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.sessions[subjectID] = cancel
	m.mu.Unlock()

	if err := m.auditor.Record(ctx, subjectID, audit.DecisionMonitoringStarted, map[string]string{
		"purpose": purpose.String(),
	}); err != nil && m.logger != nil {
		m.logger.WarnContext(ctx, "audit record failed", "decision", string(audit.DecisionMonitoringStarted), "error", err)
	}

	m.wg.Add(1)
	go m.run(runCtx, subjectID, purpose, targetIDs)
	return nil
}

func (m *Monitor) run(ctx context.Context, subjectID domain.SubjectID, purpose domain.TrackingPurpose, targetIDs []domain.TargetID) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.tick(ctx, subjectID, purpose, targetIDs)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx, subjectID, purpose, targetIDs)
		}
	}
}

func (m *Monitor) tick(ctx context.Context, subjectID domain.SubjectID, purpose domain.TrackingPurpose, targetIDs []domain.TargetID) {
	outcome, err := m.service.Verify(ctx, subjectID, purpose, targetIDs)
	if err != nil {
		if m.logger != nil {
			m.logger.WarnContext(ctx, "periodic verification failed",
				"subject_id", subjectID.String(),
				"error", err,
			)
		}
		return
	}
	if m.logger != nil {
		m.logger.DebugContext(ctx, "periodic verification completed",
			"subject_id", subjectID.String(),
			"outcome", string(outcome.Kind),
		)
	}
}

// Stop ends the subject's monitoring session and discards their in-memory
// state. Stopping a subject that is not monitored is a no-op.
func (m *Monitor) Stop(ctx context.Context, subjectID domain.SubjectID) error {
	m.mu.Lock()
	cancel, active := m.sessions[subjectID]
	if active {
		delete(m.sessions, subjectID)
	}
	m.mu.Unlock()
	if !active {
		return nil
	}
	cancel()

	if err := m.service.EndSession(ctx, subjectID); err != nil {
		return err
	}
	if err := m.auditor.Record(ctx, subjectID, audit.DecisionMonitoringStopped, nil); err != nil && m.logger != nil {
		m.logger.WarnContext(ctx, "audit record failed", "decision", string(audit.DecisionMonitoringStopped), "error", err)
	}
	return nil
}

// Active reports whether the subject is currently monitored.
func (m *Monitor) Active(subjectID domain.SubjectID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, active := m.sessions[subjectID]
	return active
}

// StopAll cancels every monitoring session and waits for the goroutines to
// drain. Called on shutdown.
func (m *Monitor) StopAll() {
	m.mu.Lock()
	for subject, cancel := range m.sessions {
		cancel()
		delete(m.sessions, subject)
	}
	m.mu.Unlock()
	m.wg.Wait()
}
