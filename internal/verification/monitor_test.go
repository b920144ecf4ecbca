package verification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veriloc/internal/audit"
	"veriloc/internal/geo"
	"veriloc/internal/history"
	"veriloc/internal/location"
	"veriloc/internal/sites"
	"veriloc/pkg/domain"
	dErrors "veriloc/pkg/domain-errors"
)

func newMonitorFixture() (*Monitor, *InMemoryResultStore, *fakeAuditor, domain.SubjectID, domain.TargetID) {
	subject := domain.NewSubjectID()
	target := sites.TargetLocation{
		ID:           domain.NewTargetID(),
		Name:         "depot",
		Point:        geo.Point{Lat: 40.0, Lon: -74.0},
		RadiusMeters: 150,
		OrgID:        domain.NewOrgID(),
	}
	registry := sites.NewInMemoryRegistry()
	registry.Put(target)

	results := NewInMemoryResultStore()
	auditor := &fakeAuditor{}
	service := NewService(Deps{
		Consent: &fakeConsent{allowed: map[domain.TrackingPurpose]bool{domain.PurposeShiftMonitoring: true}},
		Audit:   auditor,
		Source: &fakeSource{sample: location.Sample{
			Point:          geo.Point{Lat: 40.0001, Lon: -74.0001},
			AccuracyMeters: 8,
			CapturedAt:     time.Now(),
			Provider:       "gps",
		}},
		Registry:    registry,
		History:     history.NewStore(),
		Results:     results,
		Samples:     NewInMemorySampleCache(),
		Emergencies: NewInMemoryEmergencyStore(),
		Cooldowns:   NewInMemoryCooldownStore(),
	})

	monitor := NewMonitor(service, auditor, WithMonitorInterval(time.Hour))
	return monitor, results, auditor, subject, target.ID
}

func TestMonitorRunsImmediatelyAndStops(t *testing.T) {
	monitor, results, auditor, subject, targetID := newMonitorFixture()
	defer monitor.StopAll()

	err := monitor.Start(context.Background(), subject, domain.PurposeShiftMonitoring, []domain.TargetID{targetID})
	require.NoError(t, err)
	assert.True(t, monitor.Active(subject))

	require.Eventually(t, func() bool {
		stored, err := results.ListBySubject(context.Background(), subject)
		return err == nil && len(stored) == 1
	}, 2*time.Second, 10*time.Millisecond, "the first periodic run fires without waiting a full interval")

	require.NoError(t, monitor.Stop(context.Background(), subject))
	assert.False(t, monitor.Active(subject))

	assert.Contains(t, auditor.entries, audit.DecisionMonitoringStarted)
	assert.Contains(t, auditor.entries, audit.DecisionMonitoringStopped)
}

func TestMonitorRejectsDuplicateStart(t *testing.T) {
	monitor, _, _, subject, targetID := newMonitorFixture()
	defer monitor.StopAll()

	require.NoError(t, monitor.Start(context.Background(), subject, domain.PurposeShiftMonitoring, []domain.TargetID{targetID}))

	err := monitor.Start(context.Background(), subject, domain.PurposeShiftMonitoring, []domain.TargetID{targetID})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestMonitorStopUnknownSubjectIsNoop(t *testing.T) {
	monitor, _, auditor, _, _ := newMonitorFixture()
	require.NoError(t, monitor.Stop(context.Background(), domain.NewSubjectID()))
	assert.Empty(t, auditor.entries)
}
