package location

import (
	"context"
	"sync"
	"time"

	"veriloc/pkg/domain"
)

const (
	// DefaultMaxFixAge is how old a reported fix may be and still satisfy a
	// Current call. Older fixes make the call wait for a fresh report.
	DefaultMaxFixAge = 2 * time.Minute

	// motionCapacity bounds the per-subject motion window. Motion samples
	// only feed the sensor cross-check, which never looks further back than
	// the previous fix.
	motionCapacity = 256
)

// PushSource implements Source and MotionSource for device-reported data:
// devices push fixes and motion samples, verification calls block until a
// sufficiently fresh fix exists. All data lives in memory only; durable
// storage of raw samples is the verification service's decision.
type PushSource struct {
	maxAge time.Duration

	mu      sync.Mutex
	latest  map[domain.SubjectID]Sample
	motion  map[domain.SubjectID][]MotionSample
	waiters map[domain.SubjectID][]chan Sample
}

// PushOption configures a PushSource.
type PushOption func(*PushSource)

// WithMaxFixAge overrides the freshness bound for reported fixes.
func WithMaxFixAge(d time.Duration) PushOption {
	return func(p *PushSource) { p.maxAge = d }
}

func NewPushSource(opts ...PushOption) *PushSource {
	p := &PushSource{
		maxAge:  DefaultMaxFixAge,
		latest:  make(map[domain.SubjectID]Sample),
		motion:  make(map[domain.SubjectID][]MotionSample),
		waiters: make(map[domain.SubjectID][]chan Sample),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Report records a device-pushed fix and wakes any Current call waiting on
// this subject.
func (p *PushSource) Report(subjectID domain.SubjectID, sample Sample) {
	p.mu.Lock()
	p.latest[subjectID] = sample
	waiting := p.waiters[subjectID]
	delete(p.waiters, subjectID)
	p.mu.Unlock()

	for _, ch := range waiting {
		ch <- sample
	}
}

// ReportMotion appends motion samples to the subject's window.
func (p *PushSource) ReportMotion(subjectID domain.SubjectID, samples ...MotionSample) {
	p.mu.Lock()
	defer p.mu.Unlock()
	window := append(p.motion[subjectID], samples...)
	if len(window) > motionCapacity {
		window = window[len(window)-motionCapacity:]
	}
	p.motion[subjectID] = window
}

// Current returns the subject's latest fix if it is fresh enough, otherwise
// blocks until a fresh report arrives or the context expires.
func (p *PushSource) Current(ctx context.Context, subjectID domain.SubjectID) (Sample, error) {
	p.mu.Lock()
	if sample, ok := p.latest[subjectID]; ok && time.Since(sample.CapturedAt) <= p.maxAge {
		p.mu.Unlock()
		return sample, nil
	}
	ch := make(chan Sample, 1)
	p.waiters[subjectID] = append(p.waiters[subjectID], ch)
	p.mu.Unlock()

	select {
	case <-ctx.Done():
		p.dropWaiter(subjectID, ch)
		return Sample{}, ctx.Err()
	case sample := <-ch:
		return sample, nil
	}
}

// Recent returns motion samples captured after since.
func (p *PushSource) Recent(_ context.Context, subjectID domain.SubjectID, since time.Time) ([]MotionSample, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []MotionSample
	for _, m := range p.motion[subjectID] {
		if m.CapturedAt.After(since) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Forget drops everything held for the subject. Called on erasure so no raw
// fix outlives the subject in process memory.
func (p *PushSource) Forget(subjectID domain.SubjectID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.latest, subjectID)
	delete(p.motion, subjectID)
}

func (p *PushSource) dropWaiter(subjectID domain.SubjectID, ch chan Sample) {
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.waiters[subjectID][:0]
	for _, w := range p.waiters[subjectID] {
		if w != ch {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		delete(p.waiters, subjectID)
	} else {
		p.waiters[subjectID] = kept
	}
}
