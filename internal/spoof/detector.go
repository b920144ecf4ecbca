// Package spoof decides whether a location sample looks like genuine GPS data
// or a synthetic fix. Detection is layered: independent heuristics each get a
// vote, any single triggered layer marks the sample untrusted, and a fault in
// one heuristic never silences the others.
package spoof

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"veriloc/internal/geo"
	"veriloc/internal/location"
)

// ReasonCode identifies the detection layer that flagged a sample. Codes are
// safe to log and audit; raw sensor data is not.
type ReasonCode string

const (
	ReasonMockProvider        ReasonCode = "mock_provider"
	ReasonSuspiciousPrecision ReasonCode = "suspicious_precision"
	ReasonImpossibleVelocity  ReasonCode = "impossible_velocity"
	ReasonLinearMovement      ReasonCode = "linear_movement"
	ReasonUniformAccuracy     ReasonCode = "uniform_accuracy"
	ReasonRegularIntervals    ReasonCode = "regular_intervals"
	ReasonSensorMismatch      ReasonCode = "sensor_mismatch"
)

// layerOrder fixes evaluation and reason ordering.
var layerOrder = []ReasonCode{
	ReasonMockProvider,
	ReasonSuspiciousPrecision,
	ReasonImpossibleVelocity,
	ReasonLinearMovement,
	ReasonUniformAccuracy,
	ReasonRegularIntervals,
	ReasonSensorMismatch,
}

// LayerStatus distinguishes "safely skipped" from "would have triggered" so
// tests and diagnostics can tell the difference.
type LayerStatus string

const (
	LayerNotTriggered LayerStatus = "not_triggered"
	LayerTriggered    LayerStatus = "triggered"
	// LayerFailed means the heuristic faulted and was degraded to
	// non-triggering. Blocking legitimate workers costs more than missing
	// one fraud signal layer; the remaining layers still apply.
	LayerFailed LayerStatus = "evaluation_failed"
)

// LayerOutcome is the typed result of one detection layer.
type LayerOutcome struct {
	Status LayerStatus
	Err    error
}

// Verdict is the detector's decision for one sample. Ephemeral: only Trusted
// and Reasons may be persisted, and only in audit context.
type Verdict struct {
	Trusted bool
	// Reasons lists triggered layers in evaluation order; the first entry is
	// the primary reason, but all layers are always evaluated.
	Reasons []ReasonCode
	Layers  map[ReasonCode]LayerOutcome
}

// Config holds the detection thresholds. Defaults implement the authoritative
// tuning; deployments can adjust without code changes.
type Config struct {
	// MinCredibleAccuracyMeters is the consumer GPS noise floor. Reported
	// accuracy below it is a hallmark of synthetic fixes.
	MinCredibleAccuracyMeters float64
	// MaxSpeedKmh caps plausible surface travel between consecutive fixes.
	MaxSpeedKmh float64

	// Pattern analysis activates once this many samples exist.
	PatternMinSamples int

	BearingWindow           int
	BearingToleranceDegrees float64
	BearingConsistencyRatio float64

	AccuracyWindow       int
	AccuracyStddevMeters float64

	IntervalTolerance       time.Duration
	IntervalRegularityRatio float64

	SensorDisplacementMeters     float64
	SensorMinIntegratedMagnitude float64
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		MinCredibleAccuracyMeters:    1.0,
		MaxSpeedKmh:                  200,
		PatternMinSamples:            5,
		BearingWindow:                5,
		BearingToleranceDegrees:      5,
		BearingConsistencyRatio:      0.8,
		AccuracyWindow:               6,
		AccuracyStddevMeters:         0.5,
		IntervalTolerance:            2 * time.Second,
		IntervalRegularityRatio:      0.75,
		SensorDisplacementMeters:     10,
		SensorMinIntegratedMagnitude: 0.1,
	}
}

// Detector evaluates samples against their subject's recent history. It is
// stateless; the caller owns the history window.
type Detector struct {
	cfg    Config
	logger *slog.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the logger used to report degraded layers.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) { d.logger = logger }
}

// WithConfig overrides the default thresholds.
func WithConfig(cfg Config) Option {
	return func(d *Detector) { d.cfg = cfg }
}

// New constructs a Detector.
func New(opts ...Option) *Detector {
	d := &Detector{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Evaluate runs every layer against the current sample, the subject's history
// window (oldest first) and any motion samples covering the window since the
// previous fix. A nil or empty motion slice disables only the sensor layer.
func (d *Detector) Evaluate(sample location.Sample, history []location.Sample, motion []location.MotionSample) Verdict {
	layers := map[ReasonCode]LayerOutcome{
		ReasonMockProvider:        d.mockProviderLayer(sample),
		ReasonSuspiciousPrecision: d.precisionLayer(sample),
		ReasonImpossibleVelocity:  d.guarded(ReasonImpossibleVelocity, func() (bool, error) { return d.velocity(sample, history) }),
		ReasonLinearMovement:      d.guarded(ReasonLinearMovement, func() (bool, error) { return d.linearMovement(sample, history) }),
		ReasonUniformAccuracy:     d.guarded(ReasonUniformAccuracy, func() (bool, error) { return d.uniformAccuracy(sample, history) }),
		ReasonRegularIntervals:    d.guarded(ReasonRegularIntervals, func() (bool, error) { return d.regularIntervals(sample, history) }),
		ReasonSensorMismatch:      d.guarded(ReasonSensorMismatch, func() (bool, error) { return d.sensorMismatch(sample, history, motion) }),
	}

	var reasons []ReasonCode
	for _, code := range layerOrder {
		if layers[code].Status == LayerTriggered {
			reasons = append(reasons, code)
		}
	}

	return Verdict{
		Trusted: len(reasons) == 0,
		Reasons: reasons,
		Layers:  layers,
	}
}

// guarded degrades any fault in a heuristic to a non-triggering outcome and
// records it, keeping a broken layer from aborting the whole detector.
func (d *Detector) guarded(code ReasonCode, fn func() (bool, error)) (outcome LayerOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = LayerOutcome{Status: LayerFailed, Err: fmt.Errorf("layer panic: %v", r)}
			d.logFault(code, outcome.Err)
		}
	}()

	triggered, err := fn()
	if err != nil {
		d.logFault(code, err)
		return LayerOutcome{Status: LayerFailed, Err: err}
	}
	if triggered {
		return LayerOutcome{Status: LayerTriggered}
	}
	return LayerOutcome{Status: LayerNotTriggered}
}

func (d *Detector) logFault(code ReasonCode, err error) {
	if d.logger != nil {
		// Logged apart from trust verdicts: a degraded layer is an internal
		// fault, not a fraud signal.
		d.logger.Warn("detection layer degraded", "layer", string(code), "error", err)
	}
}

// Layer 1: the sample's own provider-reported mock flag.
func (d *Detector) mockProviderLayer(sample location.Sample) LayerOutcome {
	if sample.Mocked {
		return LayerOutcome{Status: LayerTriggered}
	}
	return LayerOutcome{Status: LayerNotTriggered}
}

// Layer 2: near-perfect reported accuracy below the consumer GPS noise floor.
func (d *Detector) precisionLayer(sample location.Sample) LayerOutcome {
	if sample.AccuracyMeters < d.cfg.MinCredibleAccuracyMeters {
		return LayerOutcome{Status: LayerTriggered}
	}
	return LayerOutcome{Status: LayerNotTriggered}
}

// Layer 3: displacement from the previous fix implies impossible speed.
// Skipped when history is empty or elapsed time is non-positive.
func (d *Detector) velocity(sample location.Sample, history []location.Sample) (bool, error) {
	if len(history) == 0 {
		return false, nil
	}
	prev := history[len(history)-1]
	elapsed := sample.CapturedAt.Sub(prev.CapturedAt)
	if elapsed <= 0 {
		return false, nil
	}
	meters, err := geo.DistanceMeters(prev.Point, sample.Point)
	if err != nil {
		return false, err
	}
	speedKmh := (meters / 1000) / elapsed.Hours()
	return speedKmh > d.cfg.MaxSpeedKmh, nil
}

// Layer 4a: straight-line bearing consistency. Real pedestrian or vehicle
// movement rarely tracks one bearing this tightly over several samples.
func (d *Detector) linearMovement(sample location.Sample, history []location.Sample) (bool, error) {
	series := append(append([]location.Sample{}, history...), sample)
	if len(series) < d.cfg.PatternMinSamples || len(series) < d.cfg.BearingWindow {
		return false, nil
	}
	window := series[len(series)-d.cfg.BearingWindow:]

	reference, err := geo.BearingDegrees(window[0].Point, window[len(window)-1].Point)
	if err != nil {
		return false, err
	}

	consistent := 0
	total := len(window) - 1
	for i := 0; i < total; i++ {
		b, err := geo.BearingDegrees(window[i].Point, window[i+1].Point)
		if err != nil {
			return false, err
		}
		if angularDelta(b, reference) < d.cfg.BearingToleranceDegrees {
			consistent++
		}
	}
	return float64(consistent)/float64(total) >= d.cfg.BearingConsistencyRatio, nil
}

// Layer 4b: accuracy homogeneity. Real GPS accuracy fluctuates with satellite
// geometry; unnatural constancy is suspicious. Needs a full accuracy window.
func (d *Detector) uniformAccuracy(sample location.Sample, history []location.Sample) (bool, error) {
	series := append(append([]location.Sample{}, history...), sample)
	if len(series) < d.cfg.PatternMinSamples || len(series) < d.cfg.AccuracyWindow {
		return false, nil
	}
	window := series[len(series)-d.cfg.AccuracyWindow:]

	values := make([]float64, len(window))
	for i, s := range window {
		values[i] = s.AccuracyMeters
	}
	return stddev(values) < d.cfg.AccuracyStddevMeters, nil
}

// Layer 4c: interval regularity. Clockwork sample spacing is automation-like.
func (d *Detector) regularIntervals(sample location.Sample, history []location.Sample) (bool, error) {
	series := append(append([]location.Sample{}, history...), sample)
	if len(series) < d.cfg.PatternMinSamples {
		return false, nil
	}

	gaps := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		gaps = append(gaps, series[i].CapturedAt.Sub(series[i-1].CapturedAt).Seconds())
	}

	mean := 0.0
	for _, g := range gaps {
		mean += g
	}
	mean /= float64(len(gaps))

	tolerance := d.cfg.IntervalTolerance.Seconds()
	regular := 0
	for _, g := range gaps {
		if math.Abs(g-mean) <= tolerance {
			regular++
		}
	}
	return float64(regular)/float64(len(gaps)) >= d.cfg.IntervalRegularityRatio, nil
}

// Layer 5: sensor cross-correlation. GPS claims meaningful displacement but
// the accelerometer says the device barely moved. Requires motion data.
func (d *Detector) sensorMismatch(sample location.Sample, history []location.Sample, motion []location.MotionSample) (bool, error) {
	if len(motion) == 0 || len(history) == 0 {
		return false, nil
	}
	prev := history[len(history)-1]

	meters, err := geo.DistanceMeters(prev.Point, sample.Point)
	if err != nil {
		return false, err
	}
	if meters <= d.cfg.SensorDisplacementMeters {
		return false, nil
	}

	integrated := 0.0
	for _, m := range motion {
		if m.CapturedAt.After(prev.CapturedAt) && !m.CapturedAt.After(sample.CapturedAt) {
			integrated += m.Magnitude
		}
	}
	return integrated < d.cfg.SensorMinIntegratedMagnitude, nil
}

// angularDelta returns the smallest angle between two bearings.
func angularDelta(a, b float64) float64 {
	diff := math.Abs(a - b)
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}

// stddev is the population standard deviation.
func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}
