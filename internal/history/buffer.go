// Package history keeps the short rolling window of recent location samples
// per tracked subject that feeds spoofing detection. Buffers live only in
// memory and are discarded when monitoring stops; nothing here is persisted.
package history

import "veriloc/internal/location"

// Capacity is the fixed number of samples retained per subject. Old samples
// are evicted in arrival order; detection never needs more than this window.
const Capacity = 20

// Buffer is a fixed-capacity rolling window of location samples in arrival
// order. Not safe for concurrent use; the Store serializes access per subject.
type Buffer struct {
	samples []location.Sample
}

// NewBuffer returns an empty buffer with the standard capacity.
func NewBuffer() *Buffer {
	return &Buffer{samples: make([]location.Sample, 0, Capacity)}
}

// Append adds a sample, evicting the oldest when the window is full.
func (b *Buffer) Append(s location.Sample) {
	if len(b.samples) == Capacity {
		copy(b.samples, b.samples[1:])
		b.samples = b.samples[:Capacity-1]
	}
	b.samples = append(b.samples, s)
}

// Snapshot returns a copy of the window, oldest first.
func (b *Buffer) Snapshot() []location.Sample {
	out := make([]location.Sample, len(b.samples))
	copy(out, b.samples)
	return out
}

// Last returns the most recent sample, if any.
func (b *Buffer) Last() (location.Sample, bool) {
	if len(b.samples) == 0 {
		return location.Sample{}, false
	}
	return b.samples[len(b.samples)-1], true
}

// Len returns the number of samples currently held.
func (b *Buffer) Len() int {
	return len(b.samples)
}
