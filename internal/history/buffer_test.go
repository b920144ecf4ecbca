package history

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veriloc/internal/geo"
	"veriloc/internal/location"
	"veriloc/pkg/domain"
)

func sampleAt(lon float64, t time.Time) location.Sample {
	return location.Sample{
		Point:          geo.Point{Lat: 52.0, Lon: lon},
		AccuracyMeters: 10,
		CapturedAt:     t,
	}
}

func TestBuffer(t *testing.T) {
	base := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)

	t.Run("empty buffer has no last sample", func(t *testing.T) {
		b := NewBuffer()
		_, ok := b.Last()
		assert.False(t, ok)
		assert.Zero(t, b.Len())
	})

	t.Run("append preserves arrival order", func(t *testing.T) {
		b := NewBuffer()
		for i := 0; i < 3; i++ {
			b.Append(sampleAt(float64(i), base.Add(time.Duration(i)*time.Minute)))
		}
		snap := b.Snapshot()
		require.Len(t, snap, 3)
		assert.Equal(t, 0.0, snap[0].Point.Lon)
		assert.Equal(t, 2.0, snap[2].Point.Lon)

		last, ok := b.Last()
		require.True(t, ok)
		assert.Equal(t, 2.0, last.Point.Lon)
	})

	t.Run("overflow evicts oldest", func(t *testing.T) {
		b := NewBuffer()
		for i := 0; i < Capacity+5; i++ {
			b.Append(sampleAt(float64(i), base.Add(time.Duration(i)*time.Minute)))
		}
		snap := b.Snapshot()
		require.Len(t, snap, Capacity)
		assert.Equal(t, 5.0, snap[0].Point.Lon)
		assert.Equal(t, float64(Capacity+4), snap[Capacity-1].Point.Lon)
	})

	t.Run("snapshot is a copy", func(t *testing.T) {
		b := NewBuffer()
		b.Append(sampleAt(1, base))
		snap := b.Snapshot()
		snap[0].Point.Lon = 99
		fresh := b.Snapshot()
		assert.Equal(t, 1.0, fresh[0].Point.Lon)
	})
}

func TestStore(t *testing.T) {
	base := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)

	t.Run("clear drops the subject's window", func(t *testing.T) {
		store := NewStore()
		subject := domain.NewSubjectID()

		sess := store.Acquire(subject)
		sess.Buffer().Append(sampleAt(1, base))
		sess.Release()

		store.Clear(subject)

		sess = store.Acquire(subject)
		defer sess.Release()
		assert.Zero(t, sess.Buffer().Len())
	})

	t.Run("appends from concurrent callers all land", func(t *testing.T) {
		store := NewStore()
		subject := domain.NewSubjectID()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				sess := store.Acquire(subject)
				defer sess.Release()
				sess.Buffer().Append(sampleAt(float64(i), base.Add(time.Duration(i)*time.Second)))
			}(i)
		}
		wg.Wait()

		sess := store.Acquire(subject)
		defer sess.Release()
		assert.Equal(t, 10, sess.Buffer().Len())
	})

	t.Run("different subjects do not block each other", func(t *testing.T) {
		store := NewStore()
		a := store.Acquire(domain.NewSubjectID())
		defer a.Release()

		done := make(chan struct{})
		go func() {
			b := store.Acquire(domain.NewSubjectID())
			b.Release()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("acquire for a second subject blocked behind the first")
		}
	})
}
