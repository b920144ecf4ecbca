//go:build integration

package verification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veriloc/pkg/domain"
	"veriloc/pkg/testutil/containers"
)

func TestRedisCooldownStore(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	store := NewRedisCooldownStore(rc.Client)
	ctx := context.Background()

	t.Run("unmarked subject has no cooldown", func(t *testing.T) {
		remaining, err := store.Remaining(ctx, domain.NewSubjectID(), time.Now())
		require.NoError(t, err)
		assert.Zero(t, remaining)
	})

	t.Run("mark then query", func(t *testing.T) {
		subject := domain.NewSubjectID()
		require.NoError(t, store.Mark(ctx, subject, time.Now(), 5*time.Minute))

		remaining, err := store.Remaining(ctx, subject, time.Now())
		require.NoError(t, err)
		assert.Greater(t, remaining, 4*time.Minute)
		assert.LessOrEqual(t, remaining, 5*time.Minute)
	})

	t.Run("clear drops the marker", func(t *testing.T) {
		subject := domain.NewSubjectID()
		require.NoError(t, store.Mark(ctx, subject, time.Now(), 5*time.Minute))
		require.NoError(t, store.Clear(ctx, subject))

		remaining, err := store.Remaining(ctx, subject, time.Now())
		require.NoError(t, err)
		assert.Zero(t, remaining)
	})

	t.Run("marker expires on its own", func(t *testing.T) {
		subject := domain.NewSubjectID()
		require.NoError(t, store.Mark(ctx, subject, time.Now(), 100*time.Millisecond))

		require.Eventually(t, func() bool {
			remaining, err := store.Remaining(ctx, subject, time.Now())
			return err == nil && remaining == 0
		}, 2*time.Second, 50*time.Millisecond)
	})
}
