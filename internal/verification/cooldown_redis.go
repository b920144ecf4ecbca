package verification

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"veriloc/pkg/domain"
)

// Redis key prefix for cooldown markers.
const cooldownKeyPrefix = "veriloc:cooldown:"

// RedisCooldownStore shares cooldown state across engine instances. The key's
// own TTL is the cooldown window, so expiry needs no sweeping.
type RedisCooldownStore struct {
	client *redis.Client
}

func NewRedisCooldownStore(client *redis.Client) *RedisCooldownStore {
	return &RedisCooldownStore{client: client}
}

func (s *RedisCooldownStore) Remaining(ctx context.Context, subjectID domain.SubjectID, _ time.Time) (time.Duration, error) {
	ttl, err := s.client.PTTL(ctx, cooldownKeyPrefix+subjectID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	// PTTL reports negative durations for missing keys and keys without
	// expiry; both mean no active cooldown.
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

func (s *RedisCooldownStore) Mark(ctx context.Context, subjectID domain.SubjectID, _ time.Time, window time.Duration) error {
	// Store "1" as a simple marker; the key TTL is what matters.
	return s.client.Set(ctx, cooldownKeyPrefix+subjectID.String(), "1", window).Err()
}

func (s *RedisCooldownStore) Clear(ctx context.Context, subjectID domain.SubjectID) error {
	return s.client.Del(ctx, cooldownKeyPrefix+subjectID.String()).Err()
}
