// Package repository implements data persistence adapters
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"facebot/internal/core/ports"
)

// ErrStateWrite indicates the user state store rejected a write.
// Callers log it and move on: follow-state writes are never retried.
var ErrStateWrite = errors.New("user state write failed")

// Ensure RedisRepository implements UserStateRepository
var _ ports.UserStateRepository = (*RedisRepository)(nil)

// RedisRepository keeps per-user follow state in a Redis hash
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository creates a new Redis repository instance
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{
		client: client,
	}
}

// SetFollowState upserts the user's record: is_blocked = !following plus the
// store's own clock as the write timestamp. HSET creates the hash if absent
// and overwrites only these two fields, leaving any others untouched.
func (r *RedisRepository) SetFollowState(ctx context.Context, userID string, following bool) error {
	key := buildUserKey(userID)

	// Store-assigned timestamp: the Redis server clock, not ours
	serverTime, err := r.client.Time(ctx).Result()
	if err != nil {
		slog.Error("Failed to read store time",
			"error", err,
			"user_id", userID,
		)
		return fmt.Errorf("%w: server time: %v", ErrStateWrite, err)
	}

	err = r.client.HSet(ctx, key,
		"is_blocked", strconv.FormatBool(!following),
		"updated_at", serverTime.Unix(),
	).Err()
	if err != nil {
		slog.Error("Failed to write follow state",
			"error", err,
			"user_id", userID,
			"following", following,
		)
		return fmt.Errorf("%w: %v", ErrStateWrite, err)
	}

	slog.Debug("Follow state written",
		"key", key,
		"is_blocked", !following,
	)

	return nil
}

// buildUserKey constructs the Redis key for a user record
func buildUserKey(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}
