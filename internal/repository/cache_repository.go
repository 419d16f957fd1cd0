package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/account-academy/backoffice-api/pkg/errors"
)

// DashboardKey is the cache key for the back-office landing summary.
const DashboardKey = "dashboard:summary"

// ProgressKey builds the cache key for one student's rollup in one course.
func ProgressKey(courseID, studentID string) string {
	return fmt.Sprintf("progress:%s:%s", courseID, studentID)
}

// CacheRepository is the Redis cache for progress rollups and dashboard
// payloads, stored as JSON. A nil client degrades to a cache that misses
// every read and accepts every write, so the API runs without Redis.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, logger: logger}
}

// Get loads the entry under key into dest. A missing key, a nil client and
// an undecodable entry all surface as ErrCacheMiss so callers fall through
// to the source of truth.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return appErrors.ErrCacheMiss
	case err != nil:
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		r.logger.Warn("dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		_ = r.client.Del(ctx, key).Err()
		return appErrors.ErrCacheMiss
	}
	return nil
}

// Set stores value under key for the given TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// DeleteByPattern removes every key matching the glob pattern, collecting
// keys with SCAN and deleting them in one round trip.
func (r *CacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	if r.client == nil {
		return nil
	}

	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan pattern %s: %w", pattern, err)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete %d keys for %s: %w", len(keys), pattern, err)
	}
	return nil
}

// InvalidateCourseProgress drops every cached rollup for the course. Called
// after any write that changes completions, answers or the lecture set.
func (r *CacheRepository) InvalidateCourseProgress(ctx context.Context, courseID string) error {
	return r.DeleteByPattern(ctx, fmt.Sprintf("progress:%s:*", courseID))
}

// InvalidateStudentProgress drops the cached rollups of one student across
// all courses.
func (r *CacheRepository) InvalidateStudentProgress(ctx context.Context, studentID string) error {
	return r.DeleteByPattern(ctx, fmt.Sprintf("progress:*:%s", studentID))
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
