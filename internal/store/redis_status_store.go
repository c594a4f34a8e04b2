package store

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// RedisStatusStore stores job status in Redis with a TTL per record.
type RedisStatusStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStatusStore initializes a Redis-backed StatusStore.
func NewRedisStatusStore(addr, prefix string, ttl time.Duration) *RedisStatusStore {
	return NewRedisStatusStoreWithOptions(&redis.Options{Addr: addr}, prefix, ttl)
}

// NewRedisStatusStoreWithOptions uses caller supplied client options.
func NewRedisStatusStoreWithOptions(opts *redis.Options, prefix string, ttl time.Duration) *RedisStatusStore {
	return &RedisStatusStore{
		client: redis.NewClient(opts),
		prefix: prefix,
		ttl:    ttl,
	}
}

// Ping checks connectivity.
func (s *RedisStatusStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisStatusStore) Close() error {
	return s.client.Close()
}

func (s *RedisStatusStore) key(jobID string) string {
	return s.prefix + jobID
}

// SetStatus writes the status record to Redis.
func (s *RedisStatusStore) SetStatus(ctx context.Context, status JobStatus) error {
	payload, err := sonic.Marshal(status)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(status.JobID), payload, s.ttl).Err()
}

// GetStatus reads the status record from Redis.
func (s *RedisStatusStore) GetStatus(ctx context.Context, jobID string) (JobStatus, bool, error) {
	val, err := s.client.Get(ctx, s.key(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return JobStatus{}, false, nil
		}
		return JobStatus{}, false, err
	}

	var status JobStatus
	if err := sonic.Unmarshal(val, &status); err != nil {
		return JobStatus{}, false, err
	}
	return status, true, nil
}
