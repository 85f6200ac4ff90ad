package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned by Get when the key does not exist or has expired.
	ErrNotFound = errors.New("kv: key not found")
	// ErrUnavailable wraps every backend failure.
	ErrUnavailable = errors.New("kv: store unavailable")
)

// Store is an expiring key-value store. Set must write value and TTL atomically.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
}

// Swapper is implemented by stores that can replace a value only when it
// still holds an expected one.
type Swapper interface {
	CompareAndSet(ctx context.Context, key, expected, value string, ttl time.Duration) (bool, error)
}

const compareAndSetScript = `
local current = redis.call("GET", KEYS[1])
if not current or current ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`

var compareAndSetLua = redis.NewScript(compareAndSetScript)

// RedisStore is a [Store] and [Swapper] backed by a Redis client.
type RedisStore struct {
	redis redis.UniversalClient
}

// NewRedisStore wraps client in a [RedisStore].
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{redis: client}
}

// Set writes value under key with the given TTL using a single SET ... PX.
// A non-positive ttl is rejected, since every entry the token service writes
// must expire.
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("kv: invalid ttl %s for key", ttl)
	}
	if err := s.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Get returns the value stored under key, or [ErrNotFound].
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return value, nil
}

// Del removes key. Deleting a missing key is not an error.
func (s *RedisStore) Del(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// CompareAndSet atomically replaces the value under key with value when it
// currently equals expected. It reports whether the swap happened.
func (s *RedisStore) CompareAndSet(ctx context.Context, key, expected, value string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, fmt.Errorf("kv: invalid ttl %s for key", ttl)
	}
	swapped, err := compareAndSetLua.Run(ctx, s.redis, []string{key}, expected, value, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return swapped == 1, nil
}
