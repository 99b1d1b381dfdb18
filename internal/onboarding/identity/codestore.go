// internal/onboarding/identity/codestore.go
package identity

import (
	"context"
	goerrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoActiveCode is returned when no code has been issued for the email,
// or the issued code has expired or been invalidated.
var ErrNoActiveCode = goerrors.New("no active verification code")

// CodeStore holds issued one-time codes, keyed by the email they were
// delivered to. A code lives for one request cycle: issuing a new code
// replaces the old one and resets the attempt count.
type CodeStore interface {
	Put(ctx context.Context, email, code string, ttl time.Duration) error
	Get(ctx context.Context, email string) (string, error)
	IncrementAttempts(ctx context.Context, email string) (int, error)
	Clear(ctx context.Context, email string) error
}

const (
	codeKeyPrefix     = "onboarding:code:"
	attemptsKeyPrefix = "onboarding:code:attempts:"
)

// RedisCodeStore stores codes in Redis with the configured TTL, so
// abandoned codes expire without cleanup.
type RedisCodeStore struct {
	client *redis.Client
}

func NewRedisCodeStore(client *redis.Client) *RedisCodeStore {
	return &RedisCodeStore{client: client}
}

func (s *RedisCodeStore) Put(ctx context.Context, email, code string, ttl time.Duration) error {
	if err := s.client.Set(ctx, codeKeyPrefix+email, code, ttl).Err(); err != nil {
		return fmt.Errorf("store code: %w", err)
	}
	// Fresh cycle: reset the attempt counter with the same lifetime.
	if err := s.client.Set(ctx, attemptsKeyPrefix+email, 0, ttl).Err(); err != nil {
		return fmt.Errorf("reset attempts: %w", err)
	}
	return nil
}

func (s *RedisCodeStore) Get(ctx context.Context, email string) (string, error) {
	code, err := s.client.Get(ctx, codeKeyPrefix+email).Result()
	if err == redis.Nil {
		return "", ErrNoActiveCode
	}
	if err != nil {
		return "", fmt.Errorf("read code: %w", err)
	}
	return code, nil
}

func (s *RedisCodeStore) IncrementAttempts(ctx context.Context, email string) (int, error) {
	n, err := s.client.Incr(ctx, attemptsKeyPrefix+email).Result()
	if err != nil {
		return 0, fmt.Errorf("increment attempts: %w", err)
	}
	return int(n), nil
}

func (s *RedisCodeStore) Clear(ctx context.Context, email string) error {
	return s.client.Del(ctx, codeKeyPrefix+email, attemptsKeyPrefix+email).Err()
}
