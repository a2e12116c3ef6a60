package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrTokenNotFound is returned when a token is unknown or expired.
	ErrTokenNotFound = errors.New("token not found")
	// ErrStoreUnavailable wraps storage backend failures.
	ErrStoreUnavailable = errors.New("token store unavailable")
)

// Store persists issued tokens.
type Store interface {
	// Save binds token to publicKey for ttl.
	Save(ctx context.Context, token, publicKey string, ttl time.Duration) error
	// Lookup returns the public key bound to token.
	Lookup(ctx context.Context, token string) (string, error)
	// Delete revokes token. Deleting an unknown token is not an error.
	Delete(ctx context.Context, token string) error
	// MarkUsed records signature as consumed for ttl and reports whether it
	// was unused before.
	MarkUsed(ctx context.Context, signature string, ttl time.Duration) (bool, error)
}

// RedisStore is a Store backed by redis string keys with expiry.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore returns a RedisStore using prefix for its keys ("bgo" when empty).
func NewRedisStore(redisClient redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "bgo"
	}
	return &RedisStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RedisStore) tokenKey(token string) string {
	return s.prefix + ":tok:" + token
}

func (s *RedisStore) usedKey(signature string) string {
	return s.prefix + ":req:" + signature
}

func (s *RedisStore) Save(ctx context.Context, token, publicKey string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.tokenKey(token), publicKey, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Lookup(ctx context.Context, token string) (string, error) {
	pub, err := s.redis.Get(ctx, s.tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return pub, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.redis.Del(ctx, s.tokenKey(token)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) MarkUsed(ctx context.Context, signature string, ttl time.Duration) (bool, error) {
	ok, err := s.redis.SetNX(ctx, s.usedKey(signature), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return ok, nil
}
