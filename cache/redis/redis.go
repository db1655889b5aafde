package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/adeilh/bearer/cache"
)

// Store implements cache.Store on top of go-redis.
type Store struct {
	client goredis.UniversalClient
}

var _ cache.Store = (*Store)(nil)

// NewStore builds a Redis-backed cache store.
func NewStore(opts Options) (*Store, error) {
	clientOpts, err := opts.clientOptions()
	if err != nil {
		return nil, fmt.Errorf("redis: options: %w", err)
	}
	return &Store{client: goredis.NewClient(clientOpts)}, nil
}

// NewStoreWithClient wraps an existing client, e.g. a cluster or failover client.
func NewStoreWithClient(client goredis.UniversalClient) *Store {
	return &Store{client: client}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	payload, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, cache.ErrNotFound
		}
		return nil, err
	}
	return payload, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	return s.client.Set(ctx, key, value, expiration(ttl)).Err()
}

func (s *Store) Add(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, key, value, expiration(ttl)).Result()
	if err != nil {
		return err
	}
	if !ok {
		return cache.ErrExists
	}
	return nil
}

func (s *Store) Replace(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	ok, err := s.client.SetXX(ctx, key, value, expiration(ttl)).Result()
	if err != nil {
		return err
	}
	if !ok {
		return cache.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return cache.ErrNotFound
	}
	return nil
}

// expiration clamps sub-millisecond TTLs up to one millisecond; zero keeps
// the key forever.
func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	if ttl < time.Millisecond {
		return time.Millisecond
	}
	return ttl
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
