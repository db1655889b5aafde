package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("cache: key not found")
	ErrExists   = errors.New("cache: key already exists")
)

// Store represents a simple TTL-based cache abstraction that can be backed
// by memory, Redis, or any other KV store. A ttl <= 0 means no expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Add stores value only when key is absent, failing with ErrExists otherwise.
	Add(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Replace stores value only when key is present, failing with ErrNotFound otherwise.
	Replace(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
