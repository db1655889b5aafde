package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/adeilh/bearer/cache"
	"github.com/adeilh/bearer/cache/redis"
)

var ErrInvalidAuthenticator = errors.New("auth: invalid authenticator")

type CacheStoreOptions struct {
	Prefix string
	Clock  Clock
}

// CacheStore persists authenticators in a cache.Store. Records are keyed by
// the digest of the token and expire on their own once the earlier of the
// absolute expiry and the idle deadline has passed.
type CacheStore struct {
	store  cache.Store
	prefix string
	clock  Clock
}

var _ Store = (*CacheStore)(nil)

func NewCacheStore(store cache.Store, opts CacheStoreOptions) *CacheStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "authenticator"
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock
	}
	return &CacheStore{store: store, prefix: prefix, clock: clock}
}

type RedisStoreOptions struct {
	Prefix string
	Clock  Clock
	Redis  redis.Options
}

// NewRedisStore builds a CacheStore backed by Redis.
func NewRedisStore(opts RedisStoreOptions) (*CacheStore, error) {
	store, err := redis.NewStore(opts.Redis)
	if err != nil {
		return nil, err
	}
	return NewCacheStore(store, CacheStoreOptions{Prefix: opts.Prefix, Clock: opts.Clock}), nil
}

func (s *CacheStore) key(id string) string {
	return fmt.Sprintf("%s:%s", s.prefix, Digest(id))
}

// Find fetches an authenticator by token. Missing entries and entries that
// are no longer valid report ok == false.
func (s *CacheStore) Find(ctx context.Context, id string) (Authenticator, bool, error) {
	if err := contextError(ctx); err != nil {
		return Authenticator{}, false, err
	}
	if id == "" {
		return Authenticator{}, false, nil
	}

	payload, err := s.store.Get(ctx, s.key(id))
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return Authenticator{}, false, nil
		}
		return Authenticator{}, false, err
	}

	var rec cacheRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return Authenticator{}, false, fmt.Errorf("auth: decode authenticator: %w", err)
	}
	a := rec.authenticator(id)

	if !a.IsValid(s.clock.Now()) {
		_ = s.store.Delete(ctx, s.key(id))
		return Authenticator{}, false, nil
	}
	return a, true, nil
}

// Add stores a new authenticator; an existing id fails with ErrDuplicateID.
func (s *CacheStore) Add(ctx context.Context, a Authenticator) (Authenticator, error) {
	payload, ttl, err := s.prepare(ctx, a)
	if err != nil {
		return Authenticator{}, err
	}
	if err := s.store.Add(ctx, s.key(a.ID), payload, ttl); err != nil {
		if errors.Is(err, cache.ErrExists) {
			return Authenticator{}, ErrDuplicateID
		}
		return Authenticator{}, err
	}
	return a, nil
}

// Update overwrites an existing authenticator; an unknown id fails with
// ErrUnknownAuthenticator so a discarded token is never resurrected.
func (s *CacheStore) Update(ctx context.Context, a Authenticator) (Authenticator, error) {
	payload, ttl, err := s.prepare(ctx, a)
	if err != nil {
		return Authenticator{}, err
	}
	if err := s.store.Replace(ctx, s.key(a.ID), payload, ttl); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return Authenticator{}, ErrUnknownAuthenticator
		}
		return Authenticator{}, err
	}
	return a, nil
}

// Remove deletes an authenticator by token.
func (s *CacheStore) Remove(ctx context.Context, id string) error {
	if err := contextError(ctx); err != nil {
		return err
	}
	if id == "" {
		return ErrInvalidAuthenticator
	}
	if err := s.store.Delete(ctx, s.key(id)); err != nil && !errors.Is(err, cache.ErrNotFound) {
		return err
	}
	return nil
}

func (s *CacheStore) prepare(ctx context.Context, a Authenticator) ([]byte, time.Duration, error) {
	if err := contextError(ctx); err != nil {
		return nil, 0, err
	}
	if a.ID == "" || a.ExpirationDate.IsZero() {
		return nil, 0, ErrInvalidAuthenticator
	}
	payload, err := json.Marshal(newCacheRecord(a))
	if err != nil {
		return nil, 0, err
	}
	ttl := a.deadline().Sub(s.clock.Now())
	if ttl <= 0 {
		ttl = time.Second
	}
	return payload, ttl, nil
}

// cacheRecord is the stored shape; the token itself is only part of the key.
type cacheRecord struct {
	LoginInfo      LoginInfo `json:"loginInfo"`
	LastUsedDate   time.Time `json:"lastUsedDate"`
	ExpirationDate time.Time `json:"expirationDate"`
	IdleTimeoutMS  int64     `json:"idleTimeoutMs,omitempty"`
}

func newCacheRecord(a Authenticator) cacheRecord {
	rec := cacheRecord{
		LoginInfo:      a.LoginInfo,
		LastUsedDate:   a.LastUsedDate.UTC(),
		ExpirationDate: a.ExpirationDate.UTC(),
	}
	if a.IdleTimeout > 0 {
		rec.IdleTimeoutMS = a.IdleTimeout.Milliseconds()
	}
	return rec
}

func (r cacheRecord) authenticator(id string) Authenticator {
	return Authenticator{
		ID:             id,
		LoginInfo:      r.LoginInfo,
		LastUsedDate:   r.LastUsedDate,
		ExpirationDate: r.ExpirationDate,
		IdleTimeout:    time.Duration(r.IdleTimeoutMS) * time.Millisecond,
	}
}
