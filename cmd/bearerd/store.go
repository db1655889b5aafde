package main

import (
	"context"
	"fmt"

	"github.com/adeilh/bearer/auth"
	"github.com/adeilh/bearer/cache/redis"
	"github.com/adeilh/bearer/config"
	"github.com/adeilh/bearer/db/sql/postgres"
)

type backend struct {
	store  auth.Store
	reaper auth.Reaper
	close  func() error
}

// openStore builds the configured store. Redis expires entries itself, so
// only the memory and postgres backends come with a reaper.
func openStore(ctx context.Context, cfg config.StoreConfig, clock auth.Clock) (backend, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		store := auth.NewMemoryStore()
		return backend{store: store, reaper: store, close: func() error { return nil }}, nil
	case config.BackendRedis:
		client, err := redis.NewStore(redis.Options{URL: cfg.RedisURL})
		if err != nil {
			return backend{}, err
		}
		if err := client.Ping(ctx); err != nil {
			_ = client.Close()
			return backend{}, fmt.Errorf("bearerd: redis: %w", err)
		}
		store := auth.NewCacheStore(client, auth.CacheStoreOptions{Prefix: cfg.Prefix, Clock: clock})
		return backend{store: store, close: client.Close}, nil
	case config.BackendPostgres:
		db, err := postgres.Connect(ctx, postgres.WithDSN(cfg.PostgresDSN))
		if err != nil {
			return backend{}, err
		}
		repo := postgres.NewAuthenticatorRepository(db)
		return backend{store: repo, reaper: repo, close: db.Close}, nil
	default:
		return backend{}, fmt.Errorf("bearerd: unknown store backend %q", cfg.Backend)
	}
}
