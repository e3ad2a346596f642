package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"telegram-channel-relay/internal/config"
	"telegram-channel-relay/internal/domain/ports/repository"
	pg "telegram-channel-relay/internal/infra/db/postgres"
	"telegram-channel-relay/internal/infra/memory"
	"telegram-channel-relay/internal/infra/pebblestore"
	red "telegram-channel-relay/internal/infra/redis"
)

// Backend is an opened store plus the shared clients other components may reuse.
type Backend struct {
	Store repository.Store
	// Redis is set for the redis driver; the command rate limiter uses it.
	Redis red.RedisClient
}

// Close releases the store and any client it owns.
func (b *Backend) Close() error {
	err := b.Store.Close()
	if b.Redis != nil {
		if cerr := b.Redis.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Open builds the store selected by cfg.Store.Driver, wrapped with metrics.
func Open(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*Backend, error) {
	var (
		store repository.Store
		b     = &Backend{}
	)
	switch cfg.Store.Driver {
	case config.DriverMemory:
		store = memory.NewStore()
	case config.DriverPebble:
		s, err := pebblestore.Open(cfg.Store.PebbleDir)
		if err != nil {
			return nil, err
		}
		store = s
	case config.DriverRedis:
		cli, err := red.NewClient(ctx, &cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		b.Redis = cli
		store = red.NewRelayStore(cli, cfg.Redis.KeyPrefix)
	case config.DriverPostgres:
		pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns, logger)
		if err != nil {
			return nil, err
		}
		store = pg.NewRelayStore(pool)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	b.Store = NewInstrumented(store, cfg.Store.Driver)
	return b, nil
}
