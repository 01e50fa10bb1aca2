package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/mise/internal/config"
	"github.com/aretw0/mise/pkg/adapters/file"
	"github.com/aretw0/mise/pkg/adapters/memory"
	"github.com/aretw0/mise/pkg/adapters/redis"
	"github.com/aretw0/mise/pkg/adapters/sqlite"
	"github.com/aretw0/mise/pkg/ports"
)

// DefaultSQLitePath is used when the sqlite driver has no path.
var DefaultSQLitePath = filepath.Join(".mise", "recipes.db")

// Backend is an opened recipe store plus what comes with it.
type Backend struct {
	Store ports.RecipeStore

	// Locker is set for stores shared between processes (redis).
	Locker ports.DistributedLocker

	close func() error
}

// Close releases the store connection, if any.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// OpenBackend initializes the recipe store selected by cfg.
func OpenBackend(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*Backend, error) {
	switch cfg.Driver {
	case config.StoreMemory:
		return &Backend{Store: memory.NewStore()}, nil

	case config.StoreFile:
		return &Backend{Store: file.New(cfg.Path, file.WithLogger(logger))}, nil

	case config.StoreSQLite:
		path := cfg.Path
		if path == "" {
			path = DefaultSQLitePath
		}
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create store directory: %w", err)
			}
		}
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, fmt.Errorf("error opening sqlite store: %w", err)
		}
		return &Backend{Store: store, close: store.Close}, nil

	case config.StoreRedis:
		prefix := cfg.RedisPrefix
		if prefix == "" {
			prefix = redis.DefaultPrefix
		}
		store := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redis.WithPrefix(prefix))
		if err := store.Client().Ping(ctx).Err(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("error connecting to redis at %s: %w", cfg.RedisAddr, err)
		}
		return &Backend{
			Store:  store,
			Locker: redis.NewLocker(store.Client(), prefix),
			close:  store.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
