package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Config selects and configures a backend.
type Config struct {
	// Driver is memory, redis, sqlite or none.
	Driver     string
	TTL        time.Duration
	SQLitePath string
	Redis      RedisOptions
}

// Open builds the configured store. The none driver yields a nil Store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "none":
		return nil, nil
	case "", "memory":
		return NewMemoryStore(cfg.TTL), nil
	case "sqlite":
		path := cfg.SQLitePath
		if path == "" {
			path = "data/dashboard-cache.db"
		}
		return OpenSQLite(path, cfg.TTL)
	case "redis":
		rdb, err := NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		ttl := cfg.Redis.TTL
		if ttl <= 0 {
			ttl = cfg.TTL
		}
		return NewRedisStore(rdb, cfg.Redis.Prefix, ttl), nil
	default:
		return nil, fmt.Errorf("cache: unknown driver %q", cfg.Driver)
	}
}
