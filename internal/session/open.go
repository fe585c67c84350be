package session

import (
	"fmt"
	"time"

	"readmegen/internal/config"
	"readmegen/internal/redis"
	"readmegen/internal/storage"
)

// Open builds the store named by cfg.Session.Store.
func Open(cfg *config.Config) (Store, error) {
	c, err := NewCipherFromEnv()
	if err != nil {
		return nil, err
	}
	switch cfg.Session.Store {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		client, err := redis.NewRedisClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return NewRedisStore(client, TTLFromConfig(cfg), c), nil
	case "sqlite", "sqlite3", "mysql":
		driver, err := storage.DriverName(cfg.Session.Store)
		if err != nil {
			return nil, err
		}
		db, err := storage.Open(driver, cfg)
		if err != nil {
			return nil, err
		}
		if err := storage.Migrate(db, driver); err != nil {
			db.Close()
			return nil, err
		}
		return NewSQLStore(db, driver, c), nil
	default:
		return nil, fmt.Errorf("unsupported session store: %s", cfg.Session.Store)
	}
}

func TTLFromConfig(cfg *config.Config) time.Duration {
	if cfg.Session.TTL <= 0 {
		return DefaultTTL
	}
	return time.Duration(cfg.Session.TTL) * time.Minute
}

func SweepIntervalFromConfig(cfg *config.Config) time.Duration {
	if cfg.Session.SweepInterval <= 0 {
		return DefaultSweepInterval
	}
	return time.Duration(cfg.Session.SweepInterval) * time.Minute
}
