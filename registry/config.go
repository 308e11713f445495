package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"

	DefaultDriver     = DriverSQLite
	DefaultSQLitePath = "nrwatch.db"
	DefaultKeyPrefix  = "nrwatch"
)

var ErrUnknownDriver = errors.New("unknown store driver")

type StoreConfig struct {
	Driver string `json:"driver" yaml:"driver"`
	// DSN is a file path for sqlite, a connection string for postgres and a
	// redis:// URL for redis.
	DSN       string `json:"dsn" yaml:"dsn"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

func (c *StoreConfig) ApplyDefaults() {
	if c.Driver == "" {
		c.Driver = DefaultDriver
	}

	if c.Driver == DriverSQLite && c.DSN == "" {
		c.DSN = DefaultSQLitePath
	}

	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
}

func (c StoreConfig) Validate() error {
	switch c.Driver {
	case DriverSQLite, DriverMemory:
		return nil
	case DriverPostgres, DriverRedis:
		if c.DSN == "" {
			return fmt.Errorf("store driver %s requires a dsn", c.Driver)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Driver)
	}
}

// Open connects the store selected by config.
func Open(ctx context.Context, config StoreConfig, logger *slog.Logger) (Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger.Info("Opening enablement store", "driver", config.Driver)

	switch config.Driver {
	case DriverSQLite:
		return NewSQLiteStore(config.DSN)
	case DriverPostgres:
		return NewPostgresStore(ctx, config.DSN)
	case DriverRedis:
		return NewRedisStore(ctx, config.DSN, config.KeyPrefix)
	case DriverMemory:
		return NewMemoryStore(), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, config.Driver)
}
