package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"

	"github.com/seantiz/errand/internal/config"
	"github.com/seantiz/errand/internal/model"
)

var (
	// ErrNotFound is returned when no record exists for a request ID.
	ErrNotFound = errors.New("job record not found")

	// ErrInvalidID is returned when a request ID is not usable as a storage key.
	ErrInvalidID = errors.New("invalid request id")
)

// Durable is a persistent key/value store of job records keyed by request ID.
// Write replaces any existing record atomically; readers never observe a
// partially written record.
type Durable interface {
	Write(ctx context.Context, rec *model.JobRecord) error
	Read(ctx context.Context, requestID string) (*model.JobRecord, error)
	Close() error
}

// Open creates the durable backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Durable, error) {
	switch cfg.Driver {
	case config.DriverFile, "":
		return NewFileStore(afero.NewOsFs(), cfg.Dir)
	case config.DriverSQLite:
		return NewSQLiteStore(cfg.SQLitePath)
	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
		}
		return NewRedisStore(client), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func checkID(requestID string) error {
	if !model.ValidRequestID(requestID) {
		return fmt.Errorf("%w: %q", ErrInvalidID, requestID)
	}
	return nil
}
