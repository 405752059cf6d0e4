package locking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"tmsbridge/internal/config"
	"tmsbridge/internal/services"
)

// ErrBusy reports that the lock could not be acquired within the wait window.
var ErrBusy = fmt.Errorf("%w: unit is busy", services.ErrConflict)

// Release frees an acquired lock. Calling it more than once is safe.
type Release func()

// Locker acquires exclusive access to a key.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// Close releases backend resources held by a Locker, when it has any.
func Close(l Locker) error {
	if closer, ok := l.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// NewFromConfig builds the locker selected by [locking].
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (Locker, error) {
	if cfg == nil {
		return nil, errors.New("locking: config is required")
	}
	switch cfg.Locking.Backend {
	case config.LockRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Locking.RedisAddr,
			Password: cfg.Locking.RedisPassword,
			DB:       cfg.Locking.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Locking.RedisAddr, err)
		}
		return NewRedis(client, RedisOptions{
			KeyPrefix: cfg.Locking.KeyPrefix,
			TTL:       cfg.LockTTL(),
			Wait:      cfg.LockWait(),
			Logger:    logger,
			OwnClient: true,
		}), nil
	case config.LockLocal, "":
		return NewLocal(cfg.LockWait()), nil
	default:
		return nil, fmt.Errorf("locking: unsupported backend %q", cfg.Locking.Backend)
	}
}

// UnitKey is the lock key for a unit identity.
func UnitKey(kind, id string) string {
	return "unit:" + kind + ":" + id
}
