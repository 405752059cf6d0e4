package locking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tmsbridge/internal/logging"
)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

const (
	redisInitialBackoff = 10 * time.Millisecond
	redisMaxBackoff     = 500 * time.Millisecond
	redisReleaseTimeout = 2 * time.Second
)

// RedisOptions tunes a Redis locker.
type RedisOptions struct {
	KeyPrefix string
	TTL       time.Duration
	Wait      time.Duration
	Logger    *slog.Logger
	// OwnClient closes the client when the locker is closed.
	OwnClient bool
}

// Redis is a distributed lock built on SET NX PX with a random token and a
// compare-and-delete release.
type Redis struct {
	client redis.UniversalClient
	opts   RedisOptions
	logger *slog.Logger
}

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient, opts RedisOptions) *Redis {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "tmsbridge:lock:"
	}
	if opts.TTL <= 0 {
		opts.TTL = 2 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Redis{client: client, opts: opts, logger: logger.With(logging.String(logging.FieldComponent, "redis-lock"))}
}

// Acquire retries with capped exponential backoff until the key is set or the
// wait expires.
func (r *Redis) Acquire(ctx context.Context, key string) (Release, error) {
	lockKey := r.opts.KeyPrefix + key
	token := uuid.NewString()

	waitCtx := ctx
	if r.opts.Wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, r.opts.Wait)
		defer cancel()
	}

	backoff := redisInitialBackoff
	for {
		ok, err := r.client.SetNX(waitCtx, lockKey, token, r.opts.TTL).Result()
		if err != nil && waitCtx.Err() == nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			r.logger.Debug("acquired lock", logging.String("key", lockKey))
			return r.releaser(lockKey, token), nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, ErrBusy
		case <-time.After(backoff):
			backoff *= 2
			if backoff > redisMaxBackoff {
				backoff = redisMaxBackoff
			}
		}
	}
}

func (r *Redis) releaser(lockKey, token string) Release {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), redisReleaseTimeout)
			defer cancel()
			deleted, err := releaseScript.Run(ctx, r.client, []string{lockKey}, token).Int64()
			switch {
			case err != nil && !errors.Is(err, redis.Nil):
				r.logger.Warn("release lock failed",
					logging.String("key", lockKey),
					logging.Error(err),
					logging.String(logging.FieldEventType, "lock_release_failed"),
					logging.String(logging.FieldErrorHint, "lock expires after locking.ttl_seconds"),
				)
			case deleted == 0:
				r.logger.Warn("lock expired before release",
					logging.String("key", lockKey),
					logging.String(logging.FieldEventType, "lock_expired"),
					logging.String(logging.FieldErrorHint, "raise locking.ttl_seconds above the slowest TMS call"),
				)
			}
		})
	}
}

// Close closes the client when the locker owns it.
func (r *Redis) Close() error {
	if r.opts.OwnClient {
		return r.client.Close()
	}
	return nil
}
