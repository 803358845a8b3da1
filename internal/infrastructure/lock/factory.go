package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Locker acquires a lock per key with a bounded wait
type Locker interface {
	Acquire(ctx context.Context, key string) (ReleaseFunc, error)
}

// New builds the locker selected by cfg.LockBackend. The returned close
// function releases the Redis client, if any.
func New(cfg config.LedgerConfig, redisCfg config.RedisConfig, logger *zap.Logger) (Locker, func() error, error) {
	switch cfg.LockBackend {
	case "", "memory":
		logger.Info("Using in-memory item locks", zap.Duration("timeout", cfg.LockTimeout))
		return NewMemoryLocker(cfg.LockTimeout), func() error { return nil }, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     redisCfg.Addr(),
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}

		logger.Info("Using Redis item locks",
			zap.String("addr", redisCfg.Addr()),
			zap.Duration("timeout", cfg.LockTimeout),
			zap.Duration("ttl", cfg.LockTTL),
		)
		opts := []RedisLockerOption{WithTTL(cfg.LockTTL), WithLogger(logger)}
		if cfg.LockPrefix != "" {
			opts = append(opts, WithKeyPrefix(cfg.LockPrefix))
		}
		return NewRedisLocker(client, cfg.LockTimeout, opts...), client.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown lock backend %q", cfg.LockBackend)
	}
}

var (
	_ Locker = (*MemoryLocker)(nil)
	_ Locker = (*RedisLocker)(nil)
)
