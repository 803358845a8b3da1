package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultKeyPrefix = "stockledger:lock:"
	defaultTTL       = 30 * time.Second
	minRetryDelay    = 5 * time.Millisecond
	maxRetryDelay    = 100 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock re-acquired by someone else is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements keyed locks with SET NX PX and token-checked release.
// The TTL bounds how long a crashed holder can block a key.
type RedisLocker struct {
	client    redis.UniversalClient
	keyPrefix string
	timeout   time.Duration
	ttl       time.Duration
	logger    *zap.Logger
}

// RedisLockerOption configures a RedisLocker
type RedisLockerOption func(*RedisLocker)

// WithKeyPrefix sets the Redis key prefix
func WithKeyPrefix(prefix string) RedisLockerOption {
	return func(l *RedisLocker) {
		l.keyPrefix = prefix
	}
}

// WithTTL sets the lock expiry
func WithTTL(ttl time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithLogger sets the logger used for release failures
func WithLogger(logger *zap.Logger) RedisLockerOption {
	return func(l *RedisLocker) {
		l.logger = logger
	}
}

// NewRedisLocker creates a RedisLocker on an existing client
func NewRedisLocker(client redis.UniversalClient, timeout time.Duration, opts ...RedisLockerOption) *RedisLocker {
	l := &RedisLocker{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		timeout:   timeout,
		ttl:       defaultTTL,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire polls SET NX until the lock for key is held, the timeout elapses
// (shared.ErrContention) or ctx is done (ctx.Err()).
func (l *RedisLocker) Acquire(ctx context.Context, key string) (ReleaseFunc, error) {
	fullKey := l.keyPrefix + key
	token := uuid.NewString()

	waitCtx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()

	delay := minRetryDelay
	for {
		ok, err := l.client.SetNX(waitCtx, fullKey, token, l.ttl).Result()
		if err != nil {
			if waitCtx.Err() != nil {
				return nil, waitError(ctx)
			}
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return l.releaser(fullKey, token), nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-waitCtx.Done():
			timer.Stop()
			return nil, waitError(ctx)
		case <-timer.C:
		}
		delay = min(delay*2, maxRetryDelay)
	}
}

func (l *RedisLocker) releaser(fullKey, token string) ReleaseFunc {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err(); err != nil {
				l.logger.Warn("failed to release lock, it will expire after its TTL",
					zap.String("key", fullKey),
					zap.Duration("ttl", l.ttl),
					zap.Error(err),
				)
			}
		})
	}
}
