// Package cache provides process-local caches.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const defaultCleanupInterval = 30 * time.Second

// cacheEntry wraps a cached value with expiration time
type cacheEntry[T any] struct {
	value     *T
	expiresAt time.Time
}

// isExpired checks if the cache entry has expired
func (e *cacheEntry[T]) isExpired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// TTLCache is a concurrency-safe map whose entries expire after a fixed TTL.
// A TTL of zero disables the cache: Set is a no-op and Get always misses.
type TTLCache[T any] struct {
	entries sync.Map // map[string]*cacheEntry[T]
	ttl     time.Duration
	name    string
	logger  *zap.Logger
	now     func() time.Time

	cleanupInterval time.Duration
	stopCh          chan struct{}
	stopped         int32

	hits   int64
	misses int64
}

// Option configures a TTLCache
type Option func(*options)

type options struct {
	logger          *zap.Logger
	cleanupInterval time.Duration
	now             func() time.Time
}

// WithLogger sets the logger for the cache
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithCleanupInterval sets how often expired entries are swept
func WithCleanupInterval(interval time.Duration) Option {
	return func(o *options) {
		o.cleanupInterval = interval
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// NewTTLCache creates a cache and starts its cleanup goroutine. Call Close to stop it.
func NewTTLCache[T any](name string, ttl time.Duration, opts ...Option) *TTLCache[T] {
	o := options{
		logger:          zap.NewNop(),
		cleanupInterval: defaultCleanupInterval,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &TTLCache[T]{
		ttl:             ttl,
		name:            name,
		logger:          o.logger,
		now:             o.now,
		cleanupInterval: o.cleanupInterval,
		stopCh:          make(chan struct{}),
	}
	if ttl > 0 {
		go c.cleanupExpired()
	}
	return c
}

// Enabled reports whether the cache stores anything
func (c *TTLCache[T]) Enabled() bool {
	return c.ttl > 0
}

// Get returns the cached value for key
func (c *TTLCache[T]) Get(key string) (*T, bool) {
	if value, ok := c.entries.Load(key); ok {
		entry := value.(*cacheEntry[T])
		if !entry.isExpired(c.now()) {
			atomic.AddInt64(&c.hits, 1)
			return entry.value, true
		}
		c.entries.CompareAndDelete(key, value)
	}
	atomic.AddInt64(&c.misses, 1)
	return nil, false
}

// Set stores value under key. Nil values are ignored.
func (c *TTLCache[T]) Set(key string, value *T) {
	if value == nil || c.ttl <= 0 {
		return
	}
	c.entries.Store(key, &cacheEntry[T]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	})
}

// Delete removes key
func (c *TTLCache[T]) Delete(key string) {
	c.entries.Delete(key)
}

// DeleteFunc removes every entry for which match returns true
func (c *TTLCache[T]) DeleteFunc(match func(key string, value *T) bool) int {
	removed := 0
	c.entries.Range(func(key, value any) bool {
		if match(key.(string), value.(*cacheEntry[T]).value) {
			c.entries.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// Clear removes every entry
func (c *TTLCache[T]) Clear() {
	c.entries.Range(func(key, _ any) bool {
		c.entries.Delete(key)
		return true
	})
	c.logger.Debug("Cache cleared", zap.String("cache", c.name))
}

// Count returns the number of stored entries, expired ones included
func (c *TTLCache[T]) Count() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Stats returns cache statistics
func (c *TTLCache[T]) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Close stops the cleanup goroutine
func (c *TTLCache[T]) Close() error {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

func (c *TTLCache[T]) cleanupExpired() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						c.logger.Error("Panic in cache cleanup",
							zap.String("cache", c.name),
							zap.Any("panic", r))
					}
				}()
				c.doCleanup()
			}()
		}
	}
}

func (c *TTLCache[T]) doCleanup() {
	now := c.now()
	removed := 0
	c.entries.Range(func(key, value any) bool {
		if value.(*cacheEntry[T]).isExpired(now) {
			c.entries.CompareAndDelete(key, value)
			removed++
		}
		return true
	})

	if removed > 0 {
		c.logger.Debug("Cleaned up expired cache entries",
			zap.String("cache", c.name),
			zap.Int("removed", removed))
	}
}
