// Package lock provides keyed mutual exclusion with a bounded wait.
//
// The stock ledger holds one lock per item for the duration of a movement.
// MemoryLocker serializes goroutines of one process; RedisLocker extends the
// same guarantee across instances sharing a Redis server.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"golang.org/x/sync/semaphore"
)

// ReleaseFunc releases a held lock. Calling it more than once is safe.
type ReleaseFunc = func()

// MemoryLocker implements keyed locks on in-process semaphores.
// Entries are reference counted and dropped when nobody holds or waits on them.
type MemoryLocker struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	timeout time.Duration
}

type memoryEntry struct {
	sem  *semaphore.Weighted
	refs int
}

// NewMemoryLocker creates a MemoryLocker. A zero timeout waits until ctx is done.
func NewMemoryLocker(timeout time.Duration) *MemoryLocker {
	return &MemoryLocker{
		entries: make(map[string]*memoryEntry),
		timeout: timeout,
	}
}

// Acquire blocks until the lock for key is held, the timeout elapses
// (shared.ErrContention) or ctx is done (ctx.Err()).
func (l *MemoryLocker) Acquire(ctx context.Context, key string) (ReleaseFunc, error) {
	entry := l.ref(key)

	waitCtx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()

	if err := entry.sem.Acquire(waitCtx, 1); err != nil {
		l.unref(key, entry)
		return nil, waitError(ctx)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.sem.Release(1)
			l.unref(key, entry)
		})
	}, nil
}

// Len returns the number of keys currently held or awaited
func (l *MemoryLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *MemoryLocker) ref(key string) *memoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &memoryEntry{sem: semaphore.NewWeighted(1)}
		l.entries[key] = entry
	}
	entry.refs++
	return entry
}

func (l *MemoryLocker) unref(key string, entry *memoryEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// waitError reports why a wait ended: the caller's ctx, or the lock timeout
func waitError(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return shared.ErrContention
}
