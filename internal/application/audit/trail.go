// Package audit records entity changes without ever failing the caller.
package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erp/stockledger/internal/domain/audit"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/tenancy"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// TrailConfig holds trail settings
type TrailConfig struct {
	BufferSize int
	Workers    int
}

// DefaultTrailConfig returns default trail settings
func DefaultTrailConfig() TrailConfig {
	return TrailConfig{
		BufferSize: 1000,
		Workers:    2,
	}
}

type pending struct {
	ctx   context.Context
	entry *audit.LogEntry
}

// Trail is a best-effort audit sink.
//
// Log never returns an error and never panics. Once started, entries go to a
// bounded buffer drained by workers; a full buffer drops the entry with a
// warning. Before Start and after Stop, Log writes inline. Storage failures
// are logged and dropped in both modes.
type Trail struct {
	repo   audit.Repository
	config TrailConfig
	logger *zap.Logger

	mu      sync.Mutex
	running bool
	queue   chan pending
	wg      sync.WaitGroup

	written atomic.Int64
	dropped atomic.Int64
}

// NewTrail creates a new Trail
func NewTrail(repo audit.Repository, config TrailConfig, logger *zap.Logger) *Trail {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultTrailConfig().BufferSize
	}
	if config.Workers <= 0 {
		config.Workers = DefaultTrailConfig().Workers
	}
	return &Trail{
		repo:   repo,
		config: config,
		logger: logger,
	}
}

// Start launches the writer workers
func (t *Trail) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return nil
	}

	t.queue = make(chan pending, t.config.BufferSize)
	for i := 0; i < t.config.Workers; i++ {
		t.wg.Add(1)
		go t.worker(t.queue)
	}
	t.running = true

	t.logger.Info("Audit trail started",
		zap.Int("workers", t.config.Workers),
		zap.Int("buffer_size", t.config.BufferSize),
	)
	return nil
}

// Stop stops accepting buffered entries and waits for the buffer to drain
func (t *Trail) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = false
	close(t.queue)
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Audit trail stopped",
			zap.Int64("written", t.written.Load()),
			zap.Int64("dropped", t.dropped.Load()),
		)
		return nil
	case <-ctx.Done():
		t.logger.Warn("Audit trail stop timed out")
		return ctx.Err()
	}
}

// Log records one change. Missing tenant and user ids are taken from ctx.
func (t *Trail) Log(ctx context.Context, e audit.Entry) {
	defer func() {
		if r := recover(); r != nil {
			t.dropped.Add(1)
			logger.WithLogger(ctx, t.logger).Error("audit log panicked", zap.Any("panic", r))
		}
	}()

	if e.TenantID == uuid.Nil {
		e.TenantID, _ = tenancy.TenantID(ctx)
	}
	if e.UserID == uuid.Nil {
		e.UserID = tenancy.UserID(ctx)
	}

	entry, err := audit.NewLogEntry(e)
	if err != nil {
		t.drop(ctx, e, "invalid entry", err)
		return
	}

	// detach from the request and bind the entry's tenant for the isolation layer
	writeCtx := tenancy.WithTenant(context.WithoutCancel(ctx), entry.TenantID)

	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		t.write(writeCtx, entry)
		return
	}
	select {
	case t.queue <- pending{ctx: writeCtx, entry: entry}:
		t.mu.Unlock()
	default:
		t.mu.Unlock()
		t.drop(ctx, e, "buffer full", nil)
	}
}

// List returns stored entries matching filter in the bound tenant
func (t *Trail) List(ctx context.Context, filter audit.Filter) ([]audit.LogEntry, error) {
	return t.repo.FindAll(ctx, filter)
}

// Stats returns how many entries were written and dropped since creation
func (t *Trail) Stats() (written, dropped int64) {
	return t.written.Load(), t.dropped.Load()
}

func (t *Trail) worker(queue <-chan pending) {
	defer t.wg.Done()
	for p := range queue {
		t.write(p.ctx, p.entry)
	}
}

func (t *Trail) write(ctx context.Context, entry *audit.LogEntry) {
	defer func() {
		if r := recover(); r != nil {
			t.dropped.Add(1)
			logger.WithLogger(ctx, t.logger).Error("audit write panicked", zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := t.repo.Create(ctx, entry); err != nil {
		t.dropped.Add(1)
		logger.WithLogger(ctx, t.logger).Warn("failed to write audit entry",
			zap.String("action", string(entry.Action)),
			zap.String("entity_type", entry.EntityType),
			zap.String("entity_id", entry.EntityID.String()),
			zap.Error(err),
		)
		return
	}
	t.written.Add(1)
}

func (t *Trail) drop(ctx context.Context, e audit.Entry, reason string, err error) {
	t.dropped.Add(1)
	fields := []zap.Field{
		zap.String("reason", reason),
		zap.String("action", string(e.Action)),
		zap.String("entity_type", e.EntityType),
		zap.String("entity_id", e.EntityID.String()),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
		if shared.CodeOf(err) == shared.CodeContextMissing {
			fields = append(fields, zap.Bool("tenant_missing", true))
		}
	}
	logger.WithLogger(ctx, t.logger).Warn("audit entry dropped", fields...)
}
