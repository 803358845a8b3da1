// Package event provides the in-process event bus that carries domain events
// from committed ledger operations to their handlers.
package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/tenancy"
	"go.uber.org/zap"
)

const (
	defaultWorkers        = 4
	defaultQueueSize      = 1024
	defaultEnqueueTimeout = 50 * time.Millisecond
	defaultDrainLimit     = 10 * time.Second
)

// ErrQueueFull is returned by Publish when an event is dropped because the
// dispatch queue stayed full for the whole enqueue timeout.
var ErrQueueFull = errors.New("event dispatch queue full")

type envelope struct {
	ctx   context.Context
	event shared.DomainEvent
}

// InMemoryEventBus implements shared.EventBus with in-memory pub/sub.
//
// Once started, Publish only enqueues: a fixed pool of workers dispatches
// events to handlers, so publishers never wait on handler work. Before Start
// and after Stop, Publish dispatches inline. Handler errors and panics are
// logged and never reach the publisher.
type InMemoryEventBus struct {
	registry  *HandlerRegistry
	logger    *zap.Logger
	workers        int
	queueSize      int
	enqueueTimeout time.Duration

	mu      sync.RWMutex
	running bool
	queue   chan envelope
	wg      sync.WaitGroup
}

// Option configures an InMemoryEventBus
type Option func(*InMemoryEventBus)

// WithWorkers sets the number of dispatch workers
func WithWorkers(n int) Option {
	return func(b *InMemoryEventBus) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithQueueSize sets the capacity of the dispatch queue
func WithQueueSize(n int) Option {
	return func(b *InMemoryEventBus) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// WithEnqueueTimeout bounds how long Publish waits for room in a full queue
func WithEnqueueTimeout(d time.Duration) Option {
	return func(b *InMemoryEventBus) {
		if d > 0 {
			b.enqueueTimeout = d
		}
	}
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...Option) *InMemoryEventBus {
	b := &InMemoryEventBus{
		registry:  NewHandlerRegistry(),
		logger:    logger,
		workers:        defaultWorkers,
		queueSize:      defaultQueueSize,
		enqueueTimeout: defaultEnqueueTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish hands events to their handlers. When the queue is full it waits
// at most the enqueue timeout, then drops the remaining events and returns
// ErrQueueFull, or ctx.Err() if ctx ended first. Handler failures are never
// returned.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var timeout <-chan time.Time
	for _, event := range events {
		if !b.running {
			b.dispatch(ctx, event)
			continue
		}
		env := envelope{ctx: ctx, event: event}
		select {
		case b.queue <- env:
			continue
		default:
		}

		if timeout == nil {
			timer := time.NewTimer(b.enqueueTimeout)
			defer timer.Stop()
			timeout = timer.C
		}
		select {
		case b.queue <- env:
		case <-ctx.Done():
			b.dropped(event)
			return ctx.Err()
		case <-timeout:
			b.dropped(event)
			return ErrQueueFull
		}
	}
	return nil
}

func (b *InMemoryEventBus) dropped(event shared.DomainEvent) {
	b.logger.Warn("event dropped, dispatch queue full",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
	)
}

// Subscribe registers a handler. Without explicit event types the handler's
// own EventTypes are used.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed",
		zap.String("handler", fmt.Sprintf("%T", handler)),
		zap.Strings("event_types", eventTypes),
	)
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("handler unsubscribed", zap.String("handler", fmt.Sprintf("%T", handler)))
}

// Start launches the dispatch workers. Starting a running bus is a no-op.
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return nil
	}

	b.queue = make(chan envelope, b.queueSize)
	for range b.workers {
		b.wg.Add(1)
		go b.worker(b.queue)
	}
	b.running = true
	b.logger.Info("event bus started", zap.Int("workers", b.workers))
	return nil
}

// Stop stops accepting queued work and waits for workers to drain the queue,
// up to ctx's deadline or defaultDrainLimit when ctx has none.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = false
	close(b.queue)
	b.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultDrainLimit)
		defer cancel()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		b.logger.Warn("event bus stopped before the queue drained")
		return ctx.Err()
	}
}

func (b *InMemoryEventBus) worker(queue <-chan envelope) {
	defer b.wg.Done()
	for env := range queue {
		b.dispatch(env.ctx, env.event)
	}
}

// dispatch delivers one event to every matching handler. The handler context
// carries the event's tenant when the publisher's context has none.
func (b *InMemoryEventBus) dispatch(ctx context.Context, event shared.DomainEvent) {
	if _, ok := tenancy.TenantID(ctx); !ok {
		ctx = tenancy.WithTenant(ctx, event.TenantID())
	}

	for _, handler := range b.registry.GetHandlers(event.EventType()) {
		if err := b.dispatchToHandler(ctx, handler, event); err != nil {
			b.logger.Error("handler failed to process event",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.Error(err),
			)
		}
	}
}

// dispatchToHandler safely dispatches an event to a handler
func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	return handler.Handle(ctx, event)
}

// Ensure InMemoryEventBus implements EventBus
var _ shared.EventBus = (*InMemoryEventBus)(nil)
