package inventory

import (
	"context"
	"sync"
	"time"

	"github.com/erp/stockledger/internal/domain/audit"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
	err    error
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return m.err
}

func (m *MockEventPublisher) GetEvents() []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]shared.DomainEvent(nil), m.events...)
}

func (m *MockEventPublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []shared.DomainEvent
	for _, e := range m.events {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}

// MockItemRepository is a mock implementation of inventory.ItemRepository
type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.InventoryItem), args.Error(1)
}

func (m *MockItemRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.InventoryItem), args.Error(1)
}

func (m *MockItemRepository) FindAll(ctx context.Context, filter inventory.ItemFilter) ([]inventory.InventoryItem, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]inventory.InventoryItem), args.Error(1)
}

func (m *MockItemRepository) Count(ctx context.Context, filter inventory.ItemFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockItemRepository) Create(ctx context.Context, item *inventory.InventoryItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockItemRepository) Update(ctx context.Context, item *inventory.InventoryItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockMovementRepository is a mock implementation of inventory.MovementRepository
type MockMovementRepository struct {
	mock.Mock
}

func (m *MockMovementRepository) Append(ctx context.Context, movement *inventory.StockMovement) error {
	args := m.Called(ctx, movement)
	return args.Error(0)
}

func (m *MockMovementRepository) FindByItem(ctx context.Context, itemID uuid.UUID, filter inventory.MovementFilter) ([]inventory.StockMovement, error) {
	args := m.Called(ctx, itemID, filter)
	return args.Get(0).([]inventory.StockMovement), args.Error(1)
}

func (m *MockMovementRepository) CountByItem(ctx context.Context, itemID uuid.UUID, filter inventory.MovementFilter) (int64, error) {
	args := m.Called(ctx, itemID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMovementRepository) FindSince(ctx context.Context, itemID *uuid.UUID, movementType inventory.MovementType, since time.Time) ([]inventory.StockMovement, error) {
	args := m.Called(ctx, itemID, movementType, since)
	return args.Get(0).([]inventory.StockMovement), args.Error(1)
}

func (m *MockMovementRepository) SumByItem(ctx context.Context, itemID uuid.UUID) (int64, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).(int64), args.Error(1)
}

// stubLocker grants every lock unless err is set, and counts acquisitions and releases
type stubLocker struct {
	mu       sync.Mutex
	err      error
	keys     []string
	released int
}

func (l *stubLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.keys = append(l.keys, key)
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released++
	}, nil
}

func (l *stubLocker) counts() (acquired, released int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys), l.released
}

// recordingAuditor captures audit entries
type recordingAuditor struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (a *recordingAuditor) Log(ctx context.Context, entry audit.Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

func (a *recordingAuditor) Entries() []audit.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]audit.Entry(nil), a.entries...)
}

// directScope runs fn against the wrapped repositories without a transaction
type directScope struct {
	items     inventory.ItemRepository
	movements inventory.MovementRepository
}

func (s directScope) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s directScope) ItemRepo() inventory.ItemRepository         { return s.items }
func (s directScope) MovementRepo() inventory.MovementRepository { return s.movements }
