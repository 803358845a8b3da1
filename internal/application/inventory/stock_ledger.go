package inventory

import (
	"context"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/tenancy"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ledger operation names used in spans and metrics
const (
	OpAddStock    = "add_stock"
	OpRemoveStock = "remove_stock"
	OpAdjustStock = "adjust_stock"
	OpQuickSet    = "quick_set"
)

// ItemLocker serializes work on one key for the duration of a ledger operation.
// Acquire fails with shared.ErrContention when the wait is exhausted.
type ItemLocker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// mutation applies one change to a locked item. A nil movement means the
// item is already in the requested state and nothing is written.
type mutation func(item *inventory.InventoryItem) (*inventory.StockMovement, error)

// StockLedger is the only writer of item quantities.
//
// Every operation takes the item's lock, loads the row FOR UPDATE inside one
// transaction, applies the change through the aggregate, writes the item and
// appends the movement, then commits. Events are published after commit and
// can neither block nor fail the operation.
type StockLedger struct {
	txScope        TransactionScope
	locker         ItemLocker
	eventPublisher shared.EventPublisher
	metrics        *telemetry.LedgerMetrics
	logger         *zap.Logger
}

// NewStockLedger creates a new StockLedger
func NewStockLedger(txScope TransactionScope, locker ItemLocker) *StockLedger {
	return &StockLedger{
		txScope: txScope,
		locker:  locker,
		logger:  zap.NewNop(),
	}
}

// SetEventPublisher sets the publisher for post-commit domain events
func (l *StockLedger) SetEventPublisher(publisher shared.EventPublisher) {
	l.eventPublisher = publisher
}

// SetMetrics sets the ledger metrics recorder
func (l *StockLedger) SetMetrics(metrics *telemetry.LedgerMetrics) {
	l.metrics = metrics
}

// SetLogger sets the fallback logger
func (l *StockLedger) SetLogger(logger *zap.Logger) {
	l.logger = logger
}

// AddStock receives req.Quantity units into the item
func (l *StockLedger) AddStock(ctx context.Context, itemID uuid.UUID, req AddStockRequest) (*inventory.StockMovement, *inventory.InventoryItem, error) {
	in := movementInput(ctx, req.Reason, req.Reference, req.UserID)
	return l.execute(ctx, OpAddStock, itemID, func(item *inventory.InventoryItem) (*inventory.StockMovement, error) {
		return item.IncreaseStock(req.Quantity, in)
	})
}

// RemoveStock issues req.Quantity units from the item.
// Removing more than is on hand fails with shared.ErrInsufficientStock.
func (l *StockLedger) RemoveStock(ctx context.Context, itemID uuid.UUID, req RemoveStockRequest) (*inventory.StockMovement, *inventory.InventoryItem, error) {
	in := movementInput(ctx, req.Reason, req.Reference, req.UserID)
	return l.execute(ctx, OpRemoveStock, itemID, func(item *inventory.InventoryItem) (*inventory.StockMovement, error) {
		return item.DecreaseStock(req.Quantity, in)
	})
}

// AdjustStock applies a signed correction.
// A result below zero fails with shared.ErrInvalidResult.
func (l *StockLedger) AdjustStock(ctx context.Context, itemID uuid.UUID, req AdjustStockRequest) (*inventory.StockMovement, *inventory.InventoryItem, error) {
	in := movementInput(ctx, req.Reason, req.Reference, req.UserID)
	return l.execute(ctx, OpAdjustStock, itemID, func(item *inventory.InventoryItem) (*inventory.StockMovement, error) {
		return item.AdjustStock(req.Delta, in)
	})
}

// QuickSet brings the item to newQuantity with an IN or OUT movement.
// Setting the current quantity writes nothing and emits no movement.
func (l *StockLedger) QuickSet(ctx context.Context, itemID uuid.UUID, newQuantity int64, userID uuid.UUID) (*inventory.InventoryItem, error) {
	if newQuantity < 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Quantity cannot be negative")
	}
	in := movementInput(ctx, "Quick set", "", userID)
	_, item, err := l.execute(ctx, OpQuickSet, itemID, func(item *inventory.InventoryItem) (*inventory.StockMovement, error) {
		return quickSet(item, newQuantity, in)
	})
	return item, err
}

// receiveInTx records an IN movement on item inside an open transaction.
// The caller owns the transaction, any lock the item needs, and the
// publication of the item's events after commit.
func receiveInTx(ctx context.Context, repos TransactionalRepositories, item *inventory.InventoryItem, quantity int64, in inventory.MovementInput) (*inventory.StockMovement, error) {
	movement, err := item.IncreaseStock(quantity, in)
	if err != nil {
		return nil, err
	}
	if err := repos.ItemRepo().Update(ctx, item); err != nil {
		return nil, err
	}
	if err := repos.MovementRepo().Append(ctx, movement); err != nil {
		return nil, err
	}
	return movement, nil
}

func quickSet(item *inventory.InventoryItem, newQuantity int64, in inventory.MovementInput) (*inventory.StockMovement, error) {
	switch delta := newQuantity - item.Quantity(); {
	case delta > 0:
		return item.IncreaseStock(delta, in)
	case delta < 0:
		return item.DecreaseStock(-delta, in)
	default:
		return nil, nil
	}
}

func (l *StockLedger) execute(ctx context.Context, op string, itemID uuid.UUID, mutate mutation) (movement *inventory.StockMovement, item *inventory.InventoryItem, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_ledger", op, "item.id", itemID.String())
	defer span.End()

	start := time.Now()
	defer func() {
		l.metrics.RecordOperation(ctx, op, time.Since(start), err)
		telemetry.RecordError(span, err)
	}()

	if _, err = tenancy.RequireTenantID(ctx); err != nil {
		return nil, nil, err
	}

	movement, item, err = l.commit(ctx, itemID, mutate)
	if err != nil {
		return nil, nil, err
	}

	if movement != nil {
		telemetry.SetAttributes(span,
			"movement.type", movement.Type.String(),
			"movement.quantity", movement.Quantity,
			"item.new_quantity", movement.NewQuantity,
		)
		l.metrics.RecordMovement(ctx, movement.Type.String(), movement.Magnitude(), movement.Quantity < 0 && item.IsLowStock())
		l.publishDomainEvents(ctx, item)
	}
	return movement, item, nil
}

// commit holds the item lock only for the transaction; it is released
// before any event is published.
func (l *StockLedger) commit(ctx context.Context, itemID uuid.UUID, mutate mutation) (movement *inventory.StockMovement, item *inventory.InventoryItem, err error) {
	release, err := l.acquire(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	err = l.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		loaded, err := repos.ItemRepo().FindByIDForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if err := tenancy.VerifyMatch(ctx, loaded.TenantID); err != nil {
			return err
		}

		m, err := mutate(loaded)
		if err != nil {
			return err
		}
		item = loaded
		if m == nil {
			return nil
		}

		if err := repos.ItemRepo().Update(ctx, loaded); err != nil {
			return err
		}
		if err := repos.MovementRepo().Append(ctx, m); err != nil {
			return err
		}
		movement = m
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return movement, item, nil
}

func (l *StockLedger) acquire(ctx context.Context, itemID uuid.UUID) (func(), error) {
	start := time.Now()
	release, err := l.locker.Acquire(ctx, ItemLockKey(itemID))
	l.metrics.RecordLockWait(ctx, time.Since(start))
	if err != nil {
		logger.WithLogger(ctx, l.logger).Warn("item lock not acquired",
			zap.String("item_id", itemID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	return release, nil
}

// ItemLockKey is the lock key of one item
func ItemLockKey(itemID uuid.UUID) string {
	return "item:" + itemID.String()
}

// publishDomainEvents hands the item's pending events to the publisher.
// The publish context outlives the request. A full bus drops the events
// after its enqueue timeout; failures are only logged.
func (l *StockLedger) publishDomainEvents(ctx context.Context, item *inventory.InventoryItem) {
	events := item.GetDomainEvents()
	item.ClearDomainEvents()
	if l.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := l.eventPublisher.Publish(context.WithoutCancel(ctx), events...); err != nil {
		logger.WithLogger(ctx, l.logger).Warn("failed to publish ledger events",
			zap.String("item_id", item.ID.String()),
			zap.Int("events", len(events)),
			zap.Error(err),
		)
	}
}

func movementInput(ctx context.Context, reason, reference string, userID uuid.UUID) inventory.MovementInput {
	return inventory.MovementInput{
		Reason:    reason,
		Reference: reference,
		UserID:    actingUser(ctx, userID),
	}
}
