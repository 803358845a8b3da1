package inventory

import (
	"math"
	"strings"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryItem is a stock-keeping unit owned by one tenant.
// It is the aggregate root for stock operations.
//
// The on-hand quantity is a materialized running total of the item's
// movements. It has no setter: IncreaseStock, DecreaseStock and AdjustStock
// are the only mutators, and each returns the StockMovement that records the
// change, so the quantity and the ledger cannot drift apart.
type InventoryItem struct {
	shared.TenantAggregateRoot
	Name              string
	Category          string
	LowStockThreshold int64
	UnitPrice         decimal.Decimal

	quantity int64
}

// NewInventoryItem creates a new item with zero stock
func NewInventoryItem(tenantID uuid.UUID, name, category string, lowStockThreshold int64, unitPrice decimal.Decimal) (*InventoryItem, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Tenant ID cannot be empty")
	}
	item := &InventoryItem{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
	}
	if err := item.applyDetails(name, category, lowStockThreshold, unitPrice); err != nil {
		return nil, err
	}
	return item, nil
}

// RestoreInventoryItem rebuilds an item from storage.
// It must only be used by repositories.
func RestoreInventoryItem(root shared.TenantAggregateRoot, name, category string, quantity, lowStockThreshold int64, unitPrice decimal.Decimal) *InventoryItem {
	return &InventoryItem{
		TenantAggregateRoot: root,
		Name:                name,
		Category:            category,
		LowStockThreshold:   lowStockThreshold,
		UnitPrice:           unitPrice,
		quantity:            quantity,
	}
}

// Quantity returns the current on-hand quantity
func (i *InventoryItem) Quantity() int64 {
	return i.quantity
}

// IsLowStock reports whether the quantity is at or below the threshold
func (i *InventoryItem) IsLowStock() bool {
	return i.quantity <= i.LowStockThreshold
}

// StockValue returns quantity * unit price
func (i *InventoryItem) StockValue() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.quantity))
}

// UpdateDetails changes the descriptive fields. Quantity is not among them.
func (i *InventoryItem) UpdateDetails(name, category string, lowStockThreshold int64, unitPrice decimal.Decimal) error {
	if err := i.applyDetails(name, category, lowStockThreshold, unitPrice); err != nil {
		return err
	}
	i.UpdatedAt = time.Now().UTC()
	i.IncrementVersion()
	return nil
}

// IncreaseStock records an IN movement of quantity units
func (i *InventoryItem) IncreaseStock(quantity int64, in MovementInput) (*StockMovement, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Quantity must be positive")
	}
	if i.overflows(quantity) {
		return nil, errQuantityOverflow
	}
	return i.apply(MovementTypeIn, quantity, in), nil
}

// DecreaseStock records an OUT movement of quantity units
func (i *InventoryItem) DecreaseStock(quantity int64, in MovementInput) (*StockMovement, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Quantity must be positive")
	}
	if quantity > i.quantity {
		return nil, shared.ErrInsufficientStock
	}
	return i.apply(MovementTypeOut, -quantity, in), nil
}

// AdjustStock records an ADJUST movement carrying the signed delta as given
func (i *InventoryItem) AdjustStock(delta int64, in MovementInput) (*StockMovement, error) {
	if delta == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Adjustment cannot be zero")
	}
	if i.overflows(delta) {
		return nil, errQuantityOverflow
	}
	if i.quantity+delta < 0 {
		return nil, shared.ErrInvalidResult
	}
	return i.apply(MovementTypeAdjust, delta, in), nil
}

var errQuantityOverflow = shared.NewDomainError(shared.CodeInvalidArgument, "Quantity would exceed the maximum stock level")

// overflows reports whether adding a positive delta would wrap the quantity
func (i *InventoryItem) overflows(delta int64) bool {
	return delta > 0 && delta > math.MaxInt64-i.quantity
}

// apply changes the quantity by delta and builds the matching movement.
// Callers have already validated that the result is non-negative.
func (i *InventoryItem) apply(movementType MovementType, delta int64, in MovementInput) *StockMovement {
	previous := i.quantity
	i.quantity += delta
	i.UpdatedAt = time.Now().UTC()
	i.IncrementVersion()

	movement := newStockMovement(i, movementType, delta, previous, in)

	i.AddDomainEvent(newStockMovedEvent(i, movement))
	if delta < 0 && i.IsLowStock() {
		i.AddDomainEvent(newStockBelowThresholdEvent(i))
	}

	return movement
}

func (i *InventoryItem) applyDetails(name, category string, lowStockThreshold int64, unitPrice decimal.Decimal) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Item name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Item name cannot exceed 200 characters")
	}
	if len(category) > 100 {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Category cannot exceed 100 characters")
	}
	if lowStockThreshold < 0 {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Low stock threshold cannot be negative")
	}
	if unitPrice.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Unit price cannot be negative")
	}

	i.Name = name
	i.Category = strings.TrimSpace(category)
	i.LowStockThreshold = lowStockThreshold
	i.UnitPrice = unitPrice
	return nil
}
