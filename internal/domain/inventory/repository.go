package inventory

import (
	"context"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// ItemRepository defines the interface for inventory item persistence.
// Implementations scope every call to the tenant bound in ctx; an item owned
// by another tenant is reported as shared.ErrNotFound.
type ItemRepository interface {
	// FindByID finds an item by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryItem, error)

	// FindByIDForUpdate finds an item and locks its row until the surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*InventoryItem, error)

	// FindAll finds items matching the filter
	FindAll(ctx context.Context, filter ItemFilter) ([]InventoryItem, error)

	// Count counts items matching the filter
	Count(ctx context.Context, filter ItemFilter) (int64, error)

	// Create inserts a new item
	Create(ctx context.Context, item *InventoryItem) error

	// Update writes the item, failing with shared.ErrContention unless the
	// stored version is item.Version-1 (exactly one change since it was loaded)
	Update(ctx context.Context, item *InventoryItem) error

	// Delete deletes an item
	Delete(ctx context.Context, id uuid.UUID) error
}

// MovementRepository defines the interface for the append-only movement ledger.
// There is deliberately no update or delete.
type MovementRepository interface {
	// Append stores a new movement
	Append(ctx context.Context, movement *StockMovement) error

	// FindByItem lists movements of one item, newest first
	FindByItem(ctx context.Context, itemID uuid.UUID, filter MovementFilter) ([]StockMovement, error)

	// CountByItem counts movements of one item matching the filter
	CountByItem(ctx context.Context, itemID uuid.UUID, filter MovementFilter) (int64, error)

	// FindSince lists movements of the given type created after since, oldest
	// first. A nil itemID lists movements of every item.
	FindSince(ctx context.Context, itemID *uuid.UUID, movementType MovementType, since time.Time) ([]StockMovement, error)

	// SumByItem sums the signed deltas of all movements of one item
	SumByItem(ctx context.Context, itemID uuid.UUID) (int64, error)
}

// ItemFilter narrows item listings
type ItemFilter struct {
	shared.Filter
	Category     string
	LowStockOnly bool
}

// MovementFilter narrows movement listings
type MovementFilter struct {
	shared.Filter
	Type MovementType
}
