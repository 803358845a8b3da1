package inventory

import (
	"time"

	"github.com/google/uuid"
)

// MovementType represents the kind of stock movement
type MovementType string

const (
	// MovementTypeIn is stock received; the stored quantity is positive
	MovementTypeIn MovementType = "IN"
	// MovementTypeOut is stock issued; the stored quantity is negative
	MovementTypeOut MovementType = "OUT"
	// MovementTypeAdjust is a correction; the stored quantity keeps the caller's sign
	MovementTypeAdjust MovementType = "ADJUST"
)

// String returns the string representation of MovementType
func (t MovementType) String() string {
	return string(t)
}

// IsValid returns true if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeIn, MovementTypeOut, MovementTypeAdjust:
		return true
	}
	return false
}

// MovementInput carries the caller-supplied fields of a movement
type MovementInput struct {
	Reason    string
	Reference string
	UserID    uuid.UUID
}

// StockMovement is one immutable ledger entry.
// Quantity is the signed delta applied to the item; NewQuantity equals
// PreviousQuantity + Quantity. ItemVersion is the item version after the
// movement and totally orders the movements of one item.
type StockMovement struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	ItemID           uuid.UUID
	Type             MovementType
	Quantity         int64
	Reason           string
	Reference        string
	PreviousQuantity int64
	NewQuantity      int64
	ItemVersion      int
	UserID           uuid.UUID
	CreatedAt        time.Time
}

func newStockMovement(item *InventoryItem, movementType MovementType, delta, previous int64, in MovementInput) *StockMovement {
	return &StockMovement{
		ID:               uuid.New(),
		TenantID:         item.TenantID,
		ItemID:           item.ID,
		Type:             movementType,
		Quantity:         delta,
		Reason:           in.Reason,
		Reference:        in.Reference,
		PreviousQuantity: previous,
		NewQuantity:      item.quantity,
		ItemVersion:      item.Version,
		UserID:           in.UserID,
		CreatedAt:        item.UpdatedAt,
	}
}

// Magnitude returns the absolute number of units moved
func (m *StockMovement) Magnitude() int64 {
	if m.Quantity < 0 {
		return -m.Quantity
	}
	return m.Quantity
}

// IsOutbound returns true for OUT movements
func (m *StockMovement) IsOutbound() bool {
	return m.Type == MovementTypeOut
}
