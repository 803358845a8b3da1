package inventory

import (
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// EntityTypeItem names items in audit entries
const EntityTypeItem = "InventoryItem"

const (
	EventTypeStockMoved          = "StockMoved"
	EventTypeStockBelowThreshold = "StockBelowThreshold"
)

// StockMovedEvent mirrors one committed movement, including the item's
// quantity on either side of it.
type StockMovedEvent struct {
	shared.EventEnvelope
	ItemName         string       `json:"item_name"`
	MovementID       uuid.UUID    `json:"movement_id"`
	MovementType     MovementType `json:"movement_type"`
	Quantity         int64        `json:"quantity"`
	PreviousQuantity int64        `json:"previous_quantity"`
	NewQuantity      int64        `json:"new_quantity"`
	Reason           string       `json:"reason,omitempty"`
	UserID           uuid.UUID    `json:"user_id"`
}

func newStockMovedEvent(item *InventoryItem, m *StockMovement) *StockMovedEvent {
	return &StockMovedEvent{
		EventEnvelope:    shared.NewEnvelope(EventTypeStockMoved, item.ID, item.TenantID),
		ItemName:         item.Name,
		MovementID:       m.ID,
		MovementType:     m.Type,
		Quantity:         m.Quantity,
		PreviousQuantity: m.PreviousQuantity,
		NewQuantity:      m.NewQuantity,
		Reason:           m.Reason,
		UserID:           m.UserID,
	}
}

// StockBelowThresholdEvent fires when a decrease crosses into low stock
type StockBelowThresholdEvent struct {
	shared.EventEnvelope
	ItemName  string `json:"item_name"`
	Quantity  int64  `json:"quantity"`
	Threshold int64  `json:"threshold"`
}

func newStockBelowThresholdEvent(item *InventoryItem) *StockBelowThresholdEvent {
	return &StockBelowThresholdEvent{
		EventEnvelope: shared.NewEnvelope(EventTypeStockBelowThreshold, item.ID, item.TenantID),
		ItemName:      item.Name,
		Quantity:      item.quantity,
		Threshold:     item.LowStockThreshold,
	}
}
