package forecast

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// EventTypeReorderSuggested is published by the periodic reorder scan
const EventTypeReorderSuggested = "ReorderSuggested"

// ReorderSuggestedEvent asks for an item to be restocked
type ReorderSuggestedEvent struct {
	shared.EventEnvelope
	ItemName          string     `json:"item_name"`
	Status            Status     `json:"status"`
	CurrentQuantity   int64      `json:"current_quantity"`
	ReorderQuantity   int64      `json:"reorder_quantity"`
	DaysUntilStockout *float64   `json:"days_until_stockout"`
	StockoutDate      *time.Time `json:"stockout_date"`
}

// NewReorderSuggestedEvent creates a new ReorderSuggestedEvent from a forecast
func NewReorderSuggestedEvent(tenantID uuid.UUID, r Result) *ReorderSuggestedEvent {
	return &ReorderSuggestedEvent{
		EventEnvelope:     shared.NewEnvelope(EventTypeReorderSuggested, r.ItemID, tenantID),
		ItemName:          r.ItemName,
		Status:            r.Status,
		CurrentQuantity:   r.CurrentQuantity,
		ReorderQuantity:   r.ReorderQuantity,
		DaysUntilStockout: r.DaysUntilStockout,
		StockoutDate:      r.StockoutDate,
	}
}

// NeedsReorder reports whether the result should raise a reorder suggestion
func (r Result) NeedsReorder() bool {
	return r.Status != StatusSafe
}
