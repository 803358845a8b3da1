package inventory

import (
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemResponse represents an inventory item in API responses
type ItemResponse struct {
	ID                uuid.UUID       `json:"id"`
	TenantID          uuid.UUID       `json:"tenant_id"`
	Name              string          `json:"name"`
	Category          string          `json:"category"`
	Quantity          int64           `json:"quantity"`
	LowStockThreshold int64           `json:"low_stock_threshold"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	StockValue        decimal.Decimal `json:"stock_value"`
	IsLowStock        bool            `json:"is_low_stock"`
	Version           int             `json:"version"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// MovementResponse represents a stock movement in API responses
type MovementResponse struct {
	ID               uuid.UUID `json:"id"`
	ItemID           uuid.UUID `json:"item_id"`
	Type             string    `json:"type"`
	Quantity         int64     `json:"quantity"`
	Reason           string    `json:"reason,omitempty"`
	Reference        string    `json:"reference,omitempty"`
	PreviousQuantity int64     `json:"previous_quantity"`
	NewQuantity      int64     `json:"new_quantity"`
	ItemVersion      int       `json:"item_version"`
	UserID           uuid.UUID `json:"user_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// StockOperationResponse is the result of a ledger operation
type StockOperationResponse struct {
	Movement *MovementResponse `json:"movement,omitempty"`
	Item     ItemResponse      `json:"item"`
}

// CreateItemRequest represents a request to create an item.
// InitialQuantity is recorded as an IN movement in the same transaction.
type CreateItemRequest struct {
	Name              string          `json:"name" binding:"required,max=200"`
	Category          string          `json:"category" binding:"max=100"`
	InitialQuantity   int64           `json:"initial_quantity" binding:"min=0"`
	LowStockThreshold int64           `json:"low_stock_threshold" binding:"min=0"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	UserID            uuid.UUID       `json:"-"`
}

// UpdateItemRequest changes descriptive fields. Quantity is not updatable here.
type UpdateItemRequest struct {
	Name              *string          `json:"name" binding:"omitempty,max=200"`
	Category          *string          `json:"category" binding:"omitempty,max=100"`
	LowStockThreshold *int64           `json:"low_stock_threshold" binding:"omitempty,min=0"`
	UnitPrice         *decimal.Decimal `json:"unit_price"`
	UserID            uuid.UUID        `json:"-"`
}

// ItemListFilter represents filter options for item lists
type ItemListFilter struct {
	Search       string `form:"search"`
	Category     string `form:"category"`
	LowStockOnly bool   `form:"low_stock_only"`
	Page         int    `form:"page" binding:"omitempty,min=1"`
	PageSize     int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy      string `form:"order_by"`
	OrderDir     string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// MovementListFilter represents filter options for an item's movement history
type MovementListFilter struct {
	Type     string `form:"type" binding:"omitempty,oneof=IN OUT ADJUST"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// AddStockRequest represents a request to receive stock
type AddStockRequest struct {
	Quantity  int64     `json:"quantity" binding:"required,gt=0"`
	Reason    string    `json:"reason" binding:"max=500"`
	Reference string    `json:"reference" binding:"max=100"`
	UserID    uuid.UUID `json:"-"`
}

// RemoveStockRequest represents a request to issue stock
type RemoveStockRequest struct {
	Quantity  int64     `json:"quantity" binding:"required,gt=0"`
	Reason    string    `json:"reason" binding:"max=500"`
	Reference string    `json:"reference" binding:"max=100"`
	UserID    uuid.UUID `json:"-"`
}

// AdjustStockRequest represents a signed stock correction
type AdjustStockRequest struct {
	Delta     int64     `json:"delta" binding:"required"`
	Reason    string    `json:"reason" binding:"required,max=500"`
	Reference string    `json:"reference" binding:"max=100"`
	UserID    uuid.UUID `json:"-"`
}

// QuickSetRequest sets the on-hand quantity to an absolute value
type QuickSetRequest struct {
	Quantity *int64 `json:"quantity" binding:"required,min=0"`
}

// ToItemResponse converts a domain item to a response
func ToItemResponse(item *inventory.InventoryItem) ItemResponse {
	return ItemResponse{
		ID:                item.ID,
		TenantID:          item.TenantID,
		Name:              item.Name,
		Category:          item.Category,
		Quantity:          item.Quantity(),
		LowStockThreshold: item.LowStockThreshold,
		UnitPrice:         item.UnitPrice,
		StockValue:        item.StockValue(),
		IsLowStock:        item.IsLowStock(),
		Version:           item.Version,
		CreatedAt:         item.CreatedAt,
		UpdatedAt:         item.UpdatedAt,
	}
}

// ToItemResponses converts a slice of items
func ToItemResponses(items []inventory.InventoryItem) []ItemResponse {
	responses := make([]ItemResponse, len(items))
	for i := range items {
		responses[i] = ToItemResponse(&items[i])
	}
	return responses
}

// ToMovementResponse converts a domain movement to a response
func ToMovementResponse(m *inventory.StockMovement) MovementResponse {
	return MovementResponse{
		ID:               m.ID,
		ItemID:           m.ItemID,
		Type:             m.Type.String(),
		Quantity:         m.Quantity,
		Reason:           m.Reason,
		Reference:        m.Reference,
		PreviousQuantity: m.PreviousQuantity,
		NewQuantity:      m.NewQuantity,
		ItemVersion:      m.ItemVersion,
		UserID:           m.UserID,
		CreatedAt:        m.CreatedAt,
	}
}

// ToMovementResponses converts a slice of movements
func ToMovementResponses(movements []inventory.StockMovement) []MovementResponse {
	responses := make([]MovementResponse, len(movements))
	for i := range movements {
		responses[i] = ToMovementResponse(&movements[i])
	}
	return responses
}

// ToStockOperationResponse converts a ledger result. movement may be nil.
func ToStockOperationResponse(movement *inventory.StockMovement, item *inventory.InventoryItem) StockOperationResponse {
	resp := StockOperationResponse{Item: ToItemResponse(item)}
	if movement != nil {
		m := ToMovementResponse(movement)
		resp.Movement = &m
	}
	return resp
}

func (f ItemListFilter) toDomain() inventory.ItemFilter {
	base := shared.DefaultFilter()
	if f.Page > 0 {
		base.Page = f.Page
	}
	if f.PageSize > 0 {
		base.PageSize = f.PageSize
	}
	if f.OrderBy != "" {
		base.OrderBy = f.OrderBy
	}
	if f.OrderDir != "" {
		base.OrderDir = f.OrderDir
	}
	base.Search = f.Search
	return inventory.ItemFilter{
		Filter:       base,
		Category:     f.Category,
		LowStockOnly: f.LowStockOnly,
	}
}

func (f MovementListFilter) toDomain() inventory.MovementFilter {
	base := shared.DefaultFilter()
	if f.Page > 0 {
		base.Page = f.Page
	}
	if f.PageSize > 0 {
		base.PageSize = f.PageSize
	}
	return inventory.MovementFilter{
		Filter: base,
		Type:   inventory.MovementType(f.Type),
	}
}
