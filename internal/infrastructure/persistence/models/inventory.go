package models

import (
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryItemModel is the persistence model for the InventoryItem aggregate root.
type InventoryItemModel struct {
	TenantAggregateModel
	Name              string          `gorm:"type:varchar(200);not null"`
	Category          string          `gorm:"type:varchar(100);index"`
	Quantity          int64           `gorm:"not null;default:0"`
	LowStockThreshold int64           `gorm:"not null;default:0"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (InventoryItemModel) TableName() string {
	return "inventory_items"
}

// ToDomain converts the persistence model to a domain InventoryItem entity.
func (m *InventoryItemModel) ToDomain() *inventory.InventoryItem {
	return inventory.RestoreInventoryItem(
		m.tenantAggregateRoot(),
		m.Name,
		m.Category,
		m.Quantity,
		m.LowStockThreshold,
		m.UnitPrice,
	)
}

// FromDomain populates the persistence model from a domain InventoryItem entity.
func (m *InventoryItemModel) FromDomain(i *inventory.InventoryItem) {
	m.TenantAggregateModel = tenantAggregateModelOf(i.TenantAggregateRoot)
	m.Name = i.Name
	m.Category = i.Category
	m.Quantity = i.Quantity()
	m.LowStockThreshold = i.LowStockThreshold
	m.UnitPrice = i.UnitPrice
}

// InventoryItemModelFromDomain creates a new persistence model from a domain InventoryItem entity.
func InventoryItemModelFromDomain(i *inventory.InventoryItem) *InventoryItemModel {
	m := &InventoryItemModel{}
	m.FromDomain(i)
	return m
}

// StockMovementModel is the persistence model for one ledger entry.
// Rows are inserted once and never updated; (item_id, item_version) is unique
// so two commits can never claim the same position in an item's history.
type StockMovementModel struct {
	ID               uuid.UUID              `gorm:"type:uuid;primary_key"`
	TenantID         uuid.UUID              `gorm:"type:uuid;not null;index"`
	ItemID           uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_stock_movement_item_version,priority:1"`
	Type             inventory.MovementType `gorm:"type:varchar(10);not null"`
	Quantity         int64                  `gorm:"not null"`
	Reason           string                 `gorm:"type:varchar(500)"`
	Reference        string                 `gorm:"type:varchar(100)"`
	PreviousQuantity int64                  `gorm:"not null"`
	NewQuantity      int64                  `gorm:"not null"`
	ItemVersion      int                    `gorm:"not null;uniqueIndex:idx_stock_movement_item_version,priority:2"`
	UserID           *uuid.UUID             `gorm:"type:uuid"`
	CreatedAt        time.Time              `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (StockMovementModel) TableName() string {
	return "stock_movements"
}

// ToDomain converts the persistence model to a domain StockMovement.
func (m *StockMovementModel) ToDomain() *inventory.StockMovement {
	movement := &inventory.StockMovement{
		ID:               m.ID,
		TenantID:         m.TenantID,
		ItemID:           m.ItemID,
		Type:             m.Type,
		Quantity:         m.Quantity,
		Reason:           m.Reason,
		Reference:        m.Reference,
		PreviousQuantity: m.PreviousQuantity,
		NewQuantity:      m.NewQuantity,
		ItemVersion:      m.ItemVersion,
		CreatedAt:        m.CreatedAt,
	}
	if m.UserID != nil {
		movement.UserID = *m.UserID
	}
	return movement
}

// FromDomain populates the persistence model from a domain StockMovement.
func (m *StockMovementModel) FromDomain(s *inventory.StockMovement) {
	m.ID = s.ID
	m.TenantID = s.TenantID
	m.ItemID = s.ItemID
	m.Type = s.Type
	m.Quantity = s.Quantity
	m.Reason = s.Reason
	m.Reference = s.Reference
	m.PreviousQuantity = s.PreviousQuantity
	m.NewQuantity = s.NewQuantity
	m.ItemVersion = s.ItemVersion
	m.CreatedAt = s.CreatedAt
	m.UserID = nil
	if s.UserID != uuid.Nil {
		userID := s.UserID
		m.UserID = &userID
	}
}

// StockMovementModelFromDomain creates a new persistence model from a domain StockMovement.
func StockMovementModelFromDomain(s *inventory.StockMovement) *StockMovementModel {
	m := &StockMovementModel{}
	m.FromDomain(s)
	return m
}
