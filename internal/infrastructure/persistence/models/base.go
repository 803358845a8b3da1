package models

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateModel holds the columns every aggregate table shares. Version
// backs the optimistic "WHERE version = ?" check on updates.
type AggregateModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Version   int       `gorm:"not null;default:1"`
}

func aggregateModelOf(a shared.BaseAggregateRoot) AggregateModel {
	return AggregateModel{ID: a.ID, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt, Version: a.Version}
}

func (m AggregateModel) aggregateRoot() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{
		BaseEntity: shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		Version:    m.Version,
	}
}

// TenantAggregateModel adds the tenant_id column the isolation callbacks
// filter and stamp.
type TenantAggregateModel struct {
	AggregateModel
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`
}

func tenantAggregateModelOf(t shared.TenantAggregateRoot) TenantAggregateModel {
	return TenantAggregateModel{AggregateModel: aggregateModelOf(t.BaseAggregateRoot), TenantID: t.TenantID}
}

func (m TenantAggregateModel) tenantAggregateRoot() shared.TenantAggregateRoot {
	return shared.TenantAggregateRoot{BaseAggregateRoot: m.aggregateRoot(), TenantID: m.TenantID}
}

// AllModels lists every table AutoMigrate manages, parents first.
func AllModels() []any {
	return []any{
		&TenantModel{},
		&InventoryItemModel{},
		&StockMovementModel{},
		&AuditLogModel{},
	}
}
