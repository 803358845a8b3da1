package persistence

import (
	"context"
	"errors"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/erp/stockledger/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormItemRepository implements inventory.ItemRepository using GORM.
// Tenant scoping comes from the isolation callbacks on conn; no method names
// the tenant itself.
type GormItemRepository struct {
	conn tenant.Conn
}

// NewGormItemRepository creates a new GormItemRepository
func NewGormItemRepository(conn tenant.Conn) *GormItemRepository {
	return &GormItemRepository{conn: conn}
}

// FindByID finds an inventory item by its ID
func (r *GormItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	return r.find(r.conn.WithContext(ctx), id)
}

// FindByIDForUpdate finds an inventory item and holds a row lock on it until
// the surrounding transaction ends. SQLite has no row locks; the clause is
// dropped by its dialect and writers are serialized by the database instead.
func (r *GormItemRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	return r.find(r.conn.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormItemRepository) find(db *gorm.DB, id uuid.UUID) (*inventory.InventoryItem, error) {
	var model models.InventoryItemModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds items matching the filter
func (r *GormItemRepository) FindAll(ctx context.Context, filter inventory.ItemFilter) ([]inventory.InventoryItem, error) {
	query := r.applyFilter(r.conn.WithContext(ctx).Model(&models.InventoryItemModel{}), filter)

	var itemModels []models.InventoryItemModel
	if err := paginate(query, filter.Filter, itemSort).Find(&itemModels).Error; err != nil {
		return nil, err
	}

	items := make([]inventory.InventoryItem, len(itemModels))
	for i, model := range itemModels {
		items[i] = *model.ToDomain()
	}
	return items, nil
}

// Count counts items matching the filter
func (r *GormItemRepository) Count(ctx context.Context, filter inventory.ItemFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.conn.WithContext(ctx).Model(&models.InventoryItemModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create inserts a new item
func (r *GormItemRepository) Create(ctx context.Context, item *inventory.InventoryItem) error {
	return r.conn.WithContext(ctx).Create(models.InventoryItemModelFromDomain(item)).Error
}

// Update writes the item's mutable columns. The item must carry exactly one
// change since it was loaded: the row is only written while its stored
// version is item.Version-1, otherwise shared.ErrContention is returned.
func (r *GormItemRepository) Update(ctx context.Context, item *inventory.InventoryItem) error {
	result := r.conn.WithContext(ctx).
		Model(&models.InventoryItemModel{}).
		Where("id = ? AND version = ?", item.ID, item.Version-1).
		Updates(map[string]any{
			"name":                item.Name,
			"category":            item.Category,
			"quantity":            item.Quantity(),
			"low_stock_threshold": item.LowStockThreshold,
			"unit_price":          item.UnitPrice,
			"version":             item.Version,
			"updated_at":          item.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrContention
	}
	return nil
}

// Delete deletes an inventory item
func (r *GormItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.conn.WithContext(ctx).Delete(&models.InventoryItemModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormItemRepository) applyFilter(query *gorm.DB, filter inventory.ItemFilter) *gorm.DB {
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.LowStockOnly {
		query = query.Where("quantity <= low_stock_threshold")
	}
	if filter.Search != "" {
		query = query.Where("LOWER(name) LIKE ?", likePattern(filter.Search))
	}
	return query
}

// Ensure GormItemRepository implements ItemRepository
var _ inventory.ItemRepository = (*GormItemRepository)(nil)
