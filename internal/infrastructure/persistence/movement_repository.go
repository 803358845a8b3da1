package persistence

import (
	"context"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/erp/stockledger/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMovementRepository implements inventory.MovementRepository using GORM.
// It only ever inserts and reads.
type GormMovementRepository struct {
	conn tenant.Conn
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(conn tenant.Conn) *GormMovementRepository {
	return &GormMovementRepository{conn: conn}
}

// Append stores a new movement
func (r *GormMovementRepository) Append(ctx context.Context, movement *inventory.StockMovement) error {
	return r.conn.WithContext(ctx).Create(models.StockMovementModelFromDomain(movement)).Error
}

// FindByItem lists movements of one item, newest first
func (r *GormMovementRepository) FindByItem(ctx context.Context, itemID uuid.UUID, filter inventory.MovementFilter) ([]inventory.StockMovement, error) {
	query := r.byItem(ctx, itemID, filter).Order("item_version DESC")

	limit := filter.PageSize
	if limit <= 0 {
		limit = 20
	}

	var movementModels []models.StockMovementModel
	if err := query.Offset(filter.Offset()).Limit(limit).Find(&movementModels).Error; err != nil {
		return nil, err
	}
	return toMovements(movementModels), nil
}

// CountByItem counts movements of one item matching the filter
func (r *GormMovementRepository) CountByItem(ctx context.Context, itemID uuid.UUID, filter inventory.MovementFilter) (int64, error) {
	var count int64
	if err := r.byItem(ctx, itemID, filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindSince lists movements of the given type created after since, oldest first
func (r *GormMovementRepository) FindSince(ctx context.Context, itemID *uuid.UUID, movementType inventory.MovementType, since time.Time) ([]inventory.StockMovement, error) {
	query := r.conn.WithContext(ctx).Model(&models.StockMovementModel{}).
		Where("type = ? AND created_at > ?", movementType, since)
	if itemID != nil {
		query = query.Where("item_id = ?", *itemID)
	}

	var movementModels []models.StockMovementModel
	if err := query.Order("created_at ASC").Order("item_version ASC").Find(&movementModels).Error; err != nil {
		return nil, err
	}
	return toMovements(movementModels), nil
}

// SumByItem sums the signed deltas of all movements of one item
func (r *GormMovementRepository) SumByItem(ctx context.Context, itemID uuid.UUID) (int64, error) {
	var sum int64
	row := r.conn.WithContext(ctx).Model(&models.StockMovementModel{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("item_id = ?", itemID).
		Row()
	if err := row.Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *GormMovementRepository) byItem(ctx context.Context, itemID uuid.UUID, filter inventory.MovementFilter) *gorm.DB {
	query := r.conn.WithContext(ctx).Model(&models.StockMovementModel{}).Where("item_id = ?", itemID)
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	return query
}

func toMovements(movementModels []models.StockMovementModel) []inventory.StockMovement {
	movements := make([]inventory.StockMovement, len(movementModels))
	for i, model := range movementModels {
		movements[i] = *model.ToDomain()
	}
	return movements
}

// Ensure GormMovementRepository implements MovementRepository
var _ inventory.MovementRepository = (*GormMovementRepository)(nil)
